package wallet

import (
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/errs"
	"github/chapool/go-keyring/internal/util"
	"github/chapool/go-keyring/internal/wallet/signer"
)

// PostSignPayload carries either a personal message or a transaction.
type PostSignPayload struct {
	Message     *string                `json:"message,omitempty"`
	Transaction *signer.SignEVMRequest `json:"transaction,omitempty"`
}

// PostSignResponse holds the signature for a message or the signed transaction.
type PostSignResponse struct {
	Signature      string `json:"signature,omitempty"`
	RawTransaction string `json:"rawTransaction,omitempty"`
	TxHash         string `json:"txHash,omitempty"`
}

func PostSignRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Wallets.POST("/:address/sign", postSignHandler(s))
}

func postSignHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)
		addr := c.Param("address")

		var body PostSignPayload
		if err := c.Bind(&body); err != nil {
			return errs.Wrap(errs.ErrInvalidRequest, err)
		}

		switch {
		case body.Message != nil && body.Transaction != nil:
			return errs.Wrapf(errs.ErrInvalidRequest, nil, "message and transaction are mutually exclusive")
		case body.Message != nil:
			sig, err := s.Wallet.SignMessage(ctx, addr, []byte(*body.Message))
			if err != nil {
				log.Debug().Err(err).Msg("Failed to sign message")
				return err
			}
			return c.JSON(http.StatusOK, &PostSignResponse{Signature: sig})
		case body.Transaction != nil:
			if body.Transaction.FromAddress == "" {
				body.Transaction.FromAddress = addr
			}
			if !strings.EqualFold(body.Transaction.FromAddress, addr) {
				return errs.Wrapf(errs.ErrAddressMismatch, nil, "transaction from address does not match %s", addr)
			}

			resp, err := s.Wallet.SignTransaction(ctx, body.Transaction)
			if err != nil {
				log.Debug().Err(err).Msg("Failed to sign transaction")
				return err
			}
			return c.JSON(http.StatusOK, &PostSignResponse{
				RawTransaction: "0x" + hex.EncodeToString(resp.RawTransaction),
				TxHash:         resp.TxHash,
			})
		default:
			return errs.ErrMissingParameters
		}
	}
}
