package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/errs"
	"github/chapool/go-keyring/internal/util"
	"github/chapool/go-keyring/internal/wallet"
)

func PostCreateWalletRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Wallets.POST("", postCreateWalletHandler(s))
}

func postCreateWalletHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body wallet.CreateWalletRequest
		if c.Request().ContentLength != 0 {
			if err := c.Bind(&body); err != nil {
				return errs.Wrap(errs.ErrInvalidRequest, err)
			}
		}

		w, err := s.Wallet.CreateWallet(ctx, body)
		if err != nil {
			log.Debug().Err(err).Msg("Failed to create wallet")
			return err
		}

		return c.JSON(http.StatusCreated, w.Public())
	}
}
