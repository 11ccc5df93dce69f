package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/util"
	"github/chapool/go-keyring/internal/wallet"
)

// GetWalletListResponse lists wallets without private keys.
type GetWalletListResponse struct {
	Wallets []*wallet.Wallet `json:"wallets"`
}

func GetWalletListRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Wallets.GET("", getWalletListHandler(s))
}

func getWalletListHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		wallets, err := s.Wallet.ListWallets(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("Failed to list wallets")
			return err
		}

		response := &GetWalletListResponse{
			Wallets: make([]*wallet.Wallet, 0, len(wallets)),
		}
		for _, w := range wallets {
			response.Wallets = append(response.Wallets, w.Public())
		}

		return c.JSON(http.StatusOK, response)
	}
}
