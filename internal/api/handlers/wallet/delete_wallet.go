package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/util"
)

func DeleteWalletRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Wallets.DELETE("/:address", deleteWalletHandler(s))
}

func deleteWalletHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		if err := s.Wallet.DeleteWallet(ctx, c.Param("address")); err != nil {
			util.LogFromContext(ctx).Debug().Err(err).Msg("Failed to delete wallet")
			return err
		}

		return c.NoContent(http.StatusNoContent)
	}
}
