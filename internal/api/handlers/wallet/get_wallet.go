package wallet

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/util"
)

func GetWalletRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Wallets.GET("/:address", getWalletHandler(s))
}

func GetMainWalletRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Wallets.GET("/main", getMainWalletHandler(s))
}

func getWalletHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		w, err := s.Wallet.GetWallet(ctx, c.Param("address"))
		if err != nil {
			util.LogFromContext(ctx).Debug().Err(err).Msg("Failed to get wallet")
			return err
		}

		return c.JSON(http.StatusOK, w.Public())
	}
}

func getMainWalletHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		w, err := s.Wallet.GetMainWallet(c.Request().Context())
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, w.Public())
	}
}
