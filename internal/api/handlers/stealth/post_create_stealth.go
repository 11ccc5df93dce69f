package stealth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/util"
)

// PublicKeyResponse exposes the public half of stealth keys.
type PublicKeyResponse struct {
	Pub  string `json:"pub"`
	Epub string `json:"epub"`
}

func PostCreateStealthRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Stealth.POST("", postCreateStealthHandler(s))
}

func postCreateStealthHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		keys, err := s.Wallet.CreateStealthAccount(ctx)
		if err != nil {
			util.LogFromContext(ctx).Debug().Err(err).Msg("Failed to create stealth account")
			return err
		}

		return c.JSON(http.StatusOK, &PublicKeyResponse{Pub: keys.Pub, Epub: keys.Epub})
	}
}
