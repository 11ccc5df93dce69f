package stealth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/errs"
	"github/chapool/go-keyring/internal/util"
)

type PostOpenStealthPayload struct {
	StealthAddress     string `json:"stealthAddress"`
	EphemeralPublicKey string `json:"ephemeralPublicKey"`
}

func PostOpenStealthRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Stealth.POST("/open", postOpenStealthHandler(s))
}

func postOpenStealthHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var body PostOpenStealthPayload
		if err := c.Bind(&body); err != nil {
			return errs.Wrap(errs.ErrInvalidRequest, err)
		}

		opened, err := s.Wallet.OpenStealthAddress(ctx, body.StealthAddress, body.EphemeralPublicKey)
		if err != nil {
			util.LogFromContext(ctx).Debug().Err(err).Msg("Failed to open stealth address")
			return err
		}

		return c.JSON(http.StatusOK, opened)
	}
}
