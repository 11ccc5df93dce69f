package stealth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/errs"
	"github/chapool/go-keyring/internal/util"
)

type PostGenerateStealthPayload struct {
	RecipientPub string `json:"recipientPub"`
}

func PostGenerateStealthRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Stealth.POST("/generate", postGenerateStealthHandler(s))
}

func postGenerateStealthHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var body PostGenerateStealthPayload
		if err := c.Bind(&body); err != nil {
			return errs.Wrap(errs.ErrInvalidRequest, err)
		}

		result, err := s.Wallet.GenerateStealthAddress(ctx, body.RecipientPub)
		if err != nil {
			util.LogFromContext(ctx).Debug().Err(err).Msg("Failed to generate stealth address")
			return err
		}

		return c.JSON(http.StatusOK, result)
	}
}
