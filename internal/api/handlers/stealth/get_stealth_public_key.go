package stealth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-keyring/internal/api"
)

func GetStealthPublicKeyRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Stealth.GET("/:pub", getStealthPublicKeyHandler(s))
}

func getStealthPublicKeyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		pub := c.Param("pub")

		epub, err := s.Wallet.GetPublicStealthKey(c.Request().Context(), pub)
		if err != nil {
			return err
		}

		return c.JSON(http.StatusOK, &PublicKeyResponse{Pub: pub, Epub: epub})
	}
}
