package router

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/api/handlers"
	"github/chapool/go-keyring/internal/api/httperrors"
	"github/chapool/go-keyring/internal/api/middleware"
)

// Init builds the echo instance and attaches all routes to s.
func Init(s *api.Server) error {
	s.Echo = echo.New()

	s.Echo.Debug = false
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.HTTPErrorHandler = httperrors.HTTPErrorHandler

	s.Echo.Pre(echoMiddleware.RemoveTrailingSlash())
	s.Echo.Use(echoMiddleware.Recover())
	s.Echo.Use(middleware.RequestID())
	s.Echo.Use(middleware.Logger(s.Config.Logger.RequestLevel))

	if s.Config.Echo.EnableMetrics {
		metricsMiddleware, err := echoprometheus.MiddlewareConfig{
			Namespace:  "go_keyring",
			Subsystem:  "http",
			Registerer: s.Metrics.Registry(),
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/metrics"
			},
		}.ToMiddleware()
		if err != nil {
			return err
		}
		s.Echo.Use(metricsMiddleware)
		s.Echo.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
			Gatherer: s.Metrics.Registry(),
		}))
	} else {
		log.Warn().Msg("Disabling metrics endpoint")
	}

	s.Router = &api.Router{
		Routes:       nil,
		Root:         s.Echo.Group(""),
		Management:   s.Echo.Group("/-"),
		APIV1Wallets: s.Echo.Group("/api/v1/wallets"),
		APIV1Stealth: s.Echo.Group("/api/v1/stealth"),
	}

	s.Router.Routes = handlers.AttachAllRoutes(s)

	return nil
}
