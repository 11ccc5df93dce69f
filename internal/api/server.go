package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github/chapool/go-keyring/internal/auth"
	"github/chapool/go-keyring/internal/config"
	"github/chapool/go-keyring/internal/graph"
	"github/chapool/go-keyring/internal/metrics"
	"github/chapool/go-keyring/internal/wallet"
)

type Router struct {
	Routes       []*echo.Route
	Root         *echo.Group
	Management   *echo.Group
	APIV1Wallets *echo.Group
	APIV1Stealth *echo.Group
}

// Server is a central struct keeping all the dependencies.
// It is initialized with wire, which handles making the new instances of the components
// in the right order. To add a new component, 3 steps are required:
// - declaring it in this struct
// - adding a provider function in providers.go
// - adding the provider's function name to the arguments of wire.Build() in wire.go
//
// Components labeled as `wire:"-"` will be skipped and have to be initialized after the InitNewServer* call.
// For more information about wire refer to https://pkg.go.dev/github.com/google/wire
type Server struct {
	// skip wire:
	// -> initialized with router.Init(s) function
	Echo   *echo.Echo `wire:"-"`
	Router *Router    `wire:"-"`

	Config  config.Server
	Graph   graph.Graph
	Session *auth.Session
	Metrics *metrics.Service
	Wallet  wallet.Service
}

// newServerWithComponents is used by wire to initialize the server components.
// Components not listed here won't be handled by wire and should be initialized separately.
// Components which shouldn't be handled must be labeled `wire:"-"` in Server struct.
func newServerWithComponents(
	cfg config.Server,
	g graph.Graph,
	session *auth.Session,
	metrics *metrics.Service,
	walletService wallet.Service,
) *Server {
	return &Server{
		Config:  cfg,
		Graph:   g,
		Session: session,
		Metrics: metrics,
		Wallet:  walletService,
	}
}

func NewServer(config config.Server) *Server {
	s := &Server{
		Config: config,
	}

	return s
}

// Ready reports whether every component is set and the identity is logged in.
func (s *Server) Ready() bool {
	switch {
	case s.Graph == nil:
		log.Debug().Msg("Server is not fully initialized: graph missing")
		return false
	case s.Session == nil || !s.Session.IsAuthenticated():
		log.Debug().Msg("Server is not fully initialized: identity locked")
		return false
	case s.Metrics == nil, s.Wallet == nil:
		log.Debug().Msg("Server is not fully initialized: services missing")
		return false
	case s.Echo == nil || s.Router == nil:
		log.Debug().Msg("Server is not fully initialized: router missing")
		return false
	}

	return true
}

func (s *Server) Start() error {
	if !s.Ready() {
		return errors.New("server is not ready")
	}

	if err := s.Echo.Start(s.Config.Echo.ListenAddress); err != nil {
		return fmt.Errorf("failed to start echo server: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) []error {
	log.Warn().Msg("Shutting down server")

	var errs []error

	if s.Echo != nil {
		log.Debug().Msg("Shutting down echo server")

		if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Failed to shutdown echo server")
			errs = append(errs, err)
		}
	}

	if s.Session != nil {
		s.Session.Logout()
	}

	if s.Graph != nil {
		log.Debug().Msg("Closing graph")

		if err := s.Graph.Close(); err != nil && !errors.Is(err, graph.ErrClosed) {
			log.Error().Err(err).Msg("Failed to close graph")
			errs = append(errs, err)
		}
	}

	return errs
}
