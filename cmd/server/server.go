package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/api/router"
	"github/chapool/go-keyring/internal/util/command"
	"github/chapool/go-keyring/internal/wallet"
	"github/chapool/go-keyring/internal/wallet/keystore"
	"github/chapool/go-keyring/internal/wallet/seed"
)

const shutdownTimeout = 10 * time.Second

func New() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Starts the server",
		Long: `Unlocks the keystore and starts the HTTP server.

Without a keystore a new recovery phrase is generated and shown once.
The password is read from KEYRING_PASSWORD or prompted on the terminal.`,
		Args: cobra.NoArgs,
		RunE: runServer,
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := command.Config(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	keystoreService, err := keystore.NewService(cfg.Keystore)
	if err != nil {
		return err
	}

	seedManager := seed.NewManager()
	pair, err := wallet.InitializeKeystore(ctx, seedManager, keystoreService, command.ReadPassword)
	seedManager.Clear()
	if err != nil {
		log.Error().Err(err).Msg("Failed to unlock keystore")
		return err
	}

	s, err := api.InitNewServer(cfg, pair)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize server")
		return err
	}

	if err := router.Init(s); err != nil {
		log.Error().Err(err).Msg("Failed to initialize router")
		return err
	}

	log.Info().Str("pub", s.Session.Pub()).Str("listen", cfg.Echo.ListenAddress).Msg("Starting server")

	errc := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
			return
		}
		log.Info().Msg("Server closed")
	}()

	var startErr error
	select {
	case <-ctx.Done():
	case startErr = <-errc:
		log.Error().Err(startErr).Msg("Failed to start server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if errs := s.Shutdown(shutdownCtx); len(errs) > 0 {
		log.Error().Errs("errors", errs).Msg("Failed to gracefully shut down server")
		return errors.Join(errs...)
	}

	return startErr
}
