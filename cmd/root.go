package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-keyring/cmd/db"
	"github/chapool/go-keyring/cmd/identity"
	"github/chapool/go-keyring/cmd/probe"
	"github/chapool/go-keyring/cmd/server"
	"github/chapool/go-keyring/cmd/stealth"
	"github/chapool/go-keyring/cmd/wallet"
	"github/chapool/go-keyring/internal/config"
	"github/chapool/go-keyring/internal/util/command"
)

// New returns the root command with all subcommands attached.
func New() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "keyring",
		Short: config.ModuleName,
		Long: fmt.Sprintf(`%v

Deterministic wallets and stealth addresses for a single identity,
persisted in an eventually consistent graph store.
Configuration is read from KEYRING_* environment variables and an optional TOML file.`, config.ModuleName),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP(command.ConfigFlag, "c", "", "path to a TOML config file")

	rootCmd.AddCommand(
		db.New(),
		identity.New(),
		probe.New(),
		server.New(),
		stealth.New(),
		wallet.New(),
	)

	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := New().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to execute root command")
		stop()
		os.Exit(1)
	}
}
