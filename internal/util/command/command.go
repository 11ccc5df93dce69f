// Package command holds helpers shared by the cobra subcommands.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/config"
	"github/chapool/go-keyring/internal/graph"
	"github/chapool/go-keyring/internal/sea"
	"github/chapool/go-keyring/internal/util"
	"github/chapool/go-keyring/internal/wallet"
	"github/chapool/go-keyring/internal/wallet/keystore"
	"github/chapool/go-keyring/internal/wallet/seed"
)

const (
	// PasswordEnv unlocks the keystore without a terminal prompt.
	PasswordEnv = "KEYRING_PASSWORD"

	// ConfigFlag is the persistent root flag naming an optional TOML file.
	ConfigFlag = "config"

	// DefaultDatabase is the sqlite file kept beside the keystore when no
	// graph backend is configured.
	DefaultDatabase = "keyring.db"

	shutdownTimeout = 10 * time.Second
)

// NewSubcommandGroup returns a command that only groups subcommands and
// prints its help when run by itself.
func NewSubcommandGroup(name string, subcommands ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("%s related subcommands", name),
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				log.Error().Err(err).Msg("Failed to print help")
			}
		},
	}

	cmd.AddCommand(subcommands...)

	return cmd
}

// LoadConfig reads the environment and overlays the TOML file at path.
func LoadConfig(path string) (config.Server, error) {
	cfg, err := config.FromFile(path, config.DefaultServiceConfigFromEnv())
	if err != nil {
		return cfg, errors.Wrapf(err, "failed to read config file %q", path)
	}
	return cfg, nil
}

// Config loads the configuration named by the --config flag of cmd and
// configures the global logger from it. An unset graph backend resolves to
// the sqlite file of ResolveGraph.
func Config(cmd *cobra.Command) (config.Server, error) {
	path, err := cmd.Flags().GetString(ConfigFlag)
	if err != nil {
		path = ""
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		return cfg, err
	}

	SetupLogger(cfg.Logger)

	return ResolveGraph(cfg), nil
}

// ResolveGraph points an unset graph backend at DefaultDatabase next to the
// keystore, so records written by one command are seen by the next.
func ResolveGraph(cfg config.Server) config.Server {
	if cfg.Graph.Backend != "" {
		return cfg
	}

	cfg.Graph.Backend = graph.DialectSQLite
	if cfg.Graph.DSN == "" {
		cfg.Graph.DSN = "file:" + filepath.Join(filepath.Dir(cfg.Keystore.Path), DefaultDatabase)
	}
	return cfg
}

// SetupLogger configures the global zerolog logger.
func SetupLogger(cfg config.LoggerServer) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(cfg.Level)
	if cfg.PrettyPrintConsole {
		log.Logger = log.Output(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.TimeFormat = "15:04:05"
			w.Out = os.Stderr
		}))
	} else {
		log.Logger = log.Output(os.Stderr)
	}
}

// ReadPassword returns the password from KEYRING_PASSWORD when set and
// prompts on the terminal otherwise.
func ReadPassword(prompt string) (string, error) {
	if password, ok := os.LookupEnv(PasswordEnv); ok {
		return password, nil
	}
	return wallet.PromptPassword(prompt)
}

// Unlock decrypts the configured keystore and returns the identity keypair.
func Unlock(ctx context.Context, cfg config.Keystore) (*sea.KeyPair, error) {
	keystoreService, err := keystore.NewService(cfg)
	if err != nil {
		return nil, err
	}

	password, err := ReadPassword("Enter keystore password: ")
	if err != nil {
		return nil, err
	}

	seedManager := seed.NewManager()
	defer seedManager.Clear()

	return wallet.UnlockIdentity(ctx, seedManager, keystoreService, password)
}

// WithServer initializes the components serving pair, runs f and shuts the
// components down again. The error returned by f is passed through.
func WithServer(ctx context.Context, cfg config.Server, pair *sea.KeyPair, f func(ctx context.Context, s *api.Server) error) error {
	log := util.LogFromContext(ctx)

	s, err := api.InitNewServer(cfg, pair)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize server")
		return errors.Wrap(err, "failed to initialize server")
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		for _, err := range s.Shutdown(shutdownCtx) {
			log.Error().Err(err).Msg("Failed to gracefully shut down server")
		}
	}()

	start := time.Now()
	if err := f(ctx, s); err != nil {
		log.Debug().Err(err).Dur("duration", time.Since(start)).Msg("Command failed")
		return err
	}

	log.Debug().Dur("duration", time.Since(start)).Msg("Command finished")

	return nil
}

// WithIdentity unlocks the configured keystore and runs f against the
// components serving that identity.
func WithIdentity(cmd *cobra.Command, f func(ctx context.Context, s *api.Server) error) error {
	cfg, err := Config(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if cfg.Graph.Backend == "memory" {
		log.Warn().Msg("Graph backend is memory, records will not outlive this command")
	}

	pair, err := Unlock(ctx, cfg.Keystore)
	if err != nil {
		return err
	}

	return WithServer(ctx, cfg, pair, f)
}

// PrintJSON writes v to w as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
