package db

import (
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-keyring/internal/graph"
	"github/chapool/go-keyring/internal/util/command"
)

const (
	statusFlag   = "status"
	rollbackFlag = "rollback"
)

var errNotSQL = errors.New("graph backend is not a SQL database")

func newMigrate() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Applies the graph table migrations",
		Long: `Applies pending migrations of the graph_nodes table for the configured
postgres or sqlite3 backend. The server also migrates on startup.`,
		Args: cobra.NoArgs,
		RunE: migrateCmdFunc,
	}

	cmd.Flags().Bool(statusFlag, false, "only list pending migrations")
	cmd.Flags().Int(rollbackFlag, 0, "revert the given number of migrations instead")

	return cmd
}

func migrateCmdFunc(cmd *cobra.Command, _ []string) error {
	cfg, err := command.Config(cmd)
	if err != nil {
		return err
	}

	dialect := cfg.Graph.Backend
	if dialect != graph.DialectPostgres && dialect != graph.DialectSQLite {
		return errors.Wrapf(errNotSQL, "%q", dialect)
	}

	db, err := sql.Open(dialect, cfg.Graph.DSN)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer db.Close()

	if err := db.PingContext(cmd.Context()); err != nil {
		return errors.Wrap(err, "failed to ping database")
	}

	status, _ := cmd.Flags().GetBool(statusFlag)
	rollback, _ := cmd.Flags().GetInt(rollbackFlag)

	switch {
	case status:
		pending, err := graph.PendingMigrations(db, dialect)
		if err != nil {
			return err
		}
		for _, id := range pending {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		log.Info().Int("pending", len(pending)).Msg("Checked migrations")
	case rollback > 0:
		n, err := graph.Rollback(db, dialect, rollback)
		if err != nil {
			return err
		}
		log.Info().Int("count", n).Msg("Reverted migrations")
	default:
		n, err := graph.Migrate(db, dialect)
		if err != nil {
			return err
		}
		log.Info().Int("count", n).Msg("Applied migrations")
	}

	return nil
}
