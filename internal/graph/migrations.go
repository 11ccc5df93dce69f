package graph

import (
	"database/sql"

	"github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"

	migrationTable = "graph_migrations"
)

func migrations() *migrate.MemoryMigrationSource {
	return &migrate.MemoryMigrationSource{
		Migrations: []*migrate.Migration{
			{
				Id: "20250101000000-graph-nodes",
				Up: []string{
					`CREATE TABLE IF NOT EXISTS graph_nodes (
	path TEXT PRIMARY KEY,
	parent TEXT NOT NULL,
	soul TEXT NOT NULL,
	value TEXT,
	states TEXT NOT NULL DEFAULT '{}',
	updated_at TIMESTAMP NOT NULL
)`,
					`CREATE INDEX IF NOT EXISTS idx_graph_nodes_parent ON graph_nodes (parent)`,
				},
				Down: []string{
					`DROP INDEX IF EXISTS idx_graph_nodes_parent`,
					`DROP TABLE IF EXISTS graph_nodes`,
				},
			},
		},
	}
}

// Migrate applies all pending schema migrations and returns how many ran.
func Migrate(db *sql.DB, dialect string) (int, error) {
	return run(db, dialect, migrate.Up, 0)
}

// Rollback reverts up to steps migrations. Zero reverts all of them.
func Rollback(db *sql.DB, dialect string, steps int) (int, error) {
	return run(db, dialect, migrate.Down, steps)
}

// PendingMigrations lists the ids not yet applied.
func PendingMigrations(db *sql.DB, dialect string) ([]string, error) {
	ms := migrate.MigrationSet{TableName: migrationTable}
	planned, _, err := ms.PlanMigration(db, dialect, migrations(), migrate.Up, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to plan migrations")
	}

	ids := make([]string, 0, len(planned))
	for _, m := range planned {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

func run(db *sql.DB, dialect string, dir migrate.MigrationDirection, limit int) (int, error) {
	ms := migrate.MigrationSet{TableName: migrationTable}
	n, err := ms.ExecMax(db, dialect, migrations(), dir, limit)
	if err != nil {
		return n, errors.Wrap(err, "failed to run migrations")
	}
	return n, nil
}
