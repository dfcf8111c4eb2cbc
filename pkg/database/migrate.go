package database

import (
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	dialect         = "postgres"
	migrationsTable = "schema_migrations"
)

// MigrationStatus describes one embedded migration and whether it has run.
type MigrationStatus struct {
	ID        string
	Applied   bool
	AppliedAt string
}

func init() {
	migrate.SetTable(migrationsTable)
}

// Source exposes the embedded schema migrations.
func Source() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationFiles,
		Root:       "migrations",
	}
}

// MigrateUp applies every pending migration and returns how many ran.
func MigrateUp(db *sqlx.DB) (int, error) {
	n, err := migrate.Exec(db.DB, dialect, Source(), migrate.Up)
	if err != nil {
		return n, fmt.Errorf("apply migrations: %w", err)
	}
	return n, nil
}

// MigrateDown rolls back at most steps migrations. steps <= 0 means one.
func MigrateDown(db *sqlx.DB, steps int) (int, error) {
	if steps <= 0 {
		steps = 1
	}
	n, err := migrate.ExecMax(db.DB, dialect, Source(), migrate.Down, steps)
	if err != nil {
		return n, fmt.Errorf("rollback migrations: %w", err)
	}
	return n, nil
}

// Status lists the embedded migrations alongside their applied state.
func Status(db *sqlx.DB) ([]MigrationStatus, error) {
	migrations, err := Source().FindMigrations()
	if err != nil {
		return nil, fmt.Errorf("find migrations: %w", err)
	}
	records, err := migrate.GetMigrationRecords(db.DB, dialect)
	if err != nil {
		return nil, fmt.Errorf("read migration records: %w", err)
	}

	applied := make(map[string]string, len(records))
	for _, rec := range records {
		applied[rec.Id] = rec.AppliedAt.Format("2006-01-02 15:04:05")
	}

	out := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		at, ok := applied[m.Id]
		out = append(out, MigrationStatus{ID: m.Id, Applied: ok, AppliedAt: at})
	}
	return out, nil
}
