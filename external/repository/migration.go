package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS party_snapshots (
		id SMALLINT PRIMARY KEY CHECK (id = 1),
		payload JSONB NOT NULL,
		saved_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// RunMigration is idempotent and runs on every start.
func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrationStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i+1, err)
		}
	}
	return nil
}
