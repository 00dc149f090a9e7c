package schema

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var ddl string

// SQL returns the idempotent schema, including the seeded achievement definitions.
func SQL() string {
	return ddl
}

// Apply creates any missing tables and seeds the achievement definitions.
// Running it against an up to date database is a no-op.
func Apply(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
