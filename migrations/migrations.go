// Package migrations holds the embedded SQL schema applied at startup.
package migrations

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Apply runs the embedded schema. Every statement is IF NOT EXISTS so this is
// safe to run on every boot.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
