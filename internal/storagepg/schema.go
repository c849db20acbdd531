package storagepg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureKeystoreSchema creates the keystores table if it does not exist.
// The remaining tables are migrated by the GORM layer; only the keystore hot
// path runs on raw pgx.
func EnsureKeystoreSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS keystores (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    primary_key TEXT NOT NULL,
    secondary_key TEXT NOT NULL,
    status BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_keystores_triple ON keystores (user_id, primary_key, secondary_key, status);
CREATE INDEX IF NOT EXISTS idx_keystores_user ON keystores (user_id);
`)
	return err
}
