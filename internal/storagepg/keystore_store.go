package storagepg

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weathervault/weathervault/internal/authcore"
)

// KeystoreStore persists per-session secrets in PostgreSQL over raw pgx.
// Consumption uses a single conditional DELETE so a replayed refresh can never
// observe a row a concurrent attempt already consumed.
type KeystoreStore struct {
	pool *pgxpool.Pool
}

// NewKeystoreStore constructs a Postgres keystore store.
func NewKeystoreStore(pool *pgxpool.Pool) *KeystoreStore {
	return &KeystoreStore{pool: pool}
}

// CreateKeystore inserts a new keystore row.
func (store *KeystoreStore) CreateKeystore(ctx context.Context, userID uuid.UUID, primaryKey string, secondaryKey string) (authcore.Keystore, error) {
	keystoreID := uuid.New()
	_, execErr := store.pool.Exec(ctx, `
INSERT INTO keystores (id, user_id, primary_key, secondary_key, status)
VALUES ($1, $2, $3, $4, TRUE)
`, keystoreID.String(), userID.String(), primaryKey, secondaryKey)
	if execErr != nil {
		return authcore.Keystore{}, fmt.Errorf("storagepg.create_keystore: %w", execErr)
	}
	return authcore.Keystore{
		ID:           keystoreID,
		UserID:       userID,
		PrimaryKey:   primaryKey,
		SecondaryKey: secondaryKey,
		Status:       true,
	}, nil
}

// FindKeystore returns the active row matching (user, primary secret).
func (store *KeystoreStore) FindKeystore(ctx context.Context, userID uuid.UUID, primaryKey string) (authcore.Keystore, error) {
	var (
		rawID        string
		secondaryKey string
	)
	row := store.pool.QueryRow(ctx, `
SELECT id, secondary_key
FROM keystores
WHERE user_id = $1 AND primary_key = $2 AND status = TRUE
`, userID.String(), primaryKey)
	if scanErr := row.Scan(&rawID, &secondaryKey); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return authcore.Keystore{}, authcore.ErrKeystoreNotFound
		}
		return authcore.Keystore{}, fmt.Errorf("storagepg.find_keystore: %w", scanErr)
	}
	keystoreID, parseErr := uuid.Parse(rawID)
	if parseErr != nil {
		return authcore.Keystore{}, fmt.Errorf("storagepg.parse_keystore_id: %w", parseErr)
	}
	return authcore.Keystore{
		ID:           keystoreID,
		UserID:       userID,
		PrimaryKey:   primaryKey,
		SecondaryKey: secondaryKey,
		Status:       true,
	}, nil
}

// DeleteKeystore removes a row by identifier.
func (store *KeystoreStore) DeleteKeystore(ctx context.Context, keystoreID uuid.UUID) error {
	commandTag, execErr := store.pool.Exec(ctx, `
DELETE FROM keystores WHERE id = $1
`, keystoreID.String())
	if execErr != nil {
		return fmt.Errorf("storagepg.delete_keystore: %w", execErr)
	}
	if commandTag.RowsAffected() == 0 {
		return authcore.ErrKeystoreNotFound
	}
	return nil
}

// ConsumeKeystore atomically deletes the row matching the exact triple.
func (store *KeystoreStore) ConsumeKeystore(ctx context.Context, userID uuid.UUID, primaryKey string, secondaryKey string) error {
	commandTag, execErr := store.pool.Exec(ctx, `
DELETE FROM keystores
WHERE user_id = $1 AND primary_key = $2 AND secondary_key = $3 AND status = TRUE
`, userID.String(), primaryKey, secondaryKey)
	if execErr != nil {
		return fmt.Errorf("storagepg.consume_keystore: %w", execErr)
	}
	if commandTag.RowsAffected() == 0 {
		return authcore.ErrKeystoreNotFound
	}
	return nil
}
