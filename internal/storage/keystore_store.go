package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weathervault/weathervault/internal/authcore"
)

// KeystoreStore is the GORM-backed authcore.KeystoreStore.
type KeystoreStore struct {
	database *Database
}

// NewKeystoreStore constructs a keystore store over the shared database.
func NewKeystoreStore(database *Database) *KeystoreStore {
	return &KeystoreStore{database: database}
}

// CreateKeystore inserts a new keystore row.
func (store *KeystoreStore) CreateKeystore(ctx context.Context, userID uuid.UUID, primaryKey string, secondaryKey string) (authcore.Keystore, error) {
	record := keystoreRecord{
		ID:           uuid.New().String(),
		UserID:       userID.String(),
		PrimaryKey:   primaryKey,
		SecondaryKey: secondaryKey,
		Status:       true,
	}
	if createErr := store.database.db.WithContext(ctx).Create(&record).Error; createErr != nil {
		return authcore.Keystore{}, fmt.Errorf("storage.create_keystore: %w", createErr)
	}
	return toDomainKeystore(record)
}

// FindKeystore returns the active row matching (user, primary secret).
func (store *KeystoreStore) FindKeystore(ctx context.Context, userID uuid.UUID, primaryKey string) (authcore.Keystore, error) {
	var record keystoreRecord
	findErr := store.database.db.WithContext(ctx).
		Where("user_id = ? AND primary_key = ? AND status = ?", userID.String(), primaryKey, true).
		Take(&record).Error
	if findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return authcore.Keystore{}, authcore.ErrKeystoreNotFound
		}
		return authcore.Keystore{}, fmt.Errorf("storage.find_keystore: %w", findErr)
	}
	return toDomainKeystore(record)
}

// DeleteKeystore removes a row by identifier.
func (store *KeystoreStore) DeleteKeystore(ctx context.Context, keystoreID uuid.UUID) error {
	result := store.database.db.WithContext(ctx).
		Where("id = ?", keystoreID.String()).
		Delete(&keystoreRecord{})
	if result.Error != nil {
		return fmt.Errorf("storage.delete_keystore: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return authcore.ErrKeystoreNotFound
	}
	return nil
}

// ConsumeKeystore deletes the row matching the exact (user, primary, secondary)
// triple in a single conditional statement. RowsAffected decides the outcome,
// so concurrent attempts on the same pair cannot both succeed.
func (store *KeystoreStore) ConsumeKeystore(ctx context.Context, userID uuid.UUID, primaryKey string, secondaryKey string) error {
	result := store.database.db.WithContext(ctx).
		Where("user_id = ? AND primary_key = ? AND secondary_key = ? AND status = ?",
			userID.String(), primaryKey, secondaryKey, true).
		Delete(&keystoreRecord{})
	if result.Error != nil {
		return fmt.Errorf("storage.consume_keystore: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return authcore.ErrKeystoreNotFound
	}
	return nil
}

func toDomainKeystore(record keystoreRecord) (authcore.Keystore, error) {
	keystoreID, idErr := uuid.Parse(record.ID)
	if idErr != nil {
		return authcore.Keystore{}, fmt.Errorf("storage.parse_keystore_id: %w", idErr)
	}
	userID, userErr := uuid.Parse(record.UserID)
	if userErr != nil {
		return authcore.Keystore{}, fmt.Errorf("storage.parse_keystore_user_id: %w", userErr)
	}
	return authcore.Keystore{
		ID:           keystoreID,
		UserID:       userID,
		PrimaryKey:   record.PrimaryKey,
		SecondaryKey: record.SecondaryKey,
		Status:       record.Status,
	}, nil
}
