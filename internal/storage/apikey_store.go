package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weathervault/weathervault/internal/authcore"
)

// APIKeyStore is the GORM-backed authcore.APIKeyStore.
type APIKeyStore struct {
	database *Database
}

// NewAPIKeyStore constructs an API key store over the shared database.
func NewAPIKeyStore(database *Database) *APIKeyStore {
	return &APIKeyStore{database: database}
}

// CreateAPIKey inserts a new API key row.
func (store *APIKeyStore) CreateAPIKey(ctx context.Context, apiKey authcore.APIKey) (authcore.APIKey, error) {
	if apiKey.ID == uuid.Nil {
		apiKey.ID = uuid.New()
	}
	record := apiKeyRecord{
		ID:          apiKey.ID.String(),
		Key:         apiKey.Key,
		Version:     apiKey.Version,
		Permissions: joinPermissions(apiKey.Permissions),
		Comments:    joinComments(apiKey.Comments),
		Status:      apiKey.Status,
	}
	if createErr := store.database.db.WithContext(ctx).Create(&record).Error; createErr != nil {
		return authcore.APIKey{}, fmt.Errorf("storage.create_apikey: %w", createErr)
	}
	return apiKey, nil
}

// FindAPIKey returns the active API key with the given key string.
func (store *APIKeyStore) FindAPIKey(ctx context.Context, key string) (authcore.APIKey, error) {
	var record apiKeyRecord
	findErr := store.database.db.WithContext(ctx).
		Where("key = ? AND status = ?", key, true).
		Take(&record).Error
	if findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return authcore.APIKey{}, authcore.ErrAPIKeyNotFound
		}
		return authcore.APIKey{}, fmt.Errorf("storage.find_apikey: %w", findErr)
	}
	apiKeyID, parseErr := uuid.Parse(record.ID)
	if parseErr != nil {
		return authcore.APIKey{}, fmt.Errorf("storage.parse_apikey_id: %w", parseErr)
	}
	return authcore.APIKey{
		ID:          apiKeyID,
		Key:         record.Key,
		Version:     record.Version,
		Permissions: splitPermissions(record.Permissions),
		Comments:    splitComments(record.Comments),
		Status:      record.Status,
	}, nil
}

// DeleteAPIKey removes an API key by identifier.
func (store *APIKeyStore) DeleteAPIKey(ctx context.Context, apiKeyID uuid.UUID) error {
	result := store.database.db.WithContext(ctx).
		Where("id = ?", apiKeyID.String()).
		Delete(&apiKeyRecord{})
	if result.Error != nil {
		return fmt.Errorf("storage.delete_apikey: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return authcore.ErrAPIKeyNotFound
	}
	return nil
}
