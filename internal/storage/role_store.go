package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weathervault/weathervault/internal/authcore"
)

// RoleStore is the GORM-backed authcore.RoleStore.
type RoleStore struct {
	database *Database
}

// NewRoleStore constructs a role store over the shared database.
func NewRoleStore(database *Database) *RoleStore {
	return &RoleStore{database: database}
}

// FindRole returns the active role with the given code.
func (store *RoleStore) FindRole(ctx context.Context, code authcore.RoleCode) (authcore.Role, error) {
	var record roleRecord
	findErr := store.database.db.WithContext(ctx).
		Where("code = ? AND status = ?", string(code), true).
		Take(&record).Error
	if findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return authcore.Role{}, authcore.ErrRoleNotFound
		}
		return authcore.Role{}, fmt.Errorf("storage.find_role: %w", findErr)
	}
	roleID, parseErr := uuid.Parse(record.ID)
	if parseErr != nil {
		return authcore.Role{}, fmt.Errorf("storage.parse_role_id: %w", parseErr)
	}
	return authcore.Role{
		ID:     roleID,
		Code:   authcore.RoleCode(record.Code),
		Status: record.Status,
	}, nil
}

// CreateRoles inserts the given roles.
func (store *RoleStore) CreateRoles(ctx context.Context, roles []authcore.Role) error {
	records := make([]roleRecord, 0, len(roles))
	for _, role := range roles {
		if role.ID == uuid.Nil {
			role.ID = uuid.New()
		}
		records = append(records, roleRecord{
			ID:     role.ID.String(),
			Code:   string(role.Code),
			Status: role.Status,
		})
	}
	if createErr := store.database.db.WithContext(ctx).Create(&records).Error; createErr != nil {
		return fmt.Errorf("storage.create_roles: %w", createErr)
	}
	return nil
}

// CountRoles returns the number of stored roles.
func (store *RoleStore) CountRoles(ctx context.Context) (int64, error) {
	var total int64
	if countErr := store.database.db.WithContext(ctx).Model(&roleRecord{}).Count(&total).Error; countErr != nil {
		return 0, fmt.Errorf("storage.count_roles: %w", countErr)
	}
	return total, nil
}
