package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weathervault/weathervault/internal/authcore"
)

// CredentialStore is the GORM-backed authcore.CredentialStore.
type CredentialStore struct {
	database *Database
}

// NewCredentialStore constructs a credential store over the shared database.
func NewCredentialStore(database *Database) *CredentialStore {
	return &CredentialStore{database: database}
}

// CreateUser inserts the user row plus its role join rows.
func (store *CredentialStore) CreateUser(ctx context.Context, user authcore.User) (authcore.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	record := userRecord{
		ID:           user.ID.String(),
		Email:        user.Email,
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		Status:       user.Status,
	}

	transactionErr := store.database.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		if createErr := transaction.Create(&record).Error; createErr != nil {
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return authcore.ErrDuplicateEmail
			}
			return createErr
		}
		for _, code := range user.Roles {
			var role roleRecord
			if findErr := transaction.Where("code = ?", string(code)).Take(&role).Error; findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return authcore.ErrRoleNotFound
				}
				return findErr
			}
			joinRow := userRoleRecord{UserID: record.ID, RoleID: role.ID}
			if joinErr := transaction.Create(&joinRow).Error; joinErr != nil {
				return joinErr
			}
		}
		return nil
	})
	if transactionErr != nil {
		if errors.Is(transactionErr, authcore.ErrDuplicateEmail) || errors.Is(transactionErr, authcore.ErrRoleNotFound) {
			return authcore.User{}, transactionErr
		}
		return authcore.User{}, fmt.Errorf("storage.create_user: %w", transactionErr)
	}
	return user, nil
}

// FindUserByEmail returns the user with the given email.
func (store *CredentialStore) FindUserByEmail(ctx context.Context, email string) (authcore.User, error) {
	var record userRecord
	findErr := store.database.db.WithContext(ctx).Where("email = ?", email).Take(&record).Error
	if findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return authcore.User{}, authcore.ErrUserNotFound
		}
		return authcore.User{}, fmt.Errorf("storage.find_user_by_email: %w", findErr)
	}
	return store.toDomainUser(ctx, record)
}

// FindUserByID returns the user with the given identifier.
func (store *CredentialStore) FindUserByID(ctx context.Context, userID uuid.UUID) (authcore.User, error) {
	var record userRecord
	findErr := store.database.db.WithContext(ctx).Where("id = ?", userID.String()).Take(&record).Error
	if findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return authcore.User{}, authcore.ErrUserNotFound
		}
		return authcore.User{}, fmt.Errorf("storage.find_user_by_id: %w", findErr)
	}
	return store.toDomainUser(ctx, record)
}

// UpdateUserName updates the display name of a user.
func (store *CredentialStore) UpdateUserName(ctx context.Context, userID uuid.UUID, name string) (authcore.User, error) {
	result := store.database.db.WithContext(ctx).Model(&userRecord{}).
		Where("id = ?", userID.String()).
		Update("name", name)
	if result.Error != nil {
		return authcore.User{}, fmt.Errorf("storage.update_user_name: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return authcore.User{}, authcore.ErrUserNotFound
	}
	return store.FindUserByID(ctx, userID)
}

// ListUsers returns one page of users plus the total count.
func (store *CredentialStore) ListUsers(ctx context.Context, page int, limit int) ([]authcore.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var records []userRecord
	listErr := store.database.db.WithContext(ctx).
		Order("created_at ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&records).Error
	if listErr != nil {
		return nil, 0, fmt.Errorf("storage.list_users: %w", listErr)
	}

	var total int64
	if countErr := store.database.db.WithContext(ctx).Model(&userRecord{}).Count(&total).Error; countErr != nil {
		return nil, 0, fmt.Errorf("storage.count_users: %w", countErr)
	}

	users := make([]authcore.User, 0, len(records))
	for _, record := range records {
		user, toErr := store.toDomainUser(ctx, record)
		if toErr != nil {
			return nil, 0, toErr
		}
		users = append(users, user)
	}
	return users, total, nil
}

// DeleteUser removes the user and its role join rows.
func (store *CredentialStore) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return store.database.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		result := transaction.Where("id = ?", userID.String()).Delete(&userRecord{})
		if result.Error != nil {
			return fmt.Errorf("storage.delete_user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return authcore.ErrUserNotFound
		}
		if joinErr := transaction.Where("user_id = ?", userID.String()).Delete(&userRoleRecord{}).Error; joinErr != nil {
			return fmt.Errorf("storage.delete_user_roles: %w", joinErr)
		}
		return nil
	})
}

// DeactivateUser flips the user's active flag off.
func (store *CredentialStore) DeactivateUser(ctx context.Context, userID uuid.UUID) error {
	result := store.database.db.WithContext(ctx).Model(&userRecord{}).
		Where("id = ? AND status = ?", userID.String(), true).
		Update("status", false)
	if result.Error != nil {
		return fmt.Errorf("storage.deactivate_user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}

// CountUsers returns the number of stored users.
func (store *CredentialStore) CountUsers(ctx context.Context) (int64, error) {
	var total int64
	if countErr := store.database.db.WithContext(ctx).Model(&userRecord{}).Count(&total).Error; countErr != nil {
		return 0, fmt.Errorf("storage.count_users: %w", countErr)
	}
	return total, nil
}

func (store *CredentialStore) toDomainUser(ctx context.Context, record userRecord) (authcore.User, error) {
	userID, parseErr := uuid.Parse(record.ID)
	if parseErr != nil {
		return authcore.User{}, fmt.Errorf("storage.parse_user_id: %w", parseErr)
	}

	var codes []string
	rolesErr := store.database.db.WithContext(ctx).
		Table("roles").
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", record.ID).
		Pluck("roles.code", &codes).Error
	if rolesErr != nil {
		return authcore.User{}, fmt.Errorf("storage.load_user_roles: %w", rolesErr)
	}

	roleCodes := make([]authcore.RoleCode, 0, len(codes))
	for _, code := range codes {
		roleCodes = append(roleCodes, authcore.RoleCode(code))
	}

	return authcore.User{
		ID:           userID,
		Email:        record.Email,
		Name:         record.Name,
		PasswordHash: record.PasswordHash,
		Roles:        roleCodes,
		Status:       record.Status,
	}, nil
}
