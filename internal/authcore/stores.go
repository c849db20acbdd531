package authcore

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// RoleCode is a named permission tier. The enumeration is closed.
type RoleCode string

const (
	RoleViewer  RoleCode = "VIEWER"
	RoleAdmin   RoleCode = "ADMIN"
	RoleManager RoleCode = "MANAGER"
)

// AllRoleCodes lists every role the system knows, in seeding order.
func AllRoleCodes() []RoleCode {
	return []RoleCode{RoleViewer, RoleAdmin, RoleManager}
}

// Permission is a capability scope granted to an API key.
type Permission string

// PermissionGeneral is the default permission required by API-key routes.
const PermissionGeneral Permission = "GENERAL"

// User is an identity record. PasswordHash is write-only and never serialized
// to clients; output shaping happens in the HTTP layer.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Roles        []RoleCode
	Status       bool
}

// HasAnyRole reports whether the user holds at least one of the given codes.
func (user User) HasAnyRole(codes ...RoleCode) bool {
	for _, required := range codes {
		for _, held := range user.Roles {
			if held == required {
				return true
			}
		}
	}
	return false
}

// Role is a persisted permission tier.
type Role struct {
	ID     uuid.UUID
	Code   RoleCode
	Status bool
}

// Keystore binds one issued (access, refresh) token pair to a user through the
// pair's opaque per-issuance secrets. Deleting the row revokes the session.
type Keystore struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	PrimaryKey   string
	SecondaryKey string
	Status       bool
}

// APIKey is a long-lived machine credential.
type APIKey struct {
	ID          uuid.UUID
	Key         string
	Version     int
	Permissions []Permission
	Comments    []string
	Status      bool
}

// HasAnyPermission reports whether the key grants at least one of the given scopes.
func (apiKey APIKey) HasAnyPermission(required ...Permission) bool {
	for _, asked := range required {
		for _, granted := range apiKey.Permissions {
			if granted == asked {
				return true
			}
		}
	}
	return false
}

// Store sentinel errors.
var (
	ErrUserNotFound     = errors.New("store.user_not_found")
	ErrDuplicateEmail   = errors.New("store.duplicate_email")
	ErrRoleNotFound     = errors.New("store.role_not_found")
	ErrKeystoreNotFound = errors.New("store.keystore_not_found")
	ErrAPIKeyNotFound   = errors.New("store.apikey_not_found")
)

// CredentialStore persists user records.
type CredentialStore interface {
	CreateUser(ctx context.Context, user User) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	FindUserByID(ctx context.Context, userID uuid.UUID) (User, error)
	UpdateUserName(ctx context.Context, userID uuid.UUID, name string) (User, error)
	ListUsers(ctx context.Context, page int, limit int) ([]User, int64, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	DeactivateUser(ctx context.Context, userID uuid.UUID) error
	CountUsers(ctx context.Context) (int64, error)
}

// RoleStore persists the closed role enumeration.
type RoleStore interface {
	FindRole(ctx context.Context, code RoleCode) (Role, error)
	CreateRoles(ctx context.Context, roles []Role) error
	CountRoles(ctx context.Context) (int64, error)
}

// KeystoreStore persists per-issuance session secrets.
//
// ConsumeKeystore must be an atomic conditional delete: of two concurrent
// refresh attempts presenting the same pair, at most one may observe the row.
type KeystoreStore interface {
	CreateKeystore(ctx context.Context, userID uuid.UUID, primaryKey string, secondaryKey string) (Keystore, error)
	FindKeystore(ctx context.Context, userID uuid.UUID, primaryKey string) (Keystore, error)
	DeleteKeystore(ctx context.Context, keystoreID uuid.UUID) error
	ConsumeKeystore(ctx context.Context, userID uuid.UUID, primaryKey string, secondaryKey string) error
}

// APIKeyStore persists issued API keys and their permission grants.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, apiKey APIKey) (APIKey, error)
	FindAPIKey(ctx context.Context, key string) (APIKey, error)
	DeleteAPIKey(ctx context.Context, apiKeyID uuid.UUID) error
}
