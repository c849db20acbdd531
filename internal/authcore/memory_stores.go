package authcore

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryCredentialStore is an in-memory CredentialStore for tests and
// databaseless dev runs.
type MemoryCredentialStore struct {
	mutex   sync.Mutex
	byID    map[uuid.UUID]User
	byEmail map[string]uuid.UUID
	order   []uuid.UUID
}

// NewMemoryCredentialStore constructs an empty in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		byID:    make(map[uuid.UUID]User),
		byEmail: make(map[string]uuid.UUID),
	}
}

// CreateUser inserts a user, assigning an identifier when absent.
func (store *MemoryCredentialStore) CreateUser(ctx context.Context, user User) (User, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if _, exists := store.byEmail[user.Email]; exists {
		return User{}, ErrDuplicateEmail
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	store.byID[user.ID] = user
	store.byEmail[user.Email] = user.ID
	store.order = append(store.order, user.ID)
	return user, nil
}

// FindUserByEmail returns the user with the given email.
func (store *MemoryCredentialStore) FindUserByEmail(ctx context.Context, email string) (User, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	userID, ok := store.byEmail[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return store.byID[userID], nil
}

// FindUserByID returns the user with the given identifier.
func (store *MemoryCredentialStore) FindUserByID(ctx context.Context, userID uuid.UUID) (User, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	user, ok := store.byID[userID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

// UpdateUserName updates the display name of a user.
func (store *MemoryCredentialStore) UpdateUserName(ctx context.Context, userID uuid.UUID, name string) (User, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	user, ok := store.byID[userID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	user.Name = strings.TrimSpace(name)
	store.byID[userID] = user
	return user, nil
}

// ListUsers returns one page of users plus the total count.
func (store *MemoryCredentialStore) ListUsers(ctx context.Context, page int, limit int) ([]User, int64, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	total := int64(len(store.order))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	start := (page - 1) * limit
	if start >= len(store.order) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(store.order) {
		end = len(store.order)
	}
	users := make([]User, 0, end-start)
	for _, userID := range store.order[start:end] {
		users = append(users, store.byID[userID])
	}
	return users, total, nil
}

// DeleteUser removes a user record.
func (store *MemoryCredentialStore) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	user, ok := store.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	delete(store.byID, userID)
	delete(store.byEmail, user.Email)
	for index, orderedID := range store.order {
		if orderedID == userID {
			store.order = append(store.order[:index], store.order[index+1:]...)
			break
		}
	}
	return nil
}

// DeactivateUser flips the user's active flag off.
func (store *MemoryCredentialStore) DeactivateUser(ctx context.Context, userID uuid.UUID) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	user, ok := store.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.Status = false
	store.byID[userID] = user
	return nil
}

// CountUsers returns the number of stored users.
func (store *MemoryCredentialStore) CountUsers(ctx context.Context) (int64, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return int64(len(store.order)), nil
}

// MemoryRoleStore is an in-memory RoleStore.
type MemoryRoleStore struct {
	mutex sync.Mutex
	roles map[RoleCode]Role
}

// NewMemoryRoleStore constructs an empty in-memory role store.
func NewMemoryRoleStore() *MemoryRoleStore {
	return &MemoryRoleStore{roles: make(map[RoleCode]Role)}
}

// FindRole returns the active role with the given code.
func (store *MemoryRoleStore) FindRole(ctx context.Context, code RoleCode) (Role, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	role, ok := store.roles[code]
	if !ok || !role.Status {
		return Role{}, ErrRoleNotFound
	}
	return role, nil
}

// CreateRoles inserts the given roles.
func (store *MemoryRoleStore) CreateRoles(ctx context.Context, roles []Role) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	for _, role := range roles {
		if role.ID == uuid.Nil {
			role.ID = uuid.New()
		}
		store.roles[role.Code] = role
	}
	return nil
}

// CountRoles returns the number of stored roles.
func (store *MemoryRoleStore) CountRoles(ctx context.Context) (int64, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return int64(len(store.roles)), nil
}

type keystoreTriple struct {
	userID       uuid.UUID
	primaryKey   string
	secondaryKey string
}

// MemoryKeystoreStore is an in-memory KeystoreStore. Consumption holds the
// store mutex for the whole lookup-and-delete, so replays observe no row.
type MemoryKeystoreStore struct {
	mutex    sync.Mutex
	byID     map[uuid.UUID]Keystore
	byTriple map[keystoreTriple]uuid.UUID
}

// NewMemoryKeystoreStore constructs an empty in-memory keystore store.
func NewMemoryKeystoreStore() *MemoryKeystoreStore {
	return &MemoryKeystoreStore{
		byID:     make(map[uuid.UUID]Keystore),
		byTriple: make(map[keystoreTriple]uuid.UUID),
	}
}

// CreateKeystore inserts a new keystore row.
func (store *MemoryKeystoreStore) CreateKeystore(ctx context.Context, userID uuid.UUID, primaryKey string, secondaryKey string) (Keystore, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	keystore := Keystore{
		ID:           uuid.New(),
		UserID:       userID,
		PrimaryKey:   primaryKey,
		SecondaryKey: secondaryKey,
		Status:       true,
	}
	store.byID[keystore.ID] = keystore
	store.byTriple[keystoreTriple{userID, primaryKey, secondaryKey}] = keystore.ID
	return keystore, nil
}

// FindKeystore returns the active row matching (user, primary secret).
func (store *MemoryKeystoreStore) FindKeystore(ctx context.Context, userID uuid.UUID, primaryKey string) (Keystore, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	for _, keystore := range store.byID {
		if keystore.UserID == userID && keystore.PrimaryKey == primaryKey && keystore.Status {
			return keystore, nil
		}
	}
	return Keystore{}, ErrKeystoreNotFound
}

// DeleteKeystore removes a row by identifier.
func (store *MemoryKeystoreStore) DeleteKeystore(ctx context.Context, keystoreID uuid.UUID) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	keystore, ok := store.byID[keystoreID]
	if !ok {
		return ErrKeystoreNotFound
	}
	delete(store.byID, keystoreID)
	delete(store.byTriple, keystoreTriple{keystore.UserID, keystore.PrimaryKey, keystore.SecondaryKey})
	return nil
}

// ConsumeKeystore atomically deletes the row matching the exact triple.
func (store *MemoryKeystoreStore) ConsumeKeystore(ctx context.Context, userID uuid.UUID, primaryKey string, secondaryKey string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	triple := keystoreTriple{userID, primaryKey, secondaryKey}
	keystoreID, ok := store.byTriple[triple]
	if !ok {
		return ErrKeystoreNotFound
	}
	keystore := store.byID[keystoreID]
	if !keystore.Status {
		return ErrKeystoreNotFound
	}
	delete(store.byID, keystoreID)
	delete(store.byTriple, triple)
	return nil
}

// MemoryAPIKeyStore is an in-memory APIKeyStore.
type MemoryAPIKeyStore struct {
	mutex sync.Mutex
	byKey map[string]APIKey
}

// NewMemoryAPIKeyStore constructs an empty in-memory API key store.
func NewMemoryAPIKeyStore() *MemoryAPIKeyStore {
	return &MemoryAPIKeyStore{byKey: make(map[string]APIKey)}
}

// CreateAPIKey inserts a new API key.
func (store *MemoryAPIKeyStore) CreateAPIKey(ctx context.Context, apiKey APIKey) (APIKey, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if apiKey.ID == uuid.Nil {
		apiKey.ID = uuid.New()
	}
	store.byKey[apiKey.Key] = apiKey
	return apiKey, nil
}

// FindAPIKey returns the active API key with the given key string.
func (store *MemoryAPIKeyStore) FindAPIKey(ctx context.Context, key string) (APIKey, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	apiKey, ok := store.byKey[key]
	if !ok || !apiKey.Status {
		return APIKey{}, ErrAPIKeyNotFound
	}
	return apiKey, nil
}

// DeleteAPIKey removes an API key by identifier.
func (store *MemoryAPIKeyStore) DeleteAPIKey(ctx context.Context, apiKeyID uuid.UUID) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	for key, apiKey := range store.byKey {
		if apiKey.ID == apiKeyID {
			delete(store.byKey, key)
			return nil
		}
	}
	return ErrAPIKeyNotFound
}
