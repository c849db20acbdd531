package authcore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestMemoryCredentialStoreLifecycle(t *testing.T) {
	store := NewMemoryCredentialStore()
	ctx := context.Background()

	created, createErr := store.CreateUser(ctx, User{Email: "alice@example.com", Name: "Alice", Status: true})
	if createErr != nil {
		t.Fatalf("create error: %v", createErr)
	}
	if created.ID == uuid.Nil {
		t.Fatalf("expected an assigned identifier")
	}
	if _, dupErr := store.CreateUser(ctx, User{Email: "alice@example.com"}); !errors.Is(dupErr, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", dupErr)
	}

	renamed, renameErr := store.UpdateUserName(ctx, created.ID, "  Alice Cooper  ")
	if renameErr != nil {
		t.Fatalf("rename error: %v", renameErr)
	}
	if renamed.Name != "Alice Cooper" {
		t.Fatalf("expected trimmed name, got %q", renamed.Name)
	}

	if deactivateErr := store.DeactivateUser(ctx, created.ID); deactivateErr != nil {
		t.Fatalf("deactivate error: %v", deactivateErr)
	}
	deactivated, _ := store.FindUserByID(ctx, created.ID)
	if deactivated.Status {
		t.Fatalf("expected status to be cleared")
	}

	if deleteErr := store.DeleteUser(ctx, created.ID); deleteErr != nil {
		t.Fatalf("delete error: %v", deleteErr)
	}
	if _, findErr := store.FindUserByEmail(ctx, "alice@example.com"); !errors.Is(findErr, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after delete, got %v", findErr)
	}
}

func TestMemoryCredentialStorePagination(t *testing.T) {
	store := NewMemoryCredentialStore()
	ctx := context.Background()
	emails := []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com", "e@example.com"}
	for _, email := range emails {
		if _, createErr := store.CreateUser(ctx, User{Email: email}); createErr != nil {
			t.Fatalf("create error: %v", createErr)
		}
	}

	firstPage, total, listErr := store.ListUsers(ctx, 1, 2)
	if listErr != nil {
		t.Fatalf("list error: %v", listErr)
	}
	if total != 5 || len(firstPage) != 2 {
		t.Fatalf("expected total 5 with page of 2, got %d/%d", total, len(firstPage))
	}
	if firstPage[0].Email != "a@example.com" || firstPage[1].Email != "b@example.com" {
		t.Fatalf("expected insertion order, got %q/%q", firstPage[0].Email, firstPage[1].Email)
	}

	lastPage, _, _ := store.ListUsers(ctx, 3, 2)
	if len(lastPage) != 1 || lastPage[0].Email != "e@example.com" {
		t.Fatalf("unexpected final page: %v", lastPage)
	}

	beyond, total, _ := store.ListUsers(ctx, 9, 2)
	if len(beyond) != 0 || total != 5 {
		t.Fatalf("expected empty page past the end with total intact")
	}
}

func TestMemoryKeystoreStoreConsumeIsSingleUse(t *testing.T) {
	store := NewMemoryKeystoreStore()
	ctx := context.Background()
	userID := uuid.New()

	if _, createErr := store.CreateKeystore(ctx, userID, "primary", "secondary"); createErr != nil {
		t.Fatalf("create error: %v", createErr)
	}

	var winners int
	var mutex sync.Mutex
	var waitGroup sync.WaitGroup
	for attempt := 0; attempt < 16; attempt++ {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			if consumeErr := store.ConsumeKeystore(ctx, userID, "primary", "secondary"); consumeErr == nil {
				mutex.Lock()
				winners++
				mutex.Unlock()
			}
		}()
	}
	waitGroup.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly one winning consume, got %d", winners)
	}
	if _, findErr := store.FindKeystore(ctx, userID, "primary"); !errors.Is(findErr, ErrKeystoreNotFound) {
		t.Fatalf("expected row to be gone, got %v", findErr)
	}
}

func TestMemoryKeystoreStoreConsumeRequiresExactTriple(t *testing.T) {
	store := NewMemoryKeystoreStore()
	ctx := context.Background()
	userID := uuid.New()

	if _, createErr := store.CreateKeystore(ctx, userID, "primary", "secondary"); createErr != nil {
		t.Fatalf("create error: %v", createErr)
	}
	if consumeErr := store.ConsumeKeystore(ctx, userID, "primary", "wrong"); !errors.Is(consumeErr, ErrKeystoreNotFound) {
		t.Fatalf("expected mismatch to find no row, got %v", consumeErr)
	}
	if consumeErr := store.ConsumeKeystore(ctx, uuid.New(), "primary", "secondary"); !errors.Is(consumeErr, ErrKeystoreNotFound) {
		t.Fatalf("expected foreign user to find no row, got %v", consumeErr)
	}
	if consumeErr := store.ConsumeKeystore(ctx, userID, "primary", "secondary"); consumeErr != nil {
		t.Fatalf("exact triple must consume: %v", consumeErr)
	}
}

func TestMemoryRoleStoreInactiveRoleHidden(t *testing.T) {
	store := NewMemoryRoleStore()
	ctx := context.Background()
	if createErr := store.CreateRoles(ctx, []Role{{Code: RoleViewer, Status: false}}); createErr != nil {
		t.Fatalf("create error: %v", createErr)
	}
	if _, findErr := store.FindRole(ctx, RoleViewer); !errors.Is(findErr, ErrRoleNotFound) {
		t.Fatalf("expected inactive role to be hidden, got %v", findErr)
	}
}

func TestMemoryAPIKeyStoreStatusFilter(t *testing.T) {
	store := NewMemoryAPIKeyStore()
	ctx := context.Background()

	active, _ := store.CreateAPIKey(ctx, APIKey{Key: "active-key", Status: true})
	if _, findErr := store.FindAPIKey(ctx, active.Key); findErr != nil {
		t.Fatalf("expected active key to resolve: %v", findErr)
	}

	if _, createErr := store.CreateAPIKey(ctx, APIKey{Key: "disabled-key", Status: false}); createErr != nil {
		t.Fatalf("create error: %v", createErr)
	}
	if _, findErr := store.FindAPIKey(ctx, "disabled-key"); !errors.Is(findErr, ErrAPIKeyNotFound) {
		t.Fatalf("expected disabled key to be hidden, got %v", findErr)
	}
}
