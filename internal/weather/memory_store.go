package weather

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and databaseless dev runs.
type MemoryStore struct {
	mutex     sync.Mutex
	snapshots []Snapshot
}

// NewMemoryStore constructs an empty in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// CreateSnapshot appends a snapshot, assigning an identifier when absent.
func (store *MemoryStore) CreateSnapshot(ctx context.Context, snapshot Snapshot) (Snapshot, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	store.snapshots = append(store.snapshots, snapshot)
	return snapshot, nil
}

// FindSnapshotPage returns one page of snapshots in insertion order.
func (store *MemoryStore) FindSnapshotPage(ctx context.Context, page int, limit int) ([]Snapshot, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	start := (page - 1) * limit
	if start >= len(store.snapshots) {
		return nil, nil
	}
	end := start + limit
	if end > len(store.snapshots) {
		end = len(store.snapshots)
	}
	pageCopy := make([]Snapshot, end-start)
	copy(pageCopy, store.snapshots[start:end])
	return pageCopy, nil
}

// CountSnapshots returns the number of stored snapshots.
func (store *MemoryStore) CountSnapshots(ctx context.Context) (int64, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return int64(len(store.snapshots)), nil
}

// FindSnapshotByID returns the snapshot with the given identifier.
func (store *MemoryStore) FindSnapshotByID(ctx context.Context, snapshotID uuid.UUID) (Snapshot, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	for _, snapshot := range store.snapshots {
		if snapshot.ID == snapshotID {
			return snapshot, nil
		}
	}
	return Snapshot{}, ErrSnapshotNotFound
}

// DeleteSnapshot removes the snapshot with the given identifier.
func (store *MemoryStore) DeleteSnapshot(ctx context.Context, snapshotID uuid.UUID) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	for index, snapshot := range store.snapshots {
		if snapshot.ID == snapshotID {
			store.snapshots = append(store.snapshots[:index], store.snapshots[index+1:]...)
			return nil
		}
	}
	return ErrSnapshotNotFound
}
