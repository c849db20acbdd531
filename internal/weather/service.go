package weather

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service exposes the weather snapshot operations used by the HTTP layer.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService wires the weather service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Create stores one snapshot.
func (service *Service) Create(ctx context.Context, snapshot Snapshot) (Snapshot, error) {
	created, createErr := service.store.CreateSnapshot(ctx, snapshot)
	if createErr != nil {
		service.logger.Error("weather snapshot creation failed", zap.Error(createErr))
		return Snapshot{}, createErr
	}
	service.logger.Info("weather snapshot created", zap.String("id", created.ID.String()))
	return created, nil
}

// List returns one page of snapshots plus the total count. The page read and
// the count read are independent and run concurrently.
func (service *Service) List(ctx context.Context, page int, limit int) ([]Snapshot, int64, error) {
	var (
		snapshots []Snapshot
		total     int64
		pageErr   error
		countErr  error
	)

	var waitGroup sync.WaitGroup
	waitGroup.Add(2)
	go func() {
		defer waitGroup.Done()
		snapshots, pageErr = service.store.FindSnapshotPage(ctx, page, limit)
	}()
	go func() {
		defer waitGroup.Done()
		total, countErr = service.store.CountSnapshots(ctx)
	}()
	waitGroup.Wait()

	if pageErr != nil {
		service.logger.Error("fetching weather snapshots failed", zap.Error(pageErr))
		return nil, 0, pageErr
	}
	if countErr != nil {
		service.logger.Error("counting weather snapshots failed", zap.Error(countErr))
		return nil, 0, countErr
	}
	return snapshots, total, nil
}

// Get returns one snapshot by identifier.
func (service *Service) Get(ctx context.Context, snapshotID uuid.UUID) (Snapshot, error) {
	snapshot, findErr := service.store.FindSnapshotByID(ctx, snapshotID)
	if findErr != nil {
		if findErr != ErrSnapshotNotFound {
			service.logger.Error("fetching weather snapshot failed", zap.Error(findErr))
		}
		return Snapshot{}, findErr
	}
	return snapshot, nil
}

// Delete removes one snapshot by identifier.
func (service *Service) Delete(ctx context.Context, snapshotID uuid.UUID) error {
	deleteErr := service.store.DeleteSnapshot(ctx, snapshotID)
	if deleteErr != nil {
		if deleteErr != ErrSnapshotNotFound {
			service.logger.Error("removing weather snapshot failed", zap.Error(deleteErr))
		}
		return deleteErr
	}
	service.logger.Info("weather snapshot removed", zap.String("id", snapshotID.String()))
	return nil
}
