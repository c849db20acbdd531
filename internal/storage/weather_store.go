package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weathervault/weathervault/internal/weather"
)

// WeatherStore is the GORM-backed weather.Store.
type WeatherStore struct {
	database *Database
}

// NewWeatherStore constructs a weather store over the shared database.
func NewWeatherStore(database *Database) *WeatherStore {
	return &WeatherStore{database: database}
}

// CreateSnapshot inserts a new snapshot row.
func (store *WeatherStore) CreateSnapshot(ctx context.Context, snapshot weather.Snapshot) (weather.Snapshot, error) {
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	record := toSnapshotRecord(snapshot)
	if createErr := store.database.db.WithContext(ctx).Create(&record).Error; createErr != nil {
		return weather.Snapshot{}, fmt.Errorf("storage.create_snapshot: %w", createErr)
	}
	return snapshot, nil
}

// FindSnapshotPage returns one page of snapshots ordered by observation time.
func (store *WeatherStore) FindSnapshotPage(ctx context.Context, page int, limit int) ([]weather.Snapshot, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	var records []weatherSnapshotRecord
	listErr := store.database.db.WithContext(ctx).
		Order("time ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&records).Error
	if listErr != nil {
		return nil, fmt.Errorf("storage.list_snapshots: %w", listErr)
	}
	snapshots := make([]weather.Snapshot, 0, len(records))
	for _, record := range records {
		snapshot, toErr := toDomainSnapshot(record)
		if toErr != nil {
			return nil, toErr
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// CountSnapshots returns the number of stored snapshots.
func (store *WeatherStore) CountSnapshots(ctx context.Context) (int64, error) {
	var total int64
	if countErr := store.database.db.WithContext(ctx).Model(&weatherSnapshotRecord{}).Count(&total).Error; countErr != nil {
		return 0, fmt.Errorf("storage.count_snapshots: %w", countErr)
	}
	return total, nil
}

// FindSnapshotByID returns the snapshot with the given identifier.
func (store *WeatherStore) FindSnapshotByID(ctx context.Context, snapshotID uuid.UUID) (weather.Snapshot, error) {
	var record weatherSnapshotRecord
	findErr := store.database.db.WithContext(ctx).
		Where("id = ?", snapshotID.String()).
		Take(&record).Error
	if findErr != nil {
		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			return weather.Snapshot{}, weather.ErrSnapshotNotFound
		}
		return weather.Snapshot{}, fmt.Errorf("storage.find_snapshot: %w", findErr)
	}
	return toDomainSnapshot(record)
}

// DeleteSnapshot removes the snapshot with the given identifier.
func (store *WeatherStore) DeleteSnapshot(ctx context.Context, snapshotID uuid.UUID) error {
	result := store.database.db.WithContext(ctx).
		Where("id = ?", snapshotID.String()).
		Delete(&weatherSnapshotRecord{})
	if result.Error != nil {
		return fmt.Errorf("storage.delete_snapshot: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return weather.ErrSnapshotNotFound
	}
	return nil
}

func toSnapshotRecord(snapshot weather.Snapshot) weatherSnapshotRecord {
	return weatherSnapshotRecord{
		ID:                  snapshot.ID.String(),
		Time:                snapshot.Time,
		Interval:            snapshot.Interval,
		Temperature2M:       snapshot.Temperature2M,
		IsDay:               snapshot.IsDay,
		RelativeHumidity2M:  snapshot.RelativeHumidity2M,
		ApparentTemperature: snapshot.ApparentTemperature,
		WeatherCode:         snapshot.WeatherCode,
		Precipitation:       snapshot.Precipitation,
		WindSpeed10M:        snapshot.WindSpeed10M,
		WindDirection10M:    snapshot.WindDirection10M,
		WindGusts10M:        snapshot.WindGusts10M,
	}
}

func toDomainSnapshot(record weatherSnapshotRecord) (weather.Snapshot, error) {
	snapshotID, parseErr := uuid.Parse(record.ID)
	if parseErr != nil {
		return weather.Snapshot{}, fmt.Errorf("storage.parse_snapshot_id: %w", parseErr)
	}
	return weather.Snapshot{
		ID:                  snapshotID,
		Time:                record.Time,
		Interval:            record.Interval,
		Temperature2M:       record.Temperature2M,
		IsDay:               record.IsDay,
		RelativeHumidity2M:  record.RelativeHumidity2M,
		ApparentTemperature: record.ApparentTemperature,
		WeatherCode:         record.WeatherCode,
		Precipitation:       record.Precipitation,
		WindSpeed10M:        record.WindSpeed10M,
		WindDirection10M:    record.WindDirection10M,
		WindGusts10M:        record.WindGusts10M,
	}, nil
}
