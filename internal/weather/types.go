package weather

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Snapshot is one stored weather observation. JSON names mirror the collector
// wire format and must stay stable.
type Snapshot struct {
	ID                  uuid.UUID `json:"id"`
	Time                time.Time `json:"time"`
	Interval            int       `json:"interval"`
	Temperature2M       float64   `json:"temperature_2m"`
	IsDay               bool      `json:"is_day"`
	RelativeHumidity2M  float64   `json:"relative_humidity_2m"`
	ApparentTemperature float64   `json:"apparent_temperature"`
	WeatherCode         int       `json:"weather_code"`
	Precipitation       float64   `json:"precipitation"`
	WindSpeed10M        float64   `json:"wind_speed_10m"`
	WindDirection10M    float64   `json:"wind_direction_10m"`
	WindGusts10M        float64   `json:"wind_gusts_10m"`
}

// ErrSnapshotNotFound indicates no snapshot matched the given identifier.
var ErrSnapshotNotFound = errors.New("weather.snapshot_not_found")

// Store persists weather snapshots.
type Store interface {
	CreateSnapshot(ctx context.Context, snapshot Snapshot) (Snapshot, error)
	FindSnapshotPage(ctx context.Context, page int, limit int) ([]Snapshot, error)
	CountSnapshots(ctx context.Context) (int64, error)
	FindSnapshotByID(ctx context.Context, snapshotID uuid.UUID) (Snapshot, error)
	DeleteSnapshot(ctx context.Context, snapshotID uuid.UUID) error
}
