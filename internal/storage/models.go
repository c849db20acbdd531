package storage

import (
	"strings"
	"time"

	"github.com/weathervault/weathervault/internal/authcore"
)

const listSeparator = ","

type userRecord struct {
	ID           string `gorm:"column:id;primaryKey"`
	Email        string `gorm:"column:email;uniqueIndex;not null"`
	Name         string `gorm:"column:name;not null;default:''"`
	PasswordHash string `gorm:"column:password_hash;not null;default:''"`
	Status       bool   `gorm:"column:status;not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRecord) TableName() string {
	return "users"
}

type roleRecord struct {
	ID        string `gorm:"column:id;primaryKey"`
	Code      string `gorm:"column:code;uniqueIndex;not null"`
	Status    bool   `gorm:"column:status;not null;default:true"`
	CreatedAt time.Time
}

func (roleRecord) TableName() string {
	return "roles"
}

type userRoleRecord struct {
	UserID string `gorm:"column:user_id;primaryKey"`
	RoleID string `gorm:"column:role_id;primaryKey"`
}

func (userRoleRecord) TableName() string {
	return "user_roles"
}

type keystoreRecord struct {
	ID           string `gorm:"column:id;primaryKey"`
	UserID       string `gorm:"column:user_id;index;not null;index:idx_keystores_triple"`
	PrimaryKey   string `gorm:"column:primary_key;not null;index:idx_keystores_triple"`
	SecondaryKey string `gorm:"column:secondary_key;not null;index:idx_keystores_triple"`
	Status       bool   `gorm:"column:status;not null;default:true;index:idx_keystores_triple"`
	CreatedAt    time.Time
}

func (keystoreRecord) TableName() string {
	return "keystores"
}

type apiKeyRecord struct {
	ID          string `gorm:"column:id;primaryKey"`
	Key         string `gorm:"column:key;uniqueIndex;not null"`
	Version     int    `gorm:"column:version;not null;default:1"`
	Permissions string `gorm:"column:permissions;not null;default:''"`
	Comments    string `gorm:"column:comments;not null;default:''"`
	Status      bool   `gorm:"column:status;not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (apiKeyRecord) TableName() string {
	return "api_keys"
}

type weatherSnapshotRecord struct {
	ID                  string    `gorm:"column:id;primaryKey"`
	Time                time.Time `gorm:"column:time;index;not null"`
	Interval            int       `gorm:"column:interval;not null"`
	Temperature2M       float64   `gorm:"column:temperature_2m;not null"`
	IsDay               bool      `gorm:"column:is_day;not null"`
	RelativeHumidity2M  float64   `gorm:"column:relative_humidity_2m;not null"`
	ApparentTemperature float64   `gorm:"column:apparent_temperature;not null"`
	WeatherCode         int       `gorm:"column:weather_code;not null"`
	Precipitation       float64   `gorm:"column:precipitation;not null"`
	WindSpeed10M        float64   `gorm:"column:wind_speed_10m;not null"`
	WindDirection10M    float64   `gorm:"column:wind_direction_10m;not null"`
	WindGusts10M        float64   `gorm:"column:wind_gusts_10m;not null"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (weatherSnapshotRecord) TableName() string {
	return "weather_snapshots"
}

func joinPermissions(permissions []authcore.Permission) string {
	parts := make([]string, 0, len(permissions))
	for _, permission := range permissions {
		parts = append(parts, string(permission))
	}
	return strings.Join(parts, listSeparator)
}

func splitPermissions(joined string) []authcore.Permission {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, listSeparator)
	permissions := make([]authcore.Permission, 0, len(parts))
	for _, part := range parts {
		permissions = append(permissions, authcore.Permission(part))
	}
	return permissions
}

func joinComments(comments []string) string {
	return strings.Join(comments, "\n")
}

func splitComments(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, "\n")
}
