package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	sqliteDialector "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrUnsupportedDialect indicates that no GORM dialector is available for the scheme.
	ErrUnsupportedDialect = errors.New("storage.unsupported_dialect")

	errEmptyDatabaseURL    = errors.New("storage.empty_database_url")
	errSQLiteEmptyPath     = errors.New("storage.sqlite.empty_path")
	errSQLiteInvalidURL    = errors.New("storage.sqlite.invalid_url")
	errUnsupportedNoScheme = errors.New("storage.unsupported_no_scheme")
)

// Database wraps the GORM handle shared by all stores.
type Database struct {
	db          *gorm.DB
	driverLabel string
}

// Driver exposes the selected database driver label.
func (database *Database) Driver() string {
	return database.driverLabel
}

// Open resolves the URL scheme to a dialector, connects, and migrates the schema.
func Open(ctx context.Context, databaseURL string) (*Database, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("storage.open: %w", errEmptyDatabaseURL)
	}
	dialector, driverLabel, resolveErr := resolveDialector(databaseURL)
	if resolveErr != nil {
		return nil, resolveErr
	}
	gormDB, openErr := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if openErr != nil {
		return nil, fmt.Errorf("storage.open.%s: %w", driverLabel, openErr)
	}
	if migrateErr := gormDB.WithContext(ctx).AutoMigrate(
		&roleRecord{},
		&userRecord{},
		&userRoleRecord{},
		&keystoreRecord{},
		&apiKeyRecord{},
		&weatherSnapshotRecord{},
	); migrateErr != nil {
		return nil, fmt.Errorf("storage.migrate.%s: %w", driverLabel, migrateErr)
	}
	return &Database{
		db:          gormDB,
		driverLabel: driverLabel,
	}, nil
}

func resolveDialector(databaseURL string) (gorm.Dialector, string, error) {
	parsed, parseErr := url.Parse(databaseURL)
	if parseErr != nil {
		return nil, "", fmt.Errorf("storage.parse_url: %w", parseErr)
	}
	if parsed.Scheme == "" {
		return nil, "", fmt.Errorf("storage.dialect: %w", errUnsupportedNoScheme)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "postgres", "postgresql":
		return postgres.Open(databaseURL), "postgres", nil
	case "sqlite", "sqlite3":
		dsn, dsnErr := buildSQLiteDSN(parsed)
		if dsnErr != nil {
			return nil, "", fmt.Errorf("storage.sqlite: %w", dsnErr)
		}
		return sqliteDialector.Open(dsn), "sqlite", nil
	default:
		return nil, "", fmt.Errorf("storage.dialect.%s: %w", strings.ToLower(parsed.Scheme), ErrUnsupportedDialect)
	}
}

func buildSQLiteDSN(parsed *url.URL) (string, error) {
	if parsed == nil {
		return "", errSQLiteInvalidURL
	}
	var builder strings.Builder
	switch {
	case parsed.Opaque != "":
		builder.WriteString(parsed.Opaque)
	case parsed.Host != "":
		builder.WriteString(parsed.Host)
		if parsed.Path != "" {
			if !strings.HasPrefix(parsed.Path, "/") {
				builder.WriteString("/")
			}
			builder.WriteString(parsed.Path)
		}
	default:
		builder.WriteString(parsed.Path)
	}
	if builder.Len() == 0 {
		return "", errSQLiteEmptyPath
	}
	if parsed.RawQuery != "" {
		builder.WriteString("?")
		builder.WriteString(parsed.RawQuery)
	}
	return builder.String(), nil
}
