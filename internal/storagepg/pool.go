package storagepg

import (
	"context"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool sizing for the keystore hot path. Every request on the refresh and
// bearer-auth routes issues at most one short conditional statement, so the
// pool stays small and recycles idle connections quickly instead of pinning
// them through quiet periods.
const (
	poolMinConns          = 2
	poolMaxConnLifetime   = time.Hour
	poolMaxConnIdleTime   = 5 * time.Minute
	poolHealthCheckPeriod = time.Minute
)

// BuildPool creates the pgx pool backing the keystore store.
func BuildPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, parseErr := pgxpool.ParseConfig(databaseURL)
	if parseErr != nil {
		return nil, parseErr
	}
	config.MinConns = poolMinConns
	config.MaxConns = maxConnsForHost()
	config.MaxConnLifetime = poolMaxConnLifetime
	config.MaxConnIdleTime = poolMaxConnIdleTime
	config.HealthCheckPeriod = poolHealthCheckPeriod
	return pgxpool.NewWithConfig(ctx, config)
}

func maxConnsForHost() int32 {
	maxConns := int32(2 * runtime.GOMAXPROCS(0))
	if maxConns < 4 {
		return 4
	}
	return maxConns
}
