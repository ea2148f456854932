// Package store persists the page-text cache and the run log. Extracted
// records are never stored.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dataset-cli/internal/model"
)

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 50

// Store defines persistence for page fetching and run history.
type Store interface {
	// Page cache
	GetCachedPage(ctx context.Context, pageURL string) (string, bool, error)
	SetCachedPage(ctx context.Context, pageURL, text string, ttl time.Duration) error
	DeleteExpiredPages(ctx context.Context) (int, error)

	// Runs
	CreateRun(ctx context.Context, query string, fields []string, target int) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, stats model.RunStats, runErr string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the configured backend and applies migrations. The
// "none" driver (or an empty one) returns a nil Store and no error.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverNone:
		return nil, nil
	case DriverSQLite:
		st, err = NewSQLite(dsn)
	case DriverPostgres, "pgx":
		st, err = NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Wrapf(model.ErrInput, "store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// URLHash is the cache key for a page URL.
func URLHash(pageURL string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(pageURL)))
	return hex.EncodeToString(sum[:])
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
