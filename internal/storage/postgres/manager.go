// Package postgres implements the storage layer over PostgreSQL
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/seanmcgrath/macrocal/internal/common"
	"github.com/seanmcgrath/macrocal/internal/interfaces"
)

// schema is applied idempotently on startup. The cache metadata table keeps
// one row per query shape and is never deleted from.
const schema = `
CREATE TABLE IF NOT EXISTS economic_events (
	event_id       TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	category       TEXT NOT NULL,
	country        TEXT NOT NULL,
	currency       TEXT NOT NULL DEFAULT '',
	importance     TEXT NOT NULL,
	event_date     TEXT NOT NULL,
	event_time     TEXT NOT NULL DEFAULT '',
	actual         TEXT NOT NULL DEFAULT '',
	forecast       TEXT NOT NULL DEFAULT '',
	previous       TEXT NOT NULL DEFAULT '',
	source         TEXT NOT NULL,
	date_defaulted BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_economic_events_date ON economic_events (event_date);
CREATE INDEX IF NOT EXISTS idx_economic_events_country ON economic_events (country);
CREATE INDEX IF NOT EXISTS idx_economic_events_importance ON economic_events (importance);

CREATE TABLE IF NOT EXISTS economic_data_cache_meta (
	cache_key    TEXT PRIMARY KEY,
	last_updated TIMESTAMPTZ NOT NULL,
	next_update  TIMESTAMPTZ NOT NULL,
	total_events INTEGER NOT NULL DEFAULT 0,
	source       TEXT NOT NULL DEFAULT '',
	error_count  INTEGER NOT NULL DEFAULT 0,
	last_error   TEXT NOT NULL DEFAULT '',
	is_active    BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS earnings_calendar (
	code                TEXT NOT NULL,
	report_date         TEXT NOT NULL,
	fiscal_date         TEXT NOT NULL DEFAULT '',
	before_after_market TEXT NOT NULL DEFAULT 'unspecified',
	actual              DOUBLE PRECISION,
	estimate            DOUBLE PRECISION,
	surprise_percent    DOUBLE PRECISION,
	currency            TEXT NOT NULL DEFAULT '',
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (code, report_date)
);

CREATE INDEX IF NOT EXISTS idx_earnings_calendar_date ON earnings_calendar (report_date);
`

// Manager owns the connection pool and the stores built on it.
type Manager struct {
	db     *sqlx.DB
	dsn    string
	logger *common.Logger

	events   *EventStore
	meta     *CacheMetaStore
	earnings *EarningsStore
}

// NewManager connects to Postgres, applies the schema, and builds the stores.
func NewManager(dsn string, logger *common.Logger) (*Manager, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Info().Msg("Connected to Postgres")

	return &Manager{
		db:       db,
		dsn:      dsn,
		logger:   logger,
		events:   &EventStore{db: db, logger: logger},
		meta:     &CacheMetaStore{db: db},
		earnings: &EarningsStore{db: db},
	}, nil
}

// EventStore returns the economic event store
func (m *Manager) EventStore() interfaces.EventStore {
	return m.events
}

// CacheMetaStore returns the cache metadata store
func (m *Manager) CacheMetaStore() interfaces.CacheMetaStore {
	return m.meta
}

// EarningsStore returns the earnings calendar store
func (m *Manager) EarningsStore() interfaces.EarningsStore {
	return m.earnings
}

// Ping verifies database connectivity
func (m *Manager) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// Close releases the connection pool
func (m *Manager) Close() error {
	return m.db.Close()
}

// Ensure Manager implements StorageManager
var _ interfaces.StorageManager = (*Manager)(nil)
