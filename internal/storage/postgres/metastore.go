package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/seanmcgrath/macrocal/internal/interfaces"
	"github.com/seanmcgrath/macrocal/internal/models"
)

// CacheMetaStore persists per-query-shape cache metadata.
type CacheMetaStore struct {
	db *sqlx.DB
}

// Get returns metadata for a cache key, or nil when the key has never been
// refreshed.
func (s *CacheMetaStore) Get(ctx context.Context, cacheKey string) (*models.CacheMetadata, error) {
	var meta models.CacheMetadata
	err := s.db.GetContext(ctx, &meta,
		`SELECT cache_key, last_updated, next_update, total_events, source, error_count, last_error, is_active
		 FROM economic_data_cache_meta WHERE cache_key = $1`, cacheKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache metadata for %s: %w", cacheKey, err)
	}
	return &meta, nil
}

const upsertMetaQuery = `
INSERT INTO economic_data_cache_meta (
	cache_key, last_updated, next_update, total_events, source, error_count, last_error, is_active
) VALUES (
	:cache_key, :last_updated, :next_update, :total_events, :source, :error_count, :last_error, :is_active
)
ON CONFLICT (cache_key) DO UPDATE SET
	last_updated = EXCLUDED.last_updated,
	next_update  = EXCLUDED.next_update,
	total_events = EXCLUDED.total_events,
	source       = EXCLUDED.source,
	error_count  = EXCLUDED.error_count,
	last_error   = EXCLUDED.last_error,
	is_active    = EXCLUDED.is_active
`

// Upsert writes metadata keyed on cache_key.
func (s *CacheMetaStore) Upsert(ctx context.Context, meta *models.CacheMetadata) error {
	if _, err := s.db.NamedExecContext(ctx, upsertMetaQuery, meta); err != nil {
		return fmt.Errorf("failed to upsert cache metadata for %s: %w", meta.CacheKey, err)
	}
	return nil
}

// List returns metadata for all tracked cache keys.
func (s *CacheMetaStore) List(ctx context.Context) ([]*models.CacheMetadata, error) {
	var metas []*models.CacheMetadata
	err := s.db.SelectContext(ctx, &metas,
		`SELECT cache_key, last_updated, next_update, total_events, source, error_count, last_error, is_active
		 FROM economic_data_cache_meta ORDER BY cache_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache metadata: %w", err)
	}
	return metas, nil
}

// Ensure CacheMetaStore implements the interface
var _ interfaces.CacheMetaStore = (*CacheMetaStore)(nil)
