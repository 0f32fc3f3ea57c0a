package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/seanmcgrath/macrocal/internal/common"
	"github.com/seanmcgrath/macrocal/internal/interfaces"
	"github.com/seanmcgrath/macrocal/internal/models"
	"github.com/seanmcgrath/macrocal/internal/normalize"
)

// EventChannel is the NOTIFY channel for economic event changes.
const EventChannel = "macrocal_events"

// EventStore persists canonical economic events.
type EventStore struct {
	db     *sqlx.DB
	logger *common.Logger
}

const upsertEventQuery = `
INSERT INTO economic_events (
	event_id, title, description, category, country, currency, importance,
	event_date, event_time, actual, forecast, previous, source, date_defaulted, updated_at
) VALUES (
	:event_id, :title, :description, :category, :country, :currency, :importance,
	:event_date, :event_time, :actual, :forecast, :previous, :source, :date_defaulted, NOW()
)
ON CONFLICT (event_id) DO UPDATE SET
	title          = EXCLUDED.title,
	description    = EXCLUDED.description,
	category       = EXCLUDED.category,
	country        = EXCLUDED.country,
	currency       = EXCLUDED.currency,
	importance     = EXCLUDED.importance,
	event_date     = EXCLUDED.event_date,
	event_time     = EXCLUDED.event_time,
	actual         = EXCLUDED.actual,
	forecast       = EXCLUDED.forecast,
	previous       = EXCLUDED.previous,
	source         = EXCLUDED.source,
	date_defaulted = EXCLUDED.date_defaulted,
	updated_at     = NOW()
`

// UpsertEvents writes events keyed on event_id, last write wins. One NOTIFY
// is published per batch so realtime subscribers can refresh without polling.
func (s *EventStore) UpsertEvents(ctx context.Context, events []models.EconomicEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, event := range events {
		if _, err := tx.NamedExecContext(ctx, upsertEventQuery, event); err != nil {
			return 0, fmt.Errorf("failed to upsert event %s: %w", event.ID, err)
		}
	}

	payload := fmt.Sprintf(`{"table":"economic_events","count":%d}`, len(events))
	if _, err := tx.ExecContext(ctx, "SELECT pg_notify($1, $2)", EventChannel, payload); err != nil {
		// Notification loss is tolerable; subscribers fall back to the
		// scheduler cadence.
		s.logger.Warn().Err(err).Msg("Failed to publish event notification")
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit upsert: %w", err)
	}

	return len(events), nil
}

// GetEvents reads events matching a query shape, sorted by (date, time).
func (s *EventStore) GetEvents(ctx context.Context, q models.EventQuery) ([]models.EconomicEvent, error) {
	query := `SELECT event_id, title, description, category, country, currency, importance,
		event_date, event_time, actual, forecast, previous, source, date_defaulted
		FROM economic_events WHERE 1=1`
	args := map[string]interface{}{}

	if q.Country != "" {
		query += " AND country = :country"
		args["country"] = countryFilterValue(q.Country)
	}
	if q.Importance != "" {
		query += " AND importance = :importance"
		args["importance"] = q.Importance
	}
	if q.From != "" {
		query += " AND event_date >= :from"
		args["from"] = q.From
	}
	if q.To != "" {
		query += " AND event_date <= :to"
		args["to"] = q.To
	}
	query += " ORDER BY event_date, event_time, event_id"

	rows, err := s.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.EconomicEvent
	for rows.Next() {
		var event models.EconomicEvent
		if err := rows.StructScan(&event); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// countryFilterValue translates a query country code into the display name
// events are stored under. Unknown codes filter on the raw value.
func countryFilterValue(code string) string {
	return normalize.CountryName(code)
}

// DeleteOlderThan removes events dated before the cutoff (YYYY-MM-DD).
func (s *EventStore) DeleteOlderThan(ctx context.Context, cutoff string) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM economic_events WHERE event_date < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired events: %w", err)
	}
	return result.RowsAffected()
}

// Ensure EventStore implements the interface
var _ interfaces.EventStore = (*EventStore)(nil)
