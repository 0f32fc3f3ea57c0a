package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/seanmcgrath/macrocal/internal/interfaces"
	"github.com/seanmcgrath/macrocal/internal/models"
)

// EarningsStore persists earnings calendar entries. Entries have no stable
// identity beyond (code, report_date), so refetches replace whole windows.
type EarningsStore struct {
	db *sqlx.DB
}

const insertEarningsQuery = `
INSERT INTO earnings_calendar (
	code, report_date, fiscal_date, before_after_market, actual, estimate, surprise_percent, currency, updated_at
) VALUES (
	:code, :report_date, :fiscal_date, :before_after_market, :actual, :estimate, :surprise_percent, :currency, NOW()
)
ON CONFLICT (code, report_date) DO UPDATE SET
	fiscal_date         = EXCLUDED.fiscal_date,
	before_after_market = EXCLUDED.before_after_market,
	actual              = EXCLUDED.actual,
	estimate            = EXCLUDED.estimate,
	surprise_percent    = EXCLUDED.surprise_percent,
	currency            = EXCLUDED.currency,
	updated_at          = NOW()
`

// ReplaceWindow overwrites all reports dated within [from, to] with the
// given set, atomically.
func (s *EarningsStore) ReplaceWindow(ctx context.Context, from, to string, reports []models.EarningsReport) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM earnings_calendar WHERE report_date >= $1 AND report_date <= $2", from, to); err != nil {
		return fmt.Errorf("failed to clear earnings window: %w", err)
	}

	for _, report := range reports {
		if _, err := tx.NamedExecContext(ctx, insertEarningsQuery, report); err != nil {
			return fmt.Errorf("failed to insert earnings for %s: %w", report.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit earnings window: %w", err)
	}
	return nil
}

// GetReports reads reports with report_date within [from, to].
func (s *EarningsStore) GetReports(ctx context.Context, from, to string) ([]models.EarningsReport, error) {
	var reports []models.EarningsReport
	err := s.db.SelectContext(ctx, &reports,
		`SELECT code, report_date, fiscal_date, before_after_market, actual, estimate, surprise_percent, currency
		 FROM earnings_calendar
		 WHERE report_date >= $1 AND report_date <= $2
		 ORDER BY report_date, code`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to read earnings calendar: %w", err)
	}
	return reports, nil
}

// Ensure EarningsStore implements the interface
var _ interfaces.EarningsStore = (*EarningsStore)(nil)
