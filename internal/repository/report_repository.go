package repository

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/database"
	"storefront/internal/domain"
)

// ReportRepository runs the read-only aggregations behind the admin dashboard
type ReportRepository interface {
	OrderTotals(ctx context.Context) (count int, revenue int64, err error)
	PaymentStatusCounts(ctx context.Context) ([]domain.LabelCount, error)
	TopStates(ctx context.Context, limit int) ([]domain.LabelCount, error)
	TopCategories(ctx context.Context, limit int) ([]domain.LabelCount, error)
	// OrdersPerDay returns an empty series when the orders table predates the
	// created_at column
	OrdersPerDay(ctx context.Context) ([]domain.LabelCount, error)
}

type reportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new instance of ReportRepository
func NewReportRepository(db *sql.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) OrderTotals(ctx context.Context) (int, int64, error) {
	var (
		count   int
		revenue int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM orders`).Scan(&count, &revenue)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate orders: %w", err)
	}
	return count, revenue, nil
}

func (r *reportRepository) PaymentStatusCounts(ctx context.Context) ([]domain.LabelCount, error) {
	return r.labelCounts(ctx, `
		SELECT COALESCE(NULLIF(TRIM(payment_status), ''), 'Unknown') AS label, COUNT(*) AS total
		FROM orders
		GROUP BY label
		ORDER BY total DESC, label ASC
	`)
}

func (r *reportRepository) TopStates(ctx context.Context, limit int) ([]domain.LabelCount, error) {
	return r.labelCounts(ctx, `
		SELECT COALESCE(NULLIF(TRIM(state), ''), 'Unknown') AS label, COUNT(*) AS total
		FROM orders
		GROUP BY label
		ORDER BY total DESC, label ASC
		LIMIT $1
	`, limit)
}

func (r *reportRepository) TopCategories(ctx context.Context, limit int) ([]domain.LabelCount, error) {
	return r.labelCounts(ctx, `
		SELECT COALESCE(NULLIF(TRIM(category), ''), 'Uncategorized') AS label, COUNT(*) AS total
		FROM products
		GROUP BY label
		ORDER BY total DESC, label ASC
		LIMIT $1
	`, limit)
}

func (r *reportRepository) OrdersPerDay(ctx context.Context) ([]domain.LabelCount, error) {
	series, err := r.labelCounts(ctx, `
		SELECT TO_CHAR(created_at::date, 'YYYY-MM-DD') AS label, COUNT(*) AS total
		FROM orders
		WHERE created_at IS NOT NULL
		GROUP BY label
		ORDER BY label ASC
	`)
	if err != nil {
		if database.IsPgError(err, database.CodeUndefinedColumn) {
			return []domain.LabelCount{}, nil
		}
		return nil, err
	}
	return series, nil
}

func (r *reportRepository) labelCounts(ctx context.Context, query string, args ...interface{}) ([]domain.LabelCount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run report query: %w", err)
	}
	defer rows.Close()

	counts := []domain.LabelCount{}
	for rows.Next() {
		var lc domain.LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		counts = append(counts, lc)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report rows: %w", err)
	}

	return counts, nil
}
