package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/username/spendwise/backend/src/models"
)

// SQLLedgerQuery aggregates over the expenses table. It is read-only;
// both queries are single statements so there is nothing partial to
// return on failure.
type SQLLedgerQuery struct {
	db *sql.DB
}

func NewLedgerQuery(db *sql.DB) *SQLLedgerQuery {
	return &SQLLedgerQuery{db: db}
}

// baseConditions renders the owner/type/category part of a filter. Date
// bounds are handled by the callers since SumAmount takes them from the
// filter and DailySums from its explicit range.
func baseConditions(f models.ExpenseFilter) (string, []any) {
	where := `user_id = ?`
	args := []any{f.UserID}
	if f.Type != "" {
		where += ` AND type = ?`
		args = append(args, f.Type)
	}
	if f.CategoryID != 0 {
		where += ` AND category_id = ?`
		args = append(args, f.CategoryID)
	}
	return where, args
}

func (l *SQLLedgerQuery) SumAmount(ctx context.Context, f models.ExpenseFilter) (models.Money, error) {
	where, args := baseConditions(f)
	if f.DateFrom != "" {
		where += ` AND date >= ?`
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		where += ` AND date <= ?`
		args = append(args, f.DateTo)
	}

	var cents sql.NullInt64
	err := l.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE `+where, args...).Scan(&cents)
	if err != nil {
		return 0, fmt.Errorf("summing expenses: %w", err)
	}
	return models.Money(cents.Int64), nil
}

func (l *SQLLedgerQuery) DailySums(ctx context.Context, f models.ExpenseFilter, rangeStart, rangeEnd string) ([]models.DailyBucket, error) {
	where, args := baseConditions(f)
	where += ` AND date BETWEEN ? AND ?`
	args = append(args, rangeStart, rangeEnd)

	rows, err := l.db.QueryContext(ctx, `
		SELECT date, SUM(amount_cents) AS total
		FROM expenses
		WHERE `+where+`
		GROUP BY date
		ORDER BY date ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("grouping daily expenses: %w", err)
	}
	defer rows.Close()

	var buckets []models.DailyBucket
	for rows.Next() {
		var b models.DailyBucket
		var total int64
		if err := rows.Scan(&b.Day, &total); err != nil {
			return nil, fmt.Errorf("scanning daily bucket: %w", err)
		}
		b.Total = models.Money(total)
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating daily buckets: %w", err)
	}
	return buckets, nil
}
