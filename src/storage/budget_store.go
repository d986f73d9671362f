package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/username/spendwise/backend/src/models"
)

type SQLBudgetStore struct {
	db *sql.DB
}

func NewBudgetStore(db *sql.DB) *SQLBudgetStore {
	return &SQLBudgetStore{db: db}
}

const budgetSelect = `
	SELECT b.id, b.user_id, b.name, b.amount_cents, b.period, b.start_date, b.end_date,
	       b.is_recurring, b.category_id, b.status, b.created_at, b.updated_at,
	       c.id, c.name, c.type, c.icon
	FROM budgets b
	LEFT JOIN categories c ON c.id = b.category_id`

func scanBudget(scanner interface{ Scan(dest ...any) error }) (*models.Budget, error) {
	var b models.Budget
	var amountCents int64
	var endDate sql.NullString
	var categoryID sql.NullInt64
	var catID sql.NullInt64
	var catName, catType, catIcon sql.NullString

	err := scanner.Scan(
		&b.ID, &b.UserID, &b.Name, &amountCents, &b.Period, &b.StartDate, &endDate,
		&b.IsRecurring, &categoryID, &b.Status, &b.CreatedAt, &b.UpdatedAt,
		&catID, &catName, &catType, &catIcon,
	)
	if err != nil {
		return nil, err
	}
	b.Amount = models.Money(amountCents)
	if endDate.Valid {
		b.EndDate = &endDate.String
	}
	if categoryID.Valid {
		b.CategoryID = &categoryID.Int64
	}
	if catID.Valid {
		b.Category = &models.CategoryRef{
			ID:   catID.Int64,
			Name: catName.String,
			Type: catType.String,
			Icon: catIcon.String,
		}
	}
	return &b, nil
}

// FindMany returns the owner's budgets, newest start date first.
// Filter fields are pre-validated by the caller; anything left unset is
// simply not applied.
func (s *SQLBudgetStore) FindMany(ctx context.Context, userID int64, filter models.BudgetFilter) ([]models.Budget, error) {
	where := ` WHERE b.user_id = ?`
	args := []any{userID}
	if filter.Status != "" {
		where += ` AND b.status = ?`
		args = append(args, filter.Status)
	}
	if filter.Period != "" {
		where += ` AND b.period = ?`
		args = append(args, filter.Period)
	}
	if filter.CategoryID != 0 {
		where += ` AND b.category_id = ?`
		args = append(args, filter.CategoryID)
	}

	rows, err := s.db.QueryContext(ctx, budgetSelect+where+` ORDER BY b.start_date DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying budgets: %w", err)
	}
	defer rows.Close()

	var budgets []models.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning budget: %w", err)
		}
		budgets = append(budgets, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating budgets: %w", err)
	}
	return budgets, nil
}

// FindOne loads a single budget scoped to its owner; a row belonging to
// someone else is indistinguishable from a missing one.
func (s *SQLBudgetStore) FindOne(ctx context.Context, id, userID int64) (*models.Budget, error) {
	row := s.db.QueryRowContext(ctx, budgetSelect+` WHERE b.id = ? AND b.user_id = ?`, id, userID)
	return scanBudget(row)
}

func (s *SQLBudgetStore) Create(ctx context.Context, b *models.Budget) error {
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, name, amount_cents, period, start_date, end_date, is_recurring, category_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.Name, b.Amount.Cents(), b.Period, b.StartDate, nullableString(b.EndDate),
		b.IsRecurring, nullableInt64(b.CategoryID), b.Status, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}

func (s *SQLBudgetStore) Update(ctx context.Context, b *models.Budget) error {
	b.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE budgets
		SET name = ?, amount_cents = ?, period = ?, start_date = ?, end_date = ?,
		    is_recurring = ?, category_id = ?, status = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		b.Name, b.Amount.Cents(), b.Period, b.StartDate, nullableString(b.EndDate),
		b.IsRecurring, nullableInt64(b.CategoryID), b.Status, b.UpdatedAt,
		b.ID, b.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating budget: %w", err)
	}
	return requireRow(res)
}

func (s *SQLBudgetStore) UpdateStatus(ctx context.Context, id, userID int64, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE budgets SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?`,
		status, id, userID,
	)
	if err != nil {
		return fmt.Errorf("updating budget status: %w", err)
	}
	return requireRow(res)
}

// Delete is a hard delete; ledger entries are untouched.
func (s *SQLBudgetStore) Delete(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting budget: %w", err)
	}
	return requireRow(res)
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableInt64(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}

// requireRow converts a zero-row write into sql.ErrNoRows so callers can
// treat "nothing matched" as not found.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
