package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/username/spendwise/backend/src/models"
)

type SQLExpenseStore struct {
	db *sql.DB
}

func NewExpenseStore(db *sql.DB) *SQLExpenseStore {
	return &SQLExpenseStore{db: db}
}

// Sortable columns for the listing endpoint. Anything not listed here
// falls back to date so user input never reaches the ORDER BY clause.
var expenseSortColumns = map[string]string{
	"date":      "e.date",
	"amount":    "e.amount_cents",
	"createdAt": "e.created_at",
}

const expenseSelect = `
	SELECT e.id, e.user_id, e.amount_cents, e.description, e.date, e.type, e.category_id,
	       e.created_at, e.updated_at,
	       c.id, c.name, c.type, c.icon
	FROM expenses e
	LEFT JOIN categories c ON c.id = e.category_id`

func scanExpense(scanner interface{ Scan(dest ...any) error }) (*models.Expense, error) {
	var e models.Expense
	var amountCents int64
	var description sql.NullString
	var catID sql.NullInt64
	var catName, catType, catIcon sql.NullString

	err := scanner.Scan(
		&e.ID, &e.UserID, &amountCents, &description, &e.Date, &e.Type, &e.CategoryID,
		&e.CreatedAt, &e.UpdatedAt,
		&catID, &catName, &catType, &catIcon,
	)
	if err != nil {
		return nil, err
	}
	e.Amount = models.Money(amountCents)
	e.Description = description.String
	if catID.Valid {
		e.Category = &models.CategoryRef{
			ID:   catID.Int64,
			Name: catName.String,
			Type: catType.String,
			Icon: catIcon.String,
		}
	}
	return &e, nil
}

// List returns a page of the owner's ledger entries plus the total count
// of rows matching the filters (ignoring limit/offset).
func (s *SQLExpenseStore) List(ctx context.Context, userID int64, q models.ExpenseQuery) ([]models.Expense, int, error) {
	where := ` WHERE e.user_id = ?`
	args := []any{userID}

	if q.StartDate != "" {
		where += ` AND e.date >= ?`
		args = append(args, q.StartDate)
	}
	if q.EndDate != "" {
		where += ` AND e.date <= ?`
		args = append(args, q.EndDate)
	}
	if q.CategoryID != 0 {
		where += ` AND e.category_id = ?`
		args = append(args, q.CategoryID)
	}
	if q.Type != "" {
		where += ` AND e.type = ?`
		args = append(args, q.Type)
	}
	if q.MinAmount > 0 {
		where += ` AND e.amount_cents >= ?`
		args = append(args, q.MinAmount.Cents())
	}
	if q.MaxAmount > 0 {
		where += ` AND e.amount_cents <= ?`
		args = append(args, q.MaxAmount.Cents())
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses e`+where, args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("counting expenses: %w", err)
	}

	sortCol, ok := expenseSortColumns[q.SortBy]
	if !ok {
		sortCol = "e.date"
	}
	sortDir := "DESC"
	if strings.EqualFold(q.SortOrder, "asc") {
		sortDir = "ASC"
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	query := expenseSelect + where + fmt.Sprintf(` ORDER BY %s %s, e.id %s LIMIT ? OFFSET ?`, sortCol, sortDir, sortDir)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating expenses: %w", err)
	}
	return expenses, count, nil
}

func (s *SQLExpenseStore) FindOne(ctx context.Context, id, userID int64) (*models.Expense, error) {
	row := s.db.QueryRowContext(ctx, expenseSelect+` WHERE e.id = ? AND e.user_id = ?`, id, userID)
	return scanExpense(row)
}

func (s *SQLExpenseStore) Create(ctx context.Context, e *models.Expense) error {
	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (user_id, category_id, amount_cents, description, date, type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.CategoryID, e.Amount.Cents(), e.Description, e.Date, e.Type, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

func (s *SQLExpenseStore) Update(ctx context.Context, e *models.Expense) error {
	e.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE expenses
		SET category_id = ?, amount_cents = ?, description = ?, date = ?, type = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		e.CategoryID, e.Amount.Cents(), e.Description, e.Date, e.Type, e.UpdatedAt,
		e.ID, e.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating expense: %w", err)
	}
	return requireRow(res)
}

func (s *SQLExpenseStore) Delete(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting expense: %w", err)
	}
	return requireRow(res)
}
