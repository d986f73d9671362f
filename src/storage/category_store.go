package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/username/spendwise/backend/src/models"
)

type SQLCategoryStore struct {
	db *sql.DB
}

func NewCategoryStore(db *sql.DB) *SQLCategoryStore {
	return &SQLCategoryStore{db: db}
}

const categoryColumns = `id, user_id, name, type, description, icon, created_at, updated_at`

func scanCategory(scanner interface{ Scan(dest ...any) error }) (*models.Category, error) {
	var c models.Category
	var description, icon sql.NullString
	err := scanner.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &description, &icon, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Description = description.String
	c.Icon = icon.String
	return &c, nil
}

func (s *SQLCategoryStore) FindMany(ctx context.Context, userID int64) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? ORDER BY name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}
	return categories, nil
}

func (s *SQLCategoryStore) FindOne(ctx context.Context, id, userID int64) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	return scanCategory(row)
}

// FindByID loads a category without an ownership constraint. Callers use
// it to tell a missing category (404) apart from a foreign one (401).
func (s *SQLCategoryStore) FindByID(ctx context.Context, id int64) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	return scanCategory(row)
}

func (s *SQLCategoryStore) Create(ctx context.Context, c *models.Category) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (user_id, name, type, description, icon, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Name, c.Type, c.Description, c.Icon, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (s *SQLCategoryStore) Update(ctx context.Context, c *models.Category) error {
	c.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, type = ?, description = ?, icon = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.Type, c.Description, c.Icon, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating category: %w", err)
	}
	return requireRow(res)
}

func (s *SQLCategoryStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	return requireRow(res)
}
