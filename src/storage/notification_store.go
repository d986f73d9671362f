package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/username/spendwise/backend/src/models"
)

type SQLNotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *SQLNotificationStore {
	return &SQLNotificationStore{db: db}
}

func (s *SQLNotificationStore) Create(ctx context.Context, n *models.Notification) error {
	n.CreatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, type, title, message, is_read, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.UserID, n.Type, n.Title, n.Message, n.IsRead, nullIfEmpty(n.Metadata), n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = id
	return nil
}

func (s *SQLNotificationStore) ListForUser(ctx context.Context, userID int64) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, title, message, is_read, metadata, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var metadata sql.NullString
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.IsRead, &metadata, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		n.Metadata = metadata.String
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notifications: %w", err)
	}
	return notifications, nil
}

func (s *SQLNotificationStore) MarkRead(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	return requireRow(res)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
