package model

import (
	"database/sql"
	"time"
)

// Session tracks one issued access/refresh token pair. Access tokens are
// only honored while their session row exists and is not blocked, so a
// logout immediately invalidates an otherwise valid JWT.
type Session struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Token        string    `json:"-"`
	RefreshToken string    `json:"-"`
	UserAgent    string    `json:"user_agent"`
	ClientIP     string    `json:"client_ip"`
	IsBlocked    bool      `json:"is_blocked"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func CreateSession(db *sql.DB, s *Session) error {
	s.CreatedAt = time.Now()
	res, err := db.Exec(`
		INSERT INTO sessions (user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.UserID, s.Token, s.RefreshToken, s.UserAgent, s.ClientIP, s.IsBlocked, s.ExpiresAt, s.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

func scanSession(row *sql.Row) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.UserID, &s.Token, &s.RefreshToken, &s.UserAgent, &s.ClientIP, &s.IsBlocked, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

const sessionColumns = `id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at`

// GetSessionByToken returns the live session for an access token.
// Blocked or expired sessions are treated as missing.
func GetSessionByToken(db *sql.DB, token string) (*Session, error) {
	return scanSession(db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE token = ? AND is_blocked = 0 AND expires_at > CURRENT_TIMESTAMP`, token))
}

func GetSessionByRefreshToken(db *sql.DB, refreshToken string) (*Session, error) {
	return scanSession(db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE refresh_token = ? AND is_blocked = 0 AND expires_at > CURRENT_TIMESTAMP`, refreshToken))
}

// RotateAccessToken swaps in a newly minted access token for a session.
func RotateAccessToken(db *sql.DB, sessionID int64, newToken string) error {
	_, err := db.Exec(`UPDATE sessions SET token = ? WHERE id = ?`, newToken, sessionID)
	return err
}

// BlockSession revokes a single session (logout).
func BlockSession(db *sql.DB, token string) error {
	_, err := db.Exec(`UPDATE sessions SET is_blocked = 1 WHERE token = ?`, token)
	return err
}

// BlockUserSessions revokes every session of a user, e.g. after a
// password change.
func BlockUserSessions(db *sql.DB, userID int64) error {
	_, err := db.Exec(`UPDATE sessions SET is_blocked = 1 WHERE user_id = ?`, userID)
	return err
}

// DeleteExpiredSessions prunes rows past their expiry.
func DeleteExpiredSessions(db *sql.DB) error {
	_, err := db.Exec(`DELETE FROM sessions WHERE expires_at <= CURRENT_TIMESTAMP`)
	return err
}
