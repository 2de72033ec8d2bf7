package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/bookstore/internal/apperror"
	"github.com/sakif/bookstore/internal/model"
	"github.com/sakif/bookstore/internal/repository"
)

var _ repository.SessionRepository = (*DB)(nil)

// sessionRow mirrors the sessions table. expires_at is a unix timestamp so
// that comparisons behave the same on SQLite and Postgres.
type sessionRow struct {
	Token       string `db:"token"`
	Username    string `db:"username"`
	DisplayID   string `db:"display_id"`
	DisplayName string `db:"display_name"`
	Email       string `db:"email"`
	ExpiresAt   int64  `db:"expires_at"`
}

func (db *DB) SaveSession(ctx context.Context, s repository.StoredSession) error {
	_, err := db.conn.ExecContext(ctx, db.conn.Rebind(
		`INSERT INTO sessions (token, username, display_id, display_name, email, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		s.Token,
		s.Identity.Username,
		s.Identity.DisplayID,
		s.Identity.DisplayName,
		s.Identity.Email,
		s.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqldb: saving session: %w", err)
	}
	return nil
}

// GetSession loads a live session. Expired rows are deleted on sight and
// reported as not found.
func (db *DB) GetSession(ctx context.Context, token string) (*repository.StoredSession, error) {
	var row sessionRow
	err := db.conn.GetContext(ctx, &row, db.conn.Rebind(
		`SELECT token, username, display_id, display_name, email, expires_at
		 FROM sessions WHERE token = ?`), token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("session", "token")
		}
		return nil, fmt.Errorf("sqldb: getting session: %w", err)
	}

	expires := time.Unix(row.ExpiresAt, 0)
	if !time.Now().Before(expires) {
		if err := db.DeleteSession(ctx, token); err != nil {
			return nil, err
		}
		return nil, apperror.NotFound("session", "token")
	}

	return &repository.StoredSession{
		Token: row.Token,
		Identity: model.Identity{
			Username:    row.Username,
			DisplayID:   row.DisplayID,
			DisplayName: row.DisplayName,
			Email:       row.Email,
		},
		ExpiresAt: expires,
	}, nil
}

// DeleteSession removes a session. Deleting an unknown token is not an error.
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	if _, err := db.conn.ExecContext(ctx, db.conn.Rebind(
		`DELETE FROM sessions WHERE token = ?`), token); err != nil {
		return fmt.Errorf("sqldb: deleting session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions deletes every session whose expiry has passed and
// returns how many were removed.
func (db *DB) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, db.conn.Rebind(
		`DELETE FROM sessions WHERE expires_at <= ?`), now.Unix())
	if err != nil {
		return 0, fmt.Errorf("sqldb: purging sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqldb: checking rows affected: %w", err)
	}
	return n, nil
}
