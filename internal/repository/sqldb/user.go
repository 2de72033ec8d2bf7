package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/bookstore/internal/apperror"
	"github.com/sakif/bookstore/internal/model"
	"github.com/sakif/bookstore/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, display_name, email, password_hash, github_id, created_at`

// CreateUser inserts a new user and fills in ID and CreatedAt.
//
// The users.username column is UNIQUE. Callers pre-check the name to give a
// friendly message, but two sign-ups racing for the same name both pass that
// check; the constraint catches the second one and it is reported as the
// same Conflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx, db.conn.Rebind(
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		user.ID,
		user.Username,
		user.DisplayName,
		user.Email,
		user.PasswordHash,
		user.GitHubID,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("username", "username taken")
		}
		return fmt.Errorf("sqldb: inserting user %q: %w", user.Username, err)
	}

	return nil
}

// GetUserByUsername looks a user up by exact (case-sensitive) username.
// Returns apperror.ErrNotFound if no such user exists.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u, db.conn.Rebind(
		`SELECT `+userColumns+` FROM users WHERE username = ?`), username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqldb: getting user %q: %w", username, err)
	}
	return &u, nil
}

// GetUserByGitHubID looks up an account linked to a GitHub user.
func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u, db.conn.Rebind(
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`), githubID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("github user", strconv.FormatInt(githubID, 10))
		}
		return nil, fmt.Errorf("sqldb: getting user by github id %d: %w", githubID, err)
	}
	return &u, nil
}

// CountUsers returns the number of rows in the users table.
func (db *DB) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("sqldb: counting users: %w", err)
	}
	return n, nil
}
