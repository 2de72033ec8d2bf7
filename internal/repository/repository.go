// Package repository declares the storage interfaces the service layer
// depends on. Implementations live in sub-packages (sqldb for SQL databases,
// session/redisstore for Redis-backed sessions).
package repository

import (
	"context"
	"time"

	"github.com/sakif/bookstore/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	CountUsers(ctx context.Context) (int, error)
}

type BookRepository interface {
	GetBookByISBN(ctx context.Context, isbn string) (*model.Book, error)
	SearchBooks(ctx context.Context, query string) ([]model.Book, error)
	// InsertBooks inserts every book in a single transaction and returns how
	// many rows were written. Nothing is written if any insert fails.
	InsertBooks(ctx context.Context, books []model.Book) (int, error)
}

type ReviewRepository interface {
	CreateReview(ctx context.Context, review *model.Review) error
	ListReviewsForBook(ctx context.Context, bookID string) ([]model.ReviewWithAuthor, error)
	GetBookStats(ctx context.Context, bookID string) (model.BookStats, error)
}

// StoredSession is a server-side session record.
type StoredSession struct {
	Token     string
	Identity  model.Identity
	ExpiresAt time.Time
}

type SessionRepository interface {
	SaveSession(ctx context.Context, s StoredSession) error
	// GetSession returns apperror.ErrNotFound for unknown or expired tokens.
	GetSession(ctx context.Context, token string) (*StoredSession, error)
	DeleteSession(ctx context.Context, token string) error
}
