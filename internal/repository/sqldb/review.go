package sqldb

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/bookstore/internal/apperror"
	"github.com/sakif/bookstore/internal/model"
	"github.com/sakif/bookstore/internal/repository"
)

var _ repository.ReviewRepository = (*DB)(nil)

// CreateReview inserts a review and fills in ID and CreatedAt.
// A second review of the same book by the same user is a Conflict.
func (db *DB) CreateReview(ctx context.Context, review *model.Review) error {
	review.ID = xid.New().String()
	review.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx, db.conn.Rebind(
		`INSERT INTO reviews (id, book_id, user_id, rating, body, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		review.ID,
		review.BookID,
		review.UserID,
		review.Rating,
		review.Body,
		review.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("review", "you have already reviewed this book")
		}
		return fmt.Errorf("sqldb: inserting review for book %s: %w", review.BookID, err)
	}
	return nil
}

// ListReviewsForBook returns the book's reviews joined with each reviewer's
// username and display name, newest first.
func (db *DB) ListReviewsForBook(ctx context.Context, bookID string) ([]model.ReviewWithAuthor, error) {
	reviews := []model.ReviewWithAuthor{}
	err := db.conn.SelectContext(ctx, &reviews, db.conn.Rebind(
		`SELECT r.id, r.book_id, r.user_id, r.rating, r.body, r.created_at,
		        u.username, u.display_name
		 FROM reviews r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.book_id = ?
		 ORDER BY r.created_at DESC`), bookID)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing reviews for book %s: %w", bookID, err)
	}
	return reviews, nil
}

// GetBookStats counts and averages the book's ratings. The average is 0, not
// NULL, when there are no reviews.
func (db *DB) GetBookStats(ctx context.Context, bookID string) (model.BookStats, error) {
	var stats model.BookStats
	err := db.conn.GetContext(ctx, &stats, db.conn.Rebind(
		`SELECT COUNT(*) AS review_count,
		        COALESCE(CAST(AVG(rating) AS DOUBLE PRECISION), 0.0) AS average_rating
		 FROM reviews
		 WHERE book_id = ?`), bookID)
	if err != nil {
		return model.BookStats{}, fmt.Errorf("sqldb: aggregating reviews for book %s: %w", bookID, err)
	}
	return stats, nil
}
