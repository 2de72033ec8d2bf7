package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/bookstore/internal/aggregator"
	"github.com/sakif/bookstore/internal/apperror"
	"github.com/sakif/bookstore/internal/model"
	"github.com/sakif/bookstore/internal/repository"
)

const (
	MinRating       = 1
	MaxRating       = 5
	MaxReviewLength = 5000

	MsgISBNNotFound    = "isbn not found"
	MsgAlreadyReviewed = "you have already reviewed this book"
)

// RatingsLookup fetches third-party rating data. *aggregator.Client
// implements it.
type RatingsLookup interface {
	Lookup(ctx context.Context, isbn string) (aggregator.Ratings, error)
}

type CatalogService struct {
	books   repository.BookRepository
	reviews repository.ReviewRepository
	ratings RatingsLookup
	logger  *slog.Logger
}

func NewCatalogService(
	books repository.BookRepository,
	reviews repository.ReviewRepository,
	ratings RatingsLookup,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		books:   books,
		reviews: reviews,
		ratings: ratings,
		logger:  logger,
	}
}

// Search matches query against isbn, title and author, ignoring case. The
// result is empty, never nil, when nothing matches.
func (s *CatalogService) Search(ctx context.Context, query string) ([]model.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.ValidationFailed("q", "enter an ISBN, title or author to search for")
	}

	books, err := s.books.SearchBooks(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: searching: %w", err)
	}
	if books == nil {
		books = []model.Book{}
	}
	return books, nil
}

// BookDetail is everything the book page shows.
type BookDetail struct {
	Book    *model.Book
	Reviews []model.ReviewWithAuthor
	Stats   model.BookStats
	Ratings aggregator.Ratings
}

// ReviewedBy reports whether userID has already reviewed the book.
func (d *BookDetail) ReviewedBy(userID string) bool {
	for _, r := range d.Reviews {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// BookDetail loads the book, its reviews and its local stats, and asks the
// aggregator for outside ratings. Aggregator trouble never fails the call:
// only the status code is kept, 0 when the service was unreachable.
func (s *CatalogService) BookDetail(ctx context.Context, isbn string) (*BookDetail, error) {
	book, err := s.books.GetBookByISBN(ctx, isbn)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: loading book: %w", err)
	}

	reviews, err := s.reviews.ListReviewsForBook(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: loading reviews: %w", err)
	}

	stats, err := s.reviews.GetBookStats(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: loading stats: %w", err)
	}

	ratings, err := s.ratings.Lookup(ctx, book.ISBN)
	if err != nil {
		s.logger.Warn("rating lookup failed",
			slog.String("isbn", book.ISBN),
			slog.String("error", err.Error()),
		)
		ratings = aggregator.Ratings{StatusCode: ratings.StatusCode}
	}

	return &BookDetail{
		Book:    book,
		Reviews: reviews,
		Stats:   stats,
		Ratings: ratings,
	}, nil
}

// AddReview records identity's review of the book with the given ISBN.
func (s *CatalogService) AddReview(ctx context.Context, isbn string, identity model.Identity, rating int, body string) (*model.Review, error) {
	if rating < MinRating || rating > MaxRating {
		return nil, apperror.ValidationFailed("rating",
			fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating))
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperror.ValidationFailed("body", "review text is required")
	}
	if len(body) > MaxReviewLength {
		return nil, apperror.ValidationFailed("body",
			fmt.Sprintf("review must be %d characters or fewer", MaxReviewLength))
	}

	book, err := s.books.GetBookByISBN(ctx, isbn)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: loading book: %w", err)
	}

	review := &model.Review{
		BookID: book.ID,
		UserID: identity.DisplayID,
		Rating: rating,
		Body:   body,
	}
	if err := s.reviews.CreateReview(ctx, review); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.Conflict("review", MsgAlreadyReviewed)
		}
		return nil, fmt.Errorf("service/catalog: saving review: %w", err)
	}

	s.logger.Info("review added",
		slog.String("isbn", isbn),
		slog.String("userID", identity.DisplayID),
		slog.Int("rating", rating),
	)
	return review, nil
}

// Score is an average rating. It always marshals with one decimal place,
// so no reviews is 0.0 rather than 0.
type Score float64

func (s Score) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(s), 'f', 1, 64)), nil
}

// BookSummary is the body of GET /api/{isbn}. Field order is the response
// key order.
type BookSummary struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	Year         int    `json:"year"`
	ISBN         string `json:"isbn"`
	ReviewCount  int    `json:"review_count"`
	AverageScore Score  `json:"average_score"`
}

// BookSummary returns the API view of a book. An unknown isbn is a NotFound
// whose message is MsgISBNNotFound.
func (s *CatalogService) BookSummary(ctx context.Context, isbn string) (*BookSummary, error) {
	book, err := s.books.GetBookByISBN(ctx, isbn)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage(MsgISBNNotFound)
		}
		return nil, fmt.Errorf("service/catalog: loading book: %w", err)
	}

	stats, err := s.reviews.GetBookStats(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: loading stats: %w", err)
	}

	return &BookSummary{
		Title:        book.Title,
		Author:       book.Author,
		Year:         book.YearInt(),
		ISBN:         book.ISBN,
		ReviewCount:  stats.ReviewCount,
		AverageScore: Score(stats.RoundedAverage()),
	}, nil
}
