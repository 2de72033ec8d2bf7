package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sakif/bookstore/internal/aggregator"
	"github.com/sakif/bookstore/internal/apperror"
	"github.com/sakif/bookstore/internal/model"
)

// =========================================================================
// FAKES
// =========================================================================
//
// In-memory stand-ins for the repositories. They follow the same error
// contract as sqldb (NotFound / Conflict) so the services can't tell the
// difference.

type fakeUserRepo struct {
	users  map[string]*model.User // keyed by username
	nextID int

	getErr    error
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.users[u.Username]; ok {
		return apperror.Conflict("username", MsgUsernameTaken)
	}
	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	u.CreatedAt = time.Now()
	stored := *u
	f.users[u.Username] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[username]
	if !ok {
		return nil, apperror.NotFound("user", username)
	}
	result := *u
	return &result, nil
}

func (f *fakeUserRepo) GetUserByGitHubID(_ context.Context, id int64) (*model.User, error) {
	for _, u := range f.users {
		if u.GitHubID != nil && *u.GitHubID == id {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("github user", fmt.Sprint(id))
}

func (f *fakeUserRepo) CountUsers(context.Context) (int, error) {
	return len(f.users), nil
}

type fakeCatalog struct {
	books   []model.Book
	reviews []model.Review
	users   map[string]string // user id → username, for ListReviewsForBook

	statsErr error
}

func newFakeCatalog(books ...model.Book) *fakeCatalog {
	c := &fakeCatalog{users: make(map[string]string)}
	for i, b := range books {
		b.ID = fmt.Sprintf("book-%d", i+1)
		c.books = append(c.books, b)
	}
	return c
}

func (c *fakeCatalog) GetBookByISBN(_ context.Context, isbn string) (*model.Book, error) {
	for _, b := range c.books {
		if b.ISBN == isbn {
			result := b
			return &result, nil
		}
	}
	return nil, apperror.NotFound("book", isbn)
}

func (c *fakeCatalog) SearchBooks(_ context.Context, query string) ([]model.Book, error) {
	q := strings.ToLower(query)
	var out []model.Book
	for _, b := range c.books {
		if strings.Contains(strings.ToLower(b.ISBN), q) ||
			strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Author), q) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil // nil on no match, to check the service normalises it
}

func (c *fakeCatalog) InsertBooks(_ context.Context, books []model.Book) (int, error) {
	c.books = append(c.books, books...)
	return len(books), nil
}

func (c *fakeCatalog) CreateReview(_ context.Context, r *model.Review) error {
	for _, existing := range c.reviews {
		if existing.BookID == r.BookID && existing.UserID == r.UserID {
			return apperror.Conflict("review", "duplicate")
		}
	}
	r.ID = fmt.Sprintf("review-%d", len(c.reviews)+1)
	r.CreatedAt = time.Now()
	c.reviews = append(c.reviews, *r)
	return nil
}

func (c *fakeCatalog) ListReviewsForBook(_ context.Context, bookID string) ([]model.ReviewWithAuthor, error) {
	out := []model.ReviewWithAuthor{}
	for _, r := range c.reviews {
		if r.BookID == bookID {
			out = append(out, model.ReviewWithAuthor{Review: r, Username: c.users[r.UserID], DisplayName: c.users[r.UserID]})
		}
	}
	return out, nil
}

func (c *fakeCatalog) GetBookStats(_ context.Context, bookID string) (model.BookStats, error) {
	if c.statsErr != nil {
		return model.BookStats{}, c.statsErr
	}
	var stats model.BookStats
	sum := 0
	for _, r := range c.reviews {
		if r.BookID == bookID {
			stats.ReviewCount++
			sum += r.Rating
		}
	}
	if stats.ReviewCount > 0 {
		stats.AverageRating = math.Round(float64(sum)/float64(stats.ReviewCount)*1e6) / 1e6
	}
	return stats, nil
}

type fakeRatings struct {
	ratings aggregator.Ratings
	err     error
	calls   int
}

func (f *fakeRatings) Lookup(context.Context, string) (aggregator.Ratings, error) {
	f.calls++
	return f.ratings, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
