// Package aggregator looks up third-party rating data for a book by ISBN.
//
// The service speaks the Goodreads review_counts format:
//
//	GET {baseURL}?key=KEY&isbns=ISBN
//	{"books":[{"isbn":"...","work_ratings_count":123,"average_rating":"3.85",...}]}
//
// average_rating is sent as a string; gjson reads it as a number either way.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL = "https://www.goodreads.com/book/review_counts.json"
	DefaultTimeout = 5 * time.Second

	// maxBody caps how much of a response is read.
	maxBody = 1 << 20
)

// Ratings is what the aggregator said about one ISBN. StatusCode is always
// set: 0 when the service could not be reached at all. The rating fields are
// only meaningful when Found is true.
type Ratings struct {
	StatusCode    int
	Found         bool
	AverageRating float64
	RatingsCount  int64
}

// OK reports whether the lookup returned rating data.
func (r Ratings) OK() bool {
	return r.StatusCode == http.StatusOK && r.Found
}

type Client struct {
	baseURL string
	key     string
	http    *http.Client
	logger  *slog.Logger
}

// New returns a Client for baseURL (DefaultBaseURL when empty) with the
// given per-request timeout (DefaultTimeout when zero).
func New(baseURL, key string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		key:     key,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Lookup queries the aggregator for isbn.
//
// A response other than 200 is not an error: it comes back as Ratings with
// only StatusCode set. An error with a zero StatusCode means no response was
// received (timeout, refused connection, cancelled context); a 200 whose body
// can't be read or parsed returns StatusCode 200 with the error.
func (c *Client) Lookup(ctx context.Context, isbn string) (Ratings, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return Ratings{}, fmt.Errorf("aggregator: parsing base url: %w", err)
	}
	q := u.Query()
	q.Set("key", c.key)
	q.Set("isbns", isbn)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Ratings{}, fmt.Errorf("aggregator: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return Ratings{}, fmt.Errorf("aggregator: requesting %s: %w", isbn, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("aggregator lookup",
		slog.String("isbn", isbn),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return Ratings{StatusCode: resp.StatusCode}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Ratings{StatusCode: http.StatusOK}, fmt.Errorf("aggregator: reading response for %s: %w", isbn, err)
	}

	return parse(body)
}

var errMalformed = errors.New("aggregator: malformed response")

// parse reads the first book of a 200 response.
func parse(body []byte) (Ratings, error) {
	if !gjson.ValidBytes(body) {
		return Ratings{StatusCode: http.StatusOK}, errMalformed
	}

	book := gjson.GetBytes(body, "books.0")
	if !book.Exists() {
		return Ratings{StatusCode: http.StatusOK}, nil
	}

	return Ratings{
		StatusCode:    http.StatusOK,
		Found:         true,
		AverageRating: book.Get("average_rating").Float(),
		RatingsCount:  book.Get("work_ratings_count").Int(),
	}, nil
}
