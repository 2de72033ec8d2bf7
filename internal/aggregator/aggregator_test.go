package aggregator

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestLookup_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "0380795272", r.URL.Query().Get("isbns"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"books":[{"id":29207858,"isbn":"0380795272","isbn13":"9780380795277",
			"ratings_count":28,"reviews_count":82,"text_reviews_count":6,
			"work_ratings_count":31472,"work_reviews_count":38210,"work_text_reviews_count":740,
			"average_rating":"4.05"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", time.Second, discard)
	got, err := c.Lookup(context.Background(), "0380795272")
	require.NoError(t, err)

	assert.True(t, got.OK())
	assert.Equal(t, Ratings{StatusCode: 200, Found: true, AverageRating: 4.05, RatingsCount: 31472}, got)
}

func TestLookup_NumericAverage(t *testing.T) {
	got, err := parse([]byte(`{"books":[{"work_ratings_count":7,"average_rating":3.5}]}`))
	require.NoError(t, err)
	assert.Equal(t, 3.5, got.AverageRating)
	assert.EqualValues(t, 7, got.RatingsCount)
}

func TestLookup_NonOKStatusIsNotAnError(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusUnprocessableEntity, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"books":[{"average_rating":"5.00"}]}`))
		}))

		got, err := New(srv.URL, "k", time.Second, discard).Lookup(context.Background(), "123")
		srv.Close()

		require.NoError(t, err)
		assert.Equal(t, Ratings{StatusCode: status}, got, "status %d keeps only the code", status)
		assert.False(t, got.OK())
	}
}

func TestLookup_NoBooks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"books":[]}`))
	}))
	defer srv.Close()

	got, err := New(srv.URL, "k", time.Second, discard).Lookup(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, Ratings{StatusCode: 200}, got)
	assert.False(t, got.OK())
}

func TestLookup_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	got, err := New(srv.URL, "k", time.Second, discard).Lookup(context.Background(), "123")
	assert.ErrorIs(t, err, errMalformed)
	assert.Equal(t, http.StatusOK, got.StatusCode, "the aggregator did answer")
	assert.False(t, got.OK())
}

func TestLookup_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, "k", 50*time.Millisecond, discard).Lookup(context.Background(), "123")
	assert.Error(t, err)
}

func TestLookup_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := New(addr, "k", time.Second, discard).Lookup(context.Background(), "123")
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	c := New("", "k", 0, discard)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultTimeout, c.http.Timeout)
}
