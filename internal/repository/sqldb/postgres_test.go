package sqldb

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sakif/bookstore/internal/apperror"
	"github.com/sakif/bookstore/internal/model"
)

// The Postgres path can't run against a real server in unit tests, so these
// use sqlmock to check that queries are rebound to $n placeholders and that
// pg error codes are mapped the same way as SQLite's.

func newMockPostgres(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewFromConn(conn, DriverPostgres), mock
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		url        string
		wantDriver string
		wantDSN    string
	}{
		{"postgres://u:p@localhost/books", DriverPostgres, "postgres://u:p@localhost/books"},
		{"postgresql://localhost/books", DriverPostgres, "postgresql://localhost/books"},
		{"sqlite://data/books.db", DriverSQLite, "data/books.db"},
		{"books.db", DriverSQLite, "books.db"},
		{":memory:", DriverSQLite, ":memory:"},
	}
	for _, tt := range tests {
		driver, dsn := ParseURL(tt.url)
		if driver != tt.wantDriver || dsn != tt.wantDSN {
			t.Errorf("ParseURL(%q) = (%q, %q), want (%q, %q)", tt.url, driver, dsn, tt.wantDriver, tt.wantDSN)
		}
	}
}

func TestPostgres_GetBookByISBN_UsesDollarPlaceholders(t *testing.T) {
	db, mock := newMockPostgres(t)

	rows := sqlmock.NewRows([]string{"id", "isbn", "title", "author", "year"}).
		AddRow("b1", "0380795272", "Krondor: The Betrayal", "Raymond E. Feist", "1998")
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE isbn = $1`)).
		WithArgs("0380795272").
		WillReturnRows(rows)

	book, err := db.GetBookByISBN(context.Background(), "0380795272")
	if err != nil {
		t.Fatalf("GetBookByISBN() error = %v", err)
	}
	if book.Author != "Raymond E. Feist" {
		t.Errorf("Author = %q", book.Author)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgres_CreateUser_UniqueViolation(t *testing.T) {
	db, mock := newMockPostgres(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	err := db.CreateUser(context.Background(), &model.User{Username: "alice", DisplayName: "Alice"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgres_InsertBooks_RollsBack(t *testing.T) {
	db, mock := newMockPostgres(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO books (id, isbn, title, author, year) VALUES ($1, $2, $3, $4, $5)`))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	books := []model.Book{
		{ISBN: "1", Title: "A", Author: "X", Year: "2000"},
		{ISBN: "2", Title: "B", Author: "Y", Year: "2001"},
	}
	if _, err := db.InsertBooks(context.Background(), books); err == nil {
		t.Fatal("InsertBooks() should fail")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostgres_GetBookStats(t *testing.T) {
	db, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE book_id = $1`)).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"review_count", "average_rating"}).AddRow(2, 4.5))

	stats, err := db.GetBookStats(context.Background(), "b1")
	if err != nil {
		t.Fatalf("GetBookStats() error = %v", err)
	}
	if stats.ReviewCount != 2 || stats.AverageRating != 4.5 {
		t.Errorf("stats = %+v", stats)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
