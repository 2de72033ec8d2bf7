package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/bookstore/internal/apperror"
	"github.com/sakif/bookstore/internal/model"
	"github.com/sakif/bookstore/internal/repository"
)

var _ repository.BookRepository = (*DB)(nil)

// GetBookByISBN returns the book with the given ISBN.
//
// The import doesn't reject duplicate ISBNs, so the first row by id wins when
// there is more than one.
func (db *DB) GetBookByISBN(ctx context.Context, isbn string) (*model.Book, error) {
	var b model.Book
	err := db.conn.GetContext(ctx, &b, db.conn.Rebind(
		`SELECT id, isbn, title, author, year
		 FROM books
		 WHERE isbn = ?
		 ORDER BY id
		 LIMIT 1`), isbn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("book", isbn)
		}
		return nil, fmt.Errorf("sqldb: getting book %s: %w", isbn, err)
	}
	return &b, nil
}

// SearchBooks returns every book whose isbn, title or author contains query,
// ignoring case. The result is never nil: no match is an empty slice.
//
// Both sides are folded by the database's LOWER, so text matches itself
// exactly even where the folding is ASCII-only (SQLite).
func (db *DB) SearchBooks(ctx context.Context, query string) ([]model.Book, error) {
	pattern := "%" + escapeLike(query) + "%"

	books := []model.Book{}
	err := db.conn.SelectContext(ctx, &books, db.conn.Rebind(
		`SELECT id, isbn, title, author, year
		 FROM books
		 WHERE LOWER(isbn)   LIKE LOWER(?) ESCAPE '\'
		    OR LOWER(title)  LIKE LOWER(?) ESCAPE '\'
		    OR LOWER(author) LIKE LOWER(?) ESCAPE '\'
		 ORDER BY title, isbn`),
		pattern, pattern, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("sqldb: searching books for %q: %w", query, err)
	}
	return books, nil
}

// InsertBooks writes all books in one transaction and commits once at the
// end. Rows are inserted verbatim: no validation, no duplicate detection.
func (db *DB) InsertBooks(ctx context.Context, books []model.Book) (n int, err error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqldb: beginning import transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(
		`INSERT INTO books (id, isbn, title, author, year) VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, fmt.Errorf("sqldb: preparing book insert: %w", err)
	}
	defer stmt.Close()

	for i := range books {
		b := &books[i]
		if b.ID == "" {
			b.ID = xid.New().String()
		}
		if _, err = stmt.ExecContext(ctx, b.ID, b.ISBN, b.Title, b.Author, b.Year); err != nil {
			return 0, fmt.Errorf("sqldb: inserting book %s: %w", b.ISBN, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqldb: committing import: %w", err)
	}
	return len(books), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input safe to embed in a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
