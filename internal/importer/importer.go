// Package importer bulk-loads books from a CSV file.
//
// The file has a header row followed by four columns per row:
//
//	isbn,title,author,year
//
// Rows are stored verbatim, without validation or duplicate detection, in a
// single transaction.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sakif/bookstore/internal/model"
	"github.com/sakif/bookstore/internal/repository"
)

const columns = 4

type Importer struct {
	books    repository.BookRepository
	logger   *slog.Logger
	progress io.Writer
}

// New returns an Importer. If progress is non-nil a dot is written to it for
// each row read.
func New(books repository.BookRepository, logger *slog.Logger, progress io.Writer) *Importer {
	return &Importer{books: books, logger: logger, progress: progress}
}

// Import reads every row from r and inserts them, returning how many were
// inserted. A malformed row aborts the import before anything is written.
func (im *Importer) Import(ctx context.Context, r io.Reader) (int, error) {
	books, err := im.read(r)
	if err != nil {
		return 0, err
	}

	n, err := im.books.InsertBooks(ctx, books)
	if err != nil {
		return 0, fmt.Errorf("importer: inserting: %w", err)
	}

	im.logger.Info("books imported", slog.Int("count", n))
	return n, nil
}

func (im *Importer) read(r io.Reader) ([]model.Book, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = columns
	cr.ReuseRecord = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("importer: file is empty, expected a header row")
		}
		return nil, fmt.Errorf("importer: reading header: %w", err)
	}

	var books []model.Book
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("importer: %w", err)
		}

		books = append(books, model.Book{
			ISBN:   rec[0],
			Title:  rec[1],
			Author: rec[2],
			Year:   rec[3],
		})
		if im.progress != nil {
			fmt.Fprint(im.progress, ".")
		}
	}
	return books, nil
}
