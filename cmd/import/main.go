// Command import loads books from a CSV file into the database named by
// DATABASE_URL, creating the schema first if needed.
//
//	import -file books.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sakif/bookstore/internal/importer"
	"github.com/sakif/bookstore/internal/repository/sqldb"
)

func main() {
	path := flag.String("file", "books.csv", "CSV file with isbn,title,author,year rows")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("could not read .env", slog.String("error", err.Error()))
	}

	if err := run(context.Background(), *path, logger); err != nil {
		logger.Error("import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, path string, logger *slog.Logger) error {
	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	db, err := sqldb.New(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := importer.New(db, logger, os.Stdout).Import(ctx, f)
	fmt.Println()
	if err != nil {
		return err
	}

	fmt.Printf("Records imported: %d\n", n)
	return nil
}
