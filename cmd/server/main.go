// Command server runs the bookstore web application.
//
// Settings come from the environment, optionally seeded from a .env file in
// the working directory. See internal/config for the full list.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/sakif/bookstore/internal/config"
	"github.com/sakif/bookstore/internal/server"
)

func main() {
	// A missing .env is normal in production; any other problem reading it
	// is worth knowing about.
	envErr := godotenv.Load()

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		logger.Warn("could not read .env", slog.String("error", envErr.Error()))
	}

	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
