package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"

	"wasterescue/internal/config"
	"wasterescue/internal/logging"
)

const usage = "Usage: migrate [up|down|steps N|force V|version]"

// defaultSource holds the review_queue schema.
const defaultSource = "file://db/migrations"

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, os.Stderr)

	source := os.Getenv("WASTERESCUE_MIGRATIONS_SOURCE")
	if source == "" {
		source = defaultSource
	}

	m, err := migrate.New(source, cfg.DB.DSN())
	if err != nil {
		logger.Error("opening migrations", "source", source, "error", err)
		os.Exit(1)
	}
	defer m.Close()

	if err := apply(m, os.Args[1:], logger); err != nil {
		logger.Error("migration failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

// ignoreNoChange treats "already there" as success for up/down/steps.
func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func apply(m *migrate.Migrate, args []string, logger *slog.Logger) error {
	cmd := args[0]
	switch cmd {
	case "up":
		if err := ignoreNoChange(m.Up()); err != nil {
			return err
		}
	case "down":
		if err := ignoreNoChange(m.Down()); err != nil {
			return err
		}
	case "steps":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		if err := ignoreNoChange(m.Steps(n)); err != nil {
			return err
		}
	case "force":
		v, err := intArg(args)
		if err != nil {
			return err
		}
		if err := m.Force(v); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("review queue schema", "command", cmd, "version", "none")
	case err != nil:
		return fmt.Errorf("reading schema version: %w", err)
	default:
		logger.Info("review queue schema", "command", cmd, "version", version, "dirty", dirty)
	}
	return nil
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s needs a number", args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", args[0], err)
	}
	return n, nil
}
