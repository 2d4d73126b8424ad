package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"wasterescue/internal/app"
	"wasterescue/internal/config"
	"wasterescue/internal/logging"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "wasterescue",
	Short: "Extract, validate and review waste documents",
	Long: `wasterescue picks up waste documents that the upstream pipeline could not
process, extracts and validates their rows and holds the results for human review.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the configuration")
}

// newApp loads configuration and wires the application. Replaced in tests.
var newApp = func(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return app.New(ctx, cfg, newLogger(cfg))
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(cfg.Log, os.Stderr)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
