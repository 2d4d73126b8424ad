package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wasterescue/internal/domain"
)

var (
	batchSize    int
	pollInterval time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process one batch of pending documents",
	RunE:  runBatch,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process batches continuously until interrupted",
	RunE:  runContinuous,
}

func init() {
	batchCmd.Flags().IntVar(&batchSize, "size", 0, "maximum documents per batch (default from config)")
	runCmd.Flags().IntVar(&batchSize, "size", 0, "maximum documents per batch (default from config)")
	runCmd.Flags().DurationVar(&pollInterval, "interval", 0, "pause between batches (default from config)")
	rootCmd.AddCommand(batchCmd, runCmd)
}

func runBatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	size := batchSize
	if size <= 0 {
		size = a.Config.Queue.BatchSize
	}

	report, err := a.Orchestrator.RunBatch(ctx, size)
	if errors.Is(err, domain.ErrNoDocuments) {
		cmd.Println("No failed documents to process.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if report.Status == domain.BatchStatusError {
		return fmt.Errorf("all %d documents failed", len(report.Failed))
	}
	return nil
}

func runContinuous(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	size := batchSize
	if size <= 0 {
		size = a.Config.Queue.BatchSize
	}
	interval := pollInterval
	if interval <= 0 {
		interval = a.Config.Queue.PollInterval()
	}

	a.StartRunner(ctx).RunForever(ctx, interval, size)
	return nil
}
