package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"wasterescue/internal/domain"
	"wasterescue/internal/export"
	"wasterescue/internal/service"
)

var (
	reviewStatus string
	reviewer     string
	rowsFile     string
	rejectReason string
	exportFormat string
	exportOut    string
)

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "List review queue entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Reviews.List(cmd.Context(), domain.DocumentStatus(reviewStatus))
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			cmd.Println("No review entries.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DOCUMENT\tSTATUS\tROWS\tCONFIDENCE\tPROCESSED")
		for i := range entries {
			e := &entries[i]
			fmt.Fprintf(w, "%s\t%s\t%d/%d\t%.2f\t%s\n",
				e.DocumentID, e.Status, e.ValidRows, e.TotalRows, e.ConfidenceScore,
				e.ProcessedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve <document-id>",
	Short: "Approve a pending review and deliver its result",
	Long: `Approve a pending review and deliver its result.

Document locks are per process. Do not approve from the CLI while a server
runner is processing the same store; use the HTTP API of that server instead.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := &service.ApproveInput{DocumentID: args[0], ReviewedBy: reviewer}
		if rowsFile != "" {
			data, err := os.ReadFile(rowsFile)
			if err != nil {
				return fmt.Errorf("reading rows: %w", err)
			}
			if err := json.Unmarshal(data, &input.Rows); err != nil {
				return fmt.Errorf("parsing rows: %w", err)
			}
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.Reviews.Approve(cmd.Context(), input)
		if err != nil {
			return err
		}
		cmd.Printf("approved %s (%d valid rows)\n", entry.DocumentID, entry.ValidRows)
		return nil
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <document-id>",
	Short: "Reject a pending review",
	Long: `Reject a pending review, leaving the source document in place.

Document locks are per process. Do not reject from the CLI while a server
runner is processing the same store; use the HTTP API of that server instead.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.Reviews.Reject(cmd.Context(), &service.RejectInput{
			DocumentID: args[0],
			ReviewedBy: reviewer,
			Reason:     rejectReason,
		})
		if err != nil {
			return err
		}
		cmd.Printf("rejected %s: %s\n", entry.DocumentID, entry.RejectionReason)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <document-id>",
	Short: "Export a review entry's rows as CSV or XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(exportFormat)
		if format != "csv" && format != "xlsx" {
			return fmt.Errorf("unsupported format %q: use csv or xlsx", exportFormat)
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.Reviews.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := exportOut
		if out == "" {
			base := strings.TrimSuffix(entry.Filename, filepath.Ext(entry.Filename))
			out = export.BuildFilename(base, format, time.Now())
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if format == "xlsx" {
			err = export.WriteXLSX(f, &entry.ExtractionResult)
		} else {
			err = export.WriteCSV(f, &entry.ExtractionResult)
		}
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		cmd.Printf("wrote %s\n", out)
		return nil
	},
}

func init() {
	reviewsCmd.Flags().StringVar(&reviewStatus, "status", "", "filter by status (pending_review, approved, rejected)")

	for _, c := range []*cobra.Command{approveCmd, rejectCmd} {
		c.Flags().StringVar(&reviewer, "by", "", "reviewer name")
		_ = c.MarkFlagRequired("by")
	}
	approveCmd.Flags().StringVar(&rowsFile, "rows", "", "JSON file with edited rows replacing the extracted ones")
	rejectCmd.Flags().StringVar(&rejectReason, "reason", "", "rejection reason")

	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv or xlsx")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path (default derived from the document name)")

	rootCmd.AddCommand(reviewsCmd, approveCmd, rejectCmd, exportCmd)
}
