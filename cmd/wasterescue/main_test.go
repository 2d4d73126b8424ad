package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wasterescue/internal/app"
	"wasterescue/internal/auth"
	"wasterescue/internal/config"
	"wasterescue/internal/domain"
	"wasterescue/internal/result"
)

// useTempApp points the commands at filesystem backends under a temp dir.
func useTempApp(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("WASTERESCUE_STORE_BASE_DIR", filepath.Join(dir, "storage"))
	t.Setenv("WASTERESCUE_REVIEW_DIR", filepath.Join(dir, "reviews"))
	t.Setenv("WASTERESCUE_JWT_SECRET", "cli-test-secret")
	cfg, err := config.Load()
	require.NoError(t, err)

	original := newApp
	newApp = func(ctx context.Context) (*app.App, error) {
		return app.New(ctx, cfg, nil)
	}
	t.Cleanup(func() { newApp = original })
	return cfg
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestSeedCmd_CreatesSampleDocuments(t *testing.T) {
	cfg := useTempApp(t)

	out, err := execute(t, "seed", "a.pdf", "b.xlsx")
	require.NoError(t, err)
	assert.Contains(t, out, "2 document(s) seeded")

	entries, err := os.ReadDir(filepath.Join(cfg.Store.BaseDir, cfg.Store.SourceBucket))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "a.pdf")
	assert.Contains(t, names, "b.xlsx")
}

func TestBatchCmd_NoDocuments(t *testing.T) {
	useTempApp(t)

	out, err := execute(t, "batch")
	require.NoError(t, err)
	assert.Contains(t, out, "No failed documents to process.")
}

func TestReviewsCmd_Empty(t *testing.T) {
	useTempApp(t)

	out, err := execute(t, "reviews")
	require.NoError(t, err)
	assert.Contains(t, out, "No review entries.")
}

func TestReviewsCmd_InvalidStatus(t *testing.T) {
	useTempApp(t)

	_, err := execute(t, "reviews", "--status", "lost")
	assert.Error(t, err)
	reviewStatus = ""
}

func TestRejectCmd_FlowAndListing(t *testing.T) {
	cfg := useTempApp(t)
	_, err := execute(t, "seed", "report.pdf")
	require.NoError(t, err)

	// Queue a pending entry and mark the document as the orchestrator would.
	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	entry := &domain.ReviewEntry{
		ExtractionResult: *result.Build(result.BuildInput{Filename: "report.pdf", ProcessedAt: time.Now().UTC()}),
		Status:           domain.DocumentStatusPendingReview,
	}
	require.NoError(t, a.Queue.Put(context.Background(), entry))
	require.NoError(t, a.Store.SetMetadata(context.Background(), "report.pdf",
		map[string]string{domain.MetaStatus: string(domain.DocumentStatusPendingReview)}))

	out, err := execute(t, "reviews", "--status", "pending_review")
	require.NoError(t, err)
	assert.Contains(t, out, "report.pdf")
	reviewStatus = ""

	out, err = execute(t, "reject", "report.pdf", "--by", "anna", "--reason", "Blurry scan")
	require.NoError(t, err)
	assert.Contains(t, out, "rejected report.pdf: Blurry scan")

	_, err = execute(t, "reject", "report.pdf", "--by", "anna")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	rejectReason = ""
}

func TestApproveCmd_RequiresReviewer(t *testing.T) {
	useTempApp(t)
	reviewer = ""

	_, err := execute(t, "approve", "report.pdf")
	assert.Error(t, err)
}

func TestApproveCmd_UnknownDocument(t *testing.T) {
	useTempApp(t)

	_, err := execute(t, "approve", "missing.pdf", "--by", "anna")
	assert.ErrorIs(t, err, domain.ErrReviewNotFound)
	reviewer = ""
}

func TestTokenCmd_IssuesValidToken(t *testing.T) {
	cfg := useTempApp(t)

	out, err := execute(t, "token", "anna")
	require.NoError(t, err)

	token := strings.TrimSpace(strings.SplitN(out, "\n", 2)[0])
	claims, err := auth.NewTokens(cfg.JWT).Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "anna", claims.Reviewer())
}

func TestExportCmd_InvalidFormat(t *testing.T) {
	useTempApp(t)

	_, err := execute(t, "export", "report.pdf", "--format", "pdf")
	assert.Error(t, err)
	exportFormat = "csv"
}
