// Package fs keeps review entries as "<document_id>_extraction.json" files in
// a single directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"wasterescue/internal/domain"
	"wasterescue/internal/logging"
	"wasterescue/internal/result"
)

const fileSuffix = "_extraction.json"

// Queue implements port.ReviewQueue on the local filesystem.
type Queue struct {
	dir    string
	mu     sync.RWMutex
	logger *slog.Logger
}

// New creates dir if needed.
func New(dir string, logger *slog.Logger) (*Queue, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("review.fs.New: %w", err)
	}
	return &Queue{dir: dir, logger: logging.OrDefault(logger).With("component", "review.fs")}, nil
}

func (q *Queue) path(documentID string) string {
	return filepath.Join(q.dir, domain.DocumentID(documentID)+fileSuffix)
}

func (q *Queue) Put(_ context.Context, entry *domain.ReviewEntry) error {
	if entry.DocumentID == "" {
		entry.DocumentID = domain.DocumentID(entry.Filename)
	}
	data, err := result.MarshalEntry(entry)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	tmp, err := os.CreateTemp(q.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("review.fs.Put: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("review.fs.Put: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("review.fs.Put: %w", err)
	}
	if err := os.Rename(tmpName, q.path(entry.DocumentID)); err != nil {
		return fmt.Errorf("review.fs.Put: %w", err)
	}
	return nil
}

func (q *Queue) Get(_ context.Context, documentID string) (*domain.ReviewEntry, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	data, err := os.ReadFile(q.path(documentID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrReviewNotFound
		}
		return nil, fmt.Errorf("review.fs.Get: %w", err)
	}
	entry, err := result.UnmarshalEntry(data)
	if err != nil {
		return nil, fmt.Errorf("review.fs.Get %s: %w", documentID, err)
	}
	return entry, nil
}

// List skips files that fail to parse, logging each one.
func (q *Queue) List(ctx context.Context, status domain.DocumentStatus) ([]domain.ReviewEntry, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	dirEntries, err := os.ReadDir(q.dir)
	if err != nil {
		return nil, fmt.Errorf("review.fs.List: %w", err)
	}

	entries := []domain.ReviewEntry{}
	for _, de := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if de.IsDir() || !strings.HasSuffix(de.Name(), fileSuffix) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(q.dir, de.Name()))
		if err != nil {
			q.logger.Warn("unreadable review file", "file", de.Name(), "error", err)
			continue
		}
		entry, err := result.UnmarshalEntry(data)
		if err != nil {
			q.logger.Warn("invalid review file", "file", de.Name(), "error", err)
			continue
		}
		if status != "" && entry.Status != status {
			continue
		}
		entries = append(entries, *entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].ProcessedAt.Equal(entries[j].ProcessedAt) {
			return entries[i].DocumentID < entries[j].DocumentID
		}
		return entries[i].ProcessedAt.Before(entries[j].ProcessedAt)
	})
	return entries, nil
}
