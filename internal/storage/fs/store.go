// Package fs is a filesystem-backed DocumentStore for local runs and tests.
// Each collection is a directory under the base dir; document metadata lives in
// a "<name>.meta" JSON sidecar next to the document.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"wasterescue/internal/domain"
	"wasterescue/internal/logging"
)

const metaSuffix = ".meta"

// Config configures a Store.
type Config struct {
	BaseDir   string
	Source    string // collection holding unprocessed documents
	Processed string // default upload collection
	Processor string // written into processing markers
	DirPerm   os.FileMode
	FilePerm  os.FileMode
}

// Store implements port.DocumentStore on the local filesystem.
type Store struct {
	base      string
	source    string
	processed string
	processor string
	dirPerm   os.FileMode
	filePerm  os.FileMode
	logger    *slog.Logger
	now       func() time.Time
}

// New creates the source and processed collection directories if needed.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	s := &Store{
		base:      cfg.BaseDir,
		source:    cfg.Source,
		processed: cfg.Processed,
		processor: cfg.Processor,
		dirPerm:   cfg.DirPerm,
		filePerm:  cfg.FilePerm,
		logger:    logging.OrDefault(logger).With("component", "storage.fs"),
		now:       func() time.Time { return time.Now().UTC() },
	}
	if s.source == "" {
		s.source = "failed-files"
	}
	if s.processed == "" {
		s.processed = "processed-files"
	}
	if s.dirPerm == 0 {
		s.dirPerm = 0o755
	}
	if s.filePerm == 0 {
		s.filePerm = 0o644
	}

	for _, dir := range []string{s.SourceDir(), s.collectionDir(s.processed)} {
		if err := os.MkdirAll(dir, s.dirPerm); err != nil {
			return nil, fmt.Errorf("storage.fs.New: %w", err)
		}
	}
	s.logger.Info("filesystem store ready", "base_dir", s.base)
	return s, nil
}

// SourceDir is the directory documents are dropped into.
func (s *Store) SourceDir() string {
	return s.collectionDir(s.source)
}

func (s *Store) collectionDir(collection string) string {
	return filepath.Join(s.base, collection)
}

// sourcePath resolves a document name inside the source collection. Names
// must be plain file names.
func (s *Store) sourcePath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid document name %q", name)
	}
	return filepath.Join(s.SourceDir(), name), nil
}

func (s *Store) ListPending(ctx context.Context) ([]domain.DocumentRecord, error) {
	entries, err := os.ReadDir(s.SourceDir())
	if err != nil {
		return nil, fmt.Errorf("storage.fs.ListPending: %w", err)
	}

	var records []domain.DocumentRecord
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || strings.HasSuffix(e.Name(), metaSuffix) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("storage.fs.ListPending: %w", err)
		}

		meta, err := s.readMeta(e.Name())
		if err != nil {
			s.logger.Warn("unreadable metadata, skipping document", "name", e.Name(), "error", err)
			continue
		}
		status, err := domain.ParseDocumentStatus(meta[domain.MetaStatus])
		if err != nil {
			s.logger.Warn("unknown status, skipping document", "name", e.Name(), "error", err)
			continue
		}
		if !status.Fetchable() {
			continue
		}

		records = append(records, domain.DocumentRecord{
			Name:        e.Name(),
			Size:        info.Size(),
			CreatedAt:   info.ModTime().UTC(),
			ModifiedAt:  info.ModTime().UTC(),
			ContentType: domain.ContentTypeFor(e.Name()),
			Status:      status,
			Metadata:    meta,
		})
	}

	// Arrival order; ties broken by name.
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].ModifiedAt.Equal(records[j].ModifiedAt) {
			return records[i].Name < records[j].Name
		}
		return records[i].ModifiedAt.Before(records[j].ModifiedAt)
	})
	return records, nil
}

func (s *Store) MarkProcessing(ctx context.Context, name, batchID string) error {
	meta := map[string]string{
		domain.MetaStatus:    string(domain.DocumentStatusProcessing),
		domain.MetaProcessor: s.processor,
		domain.MetaTimestamp: s.now().Format(time.RFC3339Nano),
	}
	if batchID != "" {
		meta[domain.MetaBatchID] = batchID
	}
	if err := s.SetMetadata(ctx, name, meta); err != nil {
		return fmt.Errorf("storage.fs.MarkProcessing: %w", err)
	}
	return nil
}

func (s *Store) Download(_ context.Context, name string, dst io.Writer) error {
	path, err := s.sourcePath(name)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("storage.fs.Download %s: %w", name, domain.ErrNotFound)
		}
		return fmt.Errorf("storage.fs.Download: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("storage.fs.Download: %w", err)
	}
	return nil
}

func (s *Store) Upload(_ context.Context, body io.Reader, target, collection string) error {
	if collection == "" {
		collection = s.processed
	}
	dir := s.collectionDir(collection)
	path := filepath.Join(dir, filepath.FromSlash(target))
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("storage.fs.Upload: invalid target %q", target)
	}
	if err := os.MkdirAll(filepath.Dir(path), s.dirPerm); err != nil {
		return fmt.Errorf("storage.fs.Upload: %w", err)
	}
	if err := s.writeAtomic(path, body); err != nil {
		return fmt.Errorf("storage.fs.Upload: %w", err)
	}
	s.logger.Info("uploaded", "target", target, "collection", collection)
	return nil
}

func (s *Store) Delete(_ context.Context, name string) error {
	path, err := s.sourcePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("storage.fs.Delete %s: %w", name, domain.ErrNotFound)
		}
		return fmt.Errorf("storage.fs.Delete: %w", err)
	}
	if err := os.Remove(path + metaSuffix); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage.fs.Delete: metadata: %w", err)
	}
	s.logger.Info("deleted from source", "name", name)
	return nil
}

func (s *Store) SetMetadata(_ context.Context, name string, metadata map[string]string) error {
	path, err := s.sourcePath(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("storage.fs.SetMetadata %s: %w", name, domain.ErrNotFound)
		}
		return fmt.Errorf("storage.fs.SetMetadata: %w", err)
	}

	data, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("storage.fs.SetMetadata: %w", err)
	}
	if err := s.writeAtomic(path+metaSuffix, strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("storage.fs.SetMetadata: %w", err)
	}
	return nil
}

// Metadata returns the sidecar metadata of a source document, empty if none.
func (s *Store) Metadata(name string) (map[string]string, error) {
	if _, err := s.sourcePath(name); err != nil {
		return nil, err
	}
	return s.readMeta(name)
}

func (s *Store) readMeta(name string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(s.SourceDir(), name+metaSuffix))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	meta := map[string]string{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// writeAtomic writes through a temp file in the same directory and renames it
// into place so readers never see partial content.
func (s *Store) writeAtomic(path string, body io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, s.filePerm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
