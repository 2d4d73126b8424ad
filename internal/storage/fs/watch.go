package fs

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"wasterescue/internal/domain"
)

// Watch signals on trigger whenever a document is created in or written to
// the source collection. Signals are coalesced: a send is skipped while one is
// pending. Watch blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, trigger chan<- struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("storage.fs.Watch: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.SourceDir()); err != nil {
		return fmt.Errorf("storage.fs.Watch: %w", err)
	}
	s.logger.Info("watching for dropped documents", "dir", s.SourceDir())

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isDocumentEvent(ev) {
				continue
			}
			s.logger.Debug("document event", "name", filepath.Base(ev.Name), "op", ev.Op.String())
			select {
			case trigger <- struct{}{}:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watch error", "error", err)
		}
	}
}

func isDocumentEvent(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, metaSuffix) {
		return false
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(base)), ".")
	_, ok := domain.ContentTypes[ext]
	return ok
}
