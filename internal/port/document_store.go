package port

import (
	"context"
	"io"

	"wasterescue/internal/domain"
)

// DocumentStore abstracts the object storage holding documents the upstream
// pipeline could not process. Implementations must tolerate concurrent callers
// operating on different documents.
type DocumentStore interface {
	// ListPending returns documents eligible for a batch, in listing order.
	ListPending(ctx context.Context) ([]domain.DocumentRecord, error)
	// MarkProcessing writes a processing marker without removing the document.
	MarkProcessing(ctx context.Context, name, batchID string) error
	// Download writes the document content to dst. Returns domain.ErrNotFound if absent.
	Download(ctx context.Context, name string, dst io.Writer) error
	// Upload writes body to target in the given collection; an empty collection
	// selects the processed collection.
	Upload(ctx context.Context, body io.Reader, target, collection string) error
	// Delete removes the document (and its marker) from the source collection.
	Delete(ctx context.Context, name string) error
	// SetMetadata replaces the document's metadata.
	SetMetadata(ctx context.Context, name string, metadata map[string]string) error
}
