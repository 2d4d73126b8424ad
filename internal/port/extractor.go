package port

import (
	"context"

	"wasterescue/internal/domain"
)

// ExtractInput carries the decoded document preview handed to extraction.
type ExtractInput struct {
	Filename    string
	ContentType string
	Text        string
	Language    string
}

// RowExtractor turns a document preview into raw rows. Unparsable model output
// yields an empty slice and a nil error; transport failures return an error.
type RowExtractor interface {
	Extract(ctx context.Context, input ExtractInput) ([]domain.RawRow, error)
}
