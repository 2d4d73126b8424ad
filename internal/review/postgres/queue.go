// Package postgres stores review entries in the review_queue table. The full
// entry is kept as JSONB; status and timestamps are mirrored into columns for
// filtering.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"wasterescue/internal/domain"
	"wasterescue/internal/port"
	"wasterescue/internal/result"
)

type reviewQueue struct {
	db *sqlx.DB
}

// NewReviewQueue creates a new PostgreSQL-backed ReviewQueue.
func NewReviewQueue(db *sqlx.DB) port.ReviewQueue {
	return &reviewQueue{db: db}
}

type reviewRow struct {
	DocumentID  string     `db:"document_id"`
	Filename    string     `db:"filename"`
	Status      string     `db:"status"`
	Confidence  float64    `db:"confidence"`
	ProcessedAt time.Time  `db:"processed_at"`
	ReviewedBy  *string    `db:"reviewed_by"`
	ReviewedAt  *time.Time `db:"reviewed_at"`
	Entry       []byte     `db:"entry"`
}

func (r *reviewQueue) Put(ctx context.Context, entry *domain.ReviewEntry) error {
	if entry.DocumentID == "" {
		entry.DocumentID = domain.DocumentID(entry.Filename)
	}
	data, err := result.MarshalEntry(entry)
	if err != nil {
		return err
	}

	var reviewedBy *string
	if entry.ReviewedBy != "" {
		reviewedBy = &entry.ReviewedBy
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO review_queue (document_id, filename, status, confidence, processed_at, reviewed_by, reviewed_at, entry)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (document_id) DO UPDATE SET
		   filename = EXCLUDED.filename,
		   status = EXCLUDED.status,
		   confidence = EXCLUDED.confidence,
		   processed_at = EXCLUDED.processed_at,
		   reviewed_by = EXCLUDED.reviewed_by,
		   reviewed_at = EXCLUDED.reviewed_at,
		   entry = EXCLUDED.entry,
		   updated_at = NOW()`,
		entry.DocumentID, entry.Filename, string(entry.Status), entry.ConfidenceScore,
		entry.ProcessedAt, reviewedBy, entry.ReviewedAt, string(data))
	if err != nil {
		return fmt.Errorf("reviewQueue.Put: %w", err)
	}
	return nil
}

func (r *reviewQueue) Get(ctx context.Context, documentID string) (*domain.ReviewEntry, error) {
	var row reviewRow
	err := r.db.GetContext(ctx, &row,
		`SELECT document_id, filename, status, confidence, processed_at, reviewed_by, reviewed_at, entry
		 FROM review_queue WHERE document_id = $1`, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrReviewNotFound
		}
		return nil, fmt.Errorf("reviewQueue.Get: %w", err)
	}
	return decode(&row)
}

func (r *reviewQueue) List(ctx context.Context, status domain.DocumentStatus) ([]domain.ReviewEntry, error) {
	var rows []reviewRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT document_id, filename, status, confidence, processed_at, reviewed_by, reviewed_at, entry
		 FROM review_queue
		 WHERE $1 = '' OR status = $1
		 ORDER BY processed_at ASC, document_id ASC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("reviewQueue.List: %w", err)
	}

	entries := make([]domain.ReviewEntry, 0, len(rows))
	for i := range rows {
		entry, err := decode(&rows[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// decode prefers the column status over the one embedded in the JSON so a
// manual status fix in the table takes effect.
func decode(row *reviewRow) (*domain.ReviewEntry, error) {
	entry, err := result.UnmarshalEntry(row.Entry)
	if err != nil {
		return nil, fmt.Errorf("reviewQueue: document %s: %w", row.DocumentID, err)
	}
	status, err := domain.ParseDocumentStatus(row.Status)
	if err != nil {
		return nil, fmt.Errorf("reviewQueue: document %s: %w", row.DocumentID, err)
	}
	entry.Status = status
	entry.DocumentID = row.DocumentID
	return entry, nil
}
