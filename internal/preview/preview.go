// Package preview decodes source documents into the plain text handed to
// row extraction.
package preview

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"wasterescue/internal/domain"
	"wasterescue/internal/logging"
)

const (
	// MaxPDFPages bounds how much of a PDF is read.
	MaxPDFPages = 10
	// MaxSheetRows bounds the data rows read from the first sheet of a workbook.
	MaxSheetRows = 50
)

// ErrNoText is returned when a supported document yields no text at all.
var ErrNoText = errors.New("no text content in document")

// Decoder turns document bytes into text.
type Decoder struct {
	logger *slog.Logger
}

// NewDecoder creates a Decoder.
func NewDecoder(logger *slog.Logger) *Decoder {
	return &Decoder{logger: logging.OrDefault(logger).With("component", "preview")}
}

// Text decodes data according to the extension of name. Unknown extensions
// return domain.ErrUnsupportedFileType.
func (d *Decoder) Text(name string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".pdf":
		text, err = d.pdfText(data)
	case ".xlsx":
		text, err = d.sheetCSV(data)
	case ".csv", ".txt":
		text = string(data)
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFileType, ext)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

func (d *Decoder) pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	pages := reader.NumPage()
	if pages > MaxPDFPages {
		pages = MaxPDFPages
	}

	texts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			d.logger.Warn("null page encountered", "page", i)
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		texts = append(texts, text)
	}

	d.logger.Debug("pdf decoded", "pages_read", pages, "total_pages", reader.NumPage())
	return strings.Join(texts, "\n"), nil
}

// sheetCSV renders the header and the first MaxSheetRows rows of the first
// sheet as CSV.
func (d *Decoder) sheetCSV(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return "", fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) > MaxSheetRows+1 {
		rows = rows[:MaxSheetRows+1]
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("write csv preview: %w", err)
	}

	d.logger.Debug("workbook decoded", "sheet", sheet, "rows", len(rows))
	return buf.String(), nil
}
