// Package export renders reviewed rows as CSV or XLSX downloads.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"wasterescue/internal/domain"
)

// BOM makes Excel on Windows read the CSV as UTF-8.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// column is one export column. text renders the CSV cell; cell renders the
// XLSX value and may return nil for an empty cell.
type column struct {
	title string
	text  func(filename string, idx int, row *domain.CleanedRow) string
	cell  func(filename string, idx int, row *domain.CleanedRow) any
}

var rowColumns = []column{
	{
		title: "Document",
		text:  func(f string, _ int, _ *domain.CleanedRow) string { return f },
	},
	{
		title: "Row",
		text:  func(_ string, i int, _ *domain.CleanedRow) string { return strconv.Itoa(i + 1) },
		cell:  func(_ string, i int, _ *domain.CleanedRow) any { return i + 1 },
	},
	{
		title: "Weight (kg)",
		text: func(_ string, _ int, r *domain.CleanedRow) string {
			if r.WeightKg == nil {
				return ""
			}
			return strconv.FormatFloat(*r.WeightKg, 'f', 2, 64)
		},
		cell: func(_ string, _ int, r *domain.CleanedRow) any {
			if r.WeightKg == nil {
				return nil
			}
			return *r.WeightKg
		},
	},
	{
		title: "Address",
		text: func(_ string, _ int, r *domain.CleanedRow) string {
			if r.Address == nil {
				return ""
			}
			return *r.Address
		},
	},
	{
		title: "Waste Type",
		text:  func(_ string, _ int, r *domain.CleanedRow) string { return r.WasteType },
	},
	{
		title: "Date",
		text:  func(_ string, _ int, r *domain.CleanedRow) string { return r.Date },
	},
	{
		title: "Hazardous",
		text:  func(_ string, _ int, r *domain.CleanedRow) string { return yesNo(r.Hazardous) },
	},
	{
		title: "Confidence",
		text: func(_ string, _ int, r *domain.CleanedRow) string {
			return strconv.FormatFloat(r.Confidence, 'f', 2, 64)
		},
		cell: func(_ string, _ int, r *domain.CleanedRow) any { return r.Confidence },
	},
}

func (c column) value(filename string, idx int, row *domain.CleanedRow) any {
	if c.cell != nil {
		return c.cell(filename, idx, row)
	}
	return c.text(filename, idx, row)
}

func titles() []string {
	out := make([]string, len(rowColumns))
	for i, c := range rowColumns {
		out[i] = c.title
	}
	return out
}

// WriteCSV writes a BOM, the header and one line per cleaned row of every
// result.
func WriteCSV(dst io.Writer, results ...*domain.ExtractionResult) error {
	if _, err := dst.Write(BOM); err != nil {
		return err
	}
	w := csv.NewWriter(dst)
	if err := w.Write(titles()); err != nil {
		return err
	}

	record := make([]string, len(rowColumns))
	for _, res := range results {
		for i := range res.Rows {
			for j, col := range rowColumns {
				record[j] = col.text(res.Filename, i, &res.Rows[i])
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
