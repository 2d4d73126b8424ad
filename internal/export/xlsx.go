package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"wasterescue/internal/domain"
)

const (
	rowsSheet   = "Rows"
	issuesSheet = "Issues"
)

var issueColumns = []string{"Document", "Row", "Field", "Type", "Message"}

// WriteXLSX writes a workbook with a Rows sheet and an Issues sheet.
func WriteXLSX(dst io.Writer, results ...*domain.ExtractionResult) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", rowsSheet); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	if _, err := f.NewSheet(issuesSheet); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}

	if err := setRow(f, rowsSheet, 1, toAny(titles())); err != nil {
		return err
	}
	if err := setRow(f, issuesSheet, 1, toAny(issueColumns)); err != nil {
		return err
	}

	rowLine, issueLine := 2, 2
	for _, res := range results {
		for i := range res.Rows {
			values := make([]any, len(rowColumns))
			for j, col := range rowColumns {
				values[j] = col.value(res.Filename, i, &res.Rows[i])
			}
			if err := setRow(f, rowsSheet, rowLine, values); err != nil {
				return err
			}
			rowLine++
		}
		for _, iss := range res.Issues {
			values := []any{res.Filename, iss.RowIndex, iss.Field, string(iss.Severity), iss.Message}
			if err := setRow(f, issuesSheet, issueLine, values); err != nil {
				return err
			}
			issueLine++
		}
	}

	if err := f.Write(dst); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, line int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, line)
	if err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
