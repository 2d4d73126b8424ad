package extraction

import (
	"bytes"
	"encoding/json"
	"regexp"

	"wasterescue/internal/domain"
)

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// ParseRows reads the JSON array of rows out of a model reply. The reply may
// wrap the array in prose or code fences. Anything unparsable yields an empty
// slice; non-object array elements are dropped.
func ParseRows(text string) []domain.RawRow {
	candidate := jsonArrayPattern.FindString(text)
	if candidate == "" {
		candidate = text
	}

	var items []json.RawMessage
	dec := json.NewDecoder(bytes.NewReader([]byte(candidate)))
	dec.UseNumber()
	if err := dec.Decode(&items); err != nil {
		return []domain.RawRow{}
	}

	rows := make([]domain.RawRow, 0, len(items))
	for _, item := range items {
		var row map[string]any
		d := json.NewDecoder(bytes.NewReader(item))
		d.UseNumber()
		if err := d.Decode(&row); err != nil || row == nil {
			continue
		}
		rows = append(rows, domain.RawRow(row))
	}
	return rows
}
