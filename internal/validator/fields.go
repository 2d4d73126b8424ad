package validator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"wasterescue/internal/domain"
)

// stringField reads a key as text. Numbers are rendered without exponent so
// "2500" stays "2500".
func stringField(row domain.RawRow, key string) string {
	switch v := row[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func boolField(row domain.RawRow, key string) bool {
	switch v := row[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false
		}
		return b
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return false
	}
}

func floatField(row domain.RawRow, key string, def float64) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return def
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return def
		}
		return f
	default:
		return def
	}
}
