package export

import (
	"strings"
	"time"
)

const maxFilenameLen = 100

func safeRune(r rune) bool {
	return r == '-' || r == '_' ||
		('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
}

// SanitizeFilename keeps ASCII letters, digits, '-' and '_'. Every other run
// of characters becomes a single '_'. The result is trimmed of '_' and capped
// at 100 bytes.
func SanitizeFilename(name string) string {
	var sb strings.Builder
	underscore := false
	for _, r := range name {
		if !safeRune(r) {
			r = '_'
		}
		if r == '_' {
			if underscore {
				continue
			}
			underscore = true
		} else {
			underscore = false
		}
		sb.WriteRune(r)
	}
	s := strings.Trim(sb.String(), "_")
	if len(s) > maxFilenameLen {
		s = s[:maxFilenameLen]
	}
	return s
}

// BuildFilename returns "<sanitized name>_<YYYY-MM-DD>.<ext>", falling back
// to "export" when nothing of the name survives.
func BuildFilename(documentName, ext string, now time.Time) string {
	base := SanitizeFilename(documentName)
	if base == "" {
		base = "export"
	}
	return base + "_" + now.Format(time.DateOnly) + "." + ext
}
