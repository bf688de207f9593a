package docmeta

import (
	"fmt"
	"strings"
	"time"
)

const (
	// NotSpecified marks a property whose block exists but which is empty.
	NotSpecified = "Not specified"
	// NotAvailable marks a value whose whole source block is missing.
	NotAvailable = "Not available"
)

const timestampLayout = "2006-01-02 15:04:05"

// valueOr returns s, or def when s is blank.
func valueOr(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// formatDate renders a date property. parse turns the raw string into a
// timestamp; a raw value it cannot parse is shown as is, untrimmed.
func formatDate(raw string, parse func(string) (time.Time, bool)) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return NotAvailable
	}
	if t, ok := parse(trimmed); ok {
		return t.Format(timestampLayout)
	}
	return raw
}

var sizeUnits = []string{"bytes", "KB", "MB", "GB"}

// FormatSize renders n bytes with one decimal in the largest unit that keeps
// the value below 1024, up to GB.
func FormatSize(n int64) string {
	size := float64(n)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", size, sizeUnits[unit])
}
