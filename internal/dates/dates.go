// Package dates parses the date strings that OCR and LLM extraction hand us.
// The same bill can arrive as "2023-12-22", "12/22/2023" or "December 22,
// 2023" depending on which document produced it, so parsing has to be
// tolerant rather than format-pinned.
package dates

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Parse parses a date string in ISO, US, EU or natural-language form.
// Ambiguous numeric dates (12/06/2023) resolve month-first, matching the
// upstream extraction pipeline's convention.
func Parse(s string) (time.Time, error) {
	return dateparse.ParseAny(strings.TrimSpace(s))
}

// DaysBetween returns the number of whole days from a to b, negative when b
// precedes a. Time-of-day components are discarded so that two timestamps on
// the same calendar day are zero days apart.
func DaysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
