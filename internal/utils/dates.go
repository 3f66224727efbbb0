package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateLayouts lists the input formats the OCR step is known to produce.
// Order matters: day-first layouts are tried before month-first ones because
// the invoices are Bolivian.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02/01/2006 15:04",
	"01/02/2006",
	"02-01-2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
}

// NormalizeDate converts any supported date string to the canonical
// YYYY-MM-DD form. Inputs that already carry a time component keep only the
// date part.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty date")
	}

	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}

	return "", fmt.Errorf("unparseable date: %q", s)
}

// ParseODataDate decodes the legacy OData "/Date(1698710400000)/" epoch
// format SAP returns on V2 services, falling back to NormalizeDate for
// plain strings.
func ParseODataDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "/Date(") {
		raw := strings.TrimSuffix(strings.TrimPrefix(s, "/Date("), ")/")
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid OData date %q: %w", s, err)
		}
		return time.UnixMilli(ms).UTC().Format("2006-01-02"), nil
	}
	return NormalizeDate(s)
}

// CleanAmount strips currency decoration (symbols, thousands separators)
// from an OCR-extracted amount and parses it.
func CleanAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	for _, tok := range []string{",", "Bs", "BOB", "$", "USD"} {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	return strconv.ParseFloat(s, 64)
}
