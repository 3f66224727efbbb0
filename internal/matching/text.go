package matching

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// legalStopwords are tokens that carry no identity when comparing supplier
// names (legal forms, articles). Keyword search drops them.
var legalStopwords = map[string]struct{}{
	"SA": {}, "S.A": {}, "S.A.": {}, "SRL": {}, "S.R.L": {}, "S.R.L.": {},
	"LTDA": {}, "CIA": {}, "CORP": {}, "INC": {},
	"SOCIEDAD": {}, "ANONIMA": {}, "LIMITADA": {},
	"DE": {}, "LA": {}, "EL": {}, "Y": {}, "LOS": {}, "LAS": {}, "DEL": {},
}

// NormalizeTaxNumber strips every non-alphanumeric rune and uppercases the
// rest, so "1234567-8" and "12345678" compare equal.
func NormalizeTaxNumber(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// CleanName performs minimal name normalization: uppercase, collapse
// whitespace, drop symbols. Legal suffixes (SRL, LTDA, ...) are kept; only
// keyword tokenization removes them.
func CleanName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '.' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Similarity computes a normalized edit-distance ratio between two strings
// after CleanName normalization. Word order is ignored (token-sort), so
// "Distribuidora ABC" and "ABC Distribuidora" score close to 1.0.
func Similarity(a, b string) float64 {
	a, b = CleanName(a), CleanName(b)
	if a == "" || b == "" {
		return 0
	}
	plain := ratio(a, b)
	sorted := ratio(tokenSort(a), tokenSort(b))
	if sorted > plain {
		return sorted
	}
	return plain
}

func ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(dist)/float64(longest)
}

func tokenSort(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// SignificantTokens extracts the words worth searching for: cleaned,
// length >= 3 and not a legal stopword.
func SignificantTokens(name string) []string {
	var tokens []string
	for _, tok := range strings.Fields(CleanName(name)) {
		tok = strings.Trim(tok, ".-")
		if len(tok) < 3 {
			continue
		}
		if _, stop := legalStopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}
