// Package normalize canonicalizes free-text entity names so that the
// same real-world customer, product or agent resolves to one record
// across imports. The output is the deduplication key used by the
// resolver, so the algorithm here must stay stable.
package normalize

import "strings"

// legalMarkers is the ordered list of legal-form markers stripped from
// entity names. The list is applied as a SINGLE forward pass, once as
// prefixes and once as suffixes: each marker is tested at most once per
// call against the string as modified by earlier markers. A marker
// whose turn has passed is not retried, which is why
// "ООО ЗАО Company" strips fully while "ЗАО ООО Company" keeps "ООО".
// Do not convert this to a loop-until-no-change.
//
// Matching is case-sensitive on purpose: the final lowercasing step
// guarantees Name(Name(x)) == Name(x) only because lowercased output
// can never match a marker again.
var legalMarkers = []string{
	"ООО",
	"ОАО",
	"ЗАО",
	"ПАО",
	"АО",
	"ИП",
	"ТОО",
	"LLC",
	"LLP",
	"LTD",
	"INC",
	"CO",
}

// quotePairs are the wrapping quote characters stripped one layer deep
// when the entire trimmed name is quoted.
var quotePairs = [][2]string{
	{`"`, `"`},
	{`'`, `'`},
	{"«", "»"},
	{"“", "”"}, // typographic double
	{"‘", "’"}, // typographic single
}

// Name maps a raw free-text entity name to its canonical normalized
// form. It is pure, total and idempotent: Name(Name(x)) == Name(x).
// Empty input yields empty output.
func Name(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	s = stripQuotes(s)
	s = stripPrefixMarkers(s)
	s = stripSuffixMarkers(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}

// stripQuotes removes one layer of wrapping quotes if the whole string
// is quoted.
func stripQuotes(s string) string {
	for _, pair := range quotePairs {
		if len(s) > len(pair[0])+len(pair[1]) &&
			strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			return strings.TrimSpace(s[len(pair[0]) : len(s)-len(pair[1])])
		}
	}
	return s
}

// stripPrefixMarkers runs the single forward pass over legalMarkers,
// removing each marker that prefixes the current string.
func stripPrefixMarkers(s string) string {
	for _, marker := range legalMarkers {
		rest, ok := cutMarkerPrefix(s, marker)
		if ok {
			s = rest
		}
	}
	return s
}

// stripSuffixMarkers is the symmetric pass for markers appended after
// the name.
func stripSuffixMarkers(s string) string {
	for _, marker := range legalMarkers {
		rest, ok := cutMarkerSuffix(s, marker)
		if ok {
			s = rest
		}
	}
	return s
}

// cutMarkerPrefix removes marker from the start of s when it is a
// whole leading token, i.e. followed by whitespace or standing alone.
func cutMarkerPrefix(s, marker string) (string, bool) {
	rest, found := strings.CutPrefix(s, marker)
	if !found {
		return s, false
	}
	if rest == "" {
		return "", true
	}
	trimmed := strings.TrimLeft(rest, " \t")
	if trimmed == rest {
		// Marker is embedded in a longer word ("ИПОТЕКА"), not a
		// legal-form token.
		return s, false
	}
	return stripQuotes(trimmed), true
}

// cutMarkerSuffix removes marker from the end of s when it is a whole
// trailing token.
func cutMarkerSuffix(s, marker string) (string, bool) {
	rest, found := strings.CutSuffix(s, marker)
	if !found {
		return s, false
	}
	if rest == "" {
		return "", true
	}
	trimmed := strings.TrimRight(rest, " \t")
	if trimmed == rest {
		return s, false
	}
	return trimmed, true
}
