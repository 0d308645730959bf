package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics strips combining marks ("Jiří" -> "Jiri").
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// NormalizeName folds a display name for searching: no diacritics, lowercase,
// dashes and underscores as spaces, whitespace collapsed.
func NormalizeName(name string) string {
	name = strings.ToLower(foldDiacritics(name))
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}

// NameMatches reports whether every word of query is a prefix of some word in name.
// An empty query matches everything.
func NameMatches(name, query string) bool {
	queryWords := strings.Fields(NormalizeName(query))
	if len(queryWords) == 0 {
		return true
	}
	nameWords := strings.Fields(NormalizeName(name))

	for _, q := range queryWords {
		found := false
		for _, w := range nameWords {
			if strings.HasPrefix(w, q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
