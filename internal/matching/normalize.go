package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// normalize folds case, applies NFKC, treats hyphens and underscores as spaces
// and collapses any run of Unicode whitespace into a single space.
func normalize(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	// Casers keep state, so a fresh one is used per call.
	s = cases.Fold().String(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == '_' || r == '‐' || r == '–':
			return ' '
		case unicode.IsSpace(r):
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// splitPhrases splits free text on list separators and normalizes every piece.
func splitPhrases(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ',', ';', '|', '/', '\n', '\r', '•':
			return true
		}
		return false
	})

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if n := normalize(part); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// words returns the alphanumeric words of an already normalized phrase.
func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '+' && r != '#'
	})
}

var stopWords = map[string]struct{}{
	"and": {}, "the": {}, "for": {}, "with": {}, "of": {}, "in": {}, "at": {},
	"to": {}, "a": {}, "an": {}, "or": {}, "on": {}, "senior": {}, "junior": {},
	"lead": {}, "head": {}, "team": {}, "position": {}, "job": {},
}

// significantWords drops stop words, seniority markers and one-letter tokens.
func significantWords(s string) []string {
	all := words(normalize(s))
	out := all[:0]
	for _, w := range all {
		if len([]rune(w)) < 2 {
			continue
		}
		if _, skip := stopWords[w]; skip {
			continue
		}
		out = append(out, w)
	}
	return out
}

type termSet map[string]struct{}

func (s termSet) add(terms ...string) {
	for _, t := range terms {
		if t != "" {
			s[t] = struct{}{}
		}
	}
}

func (s termSet) has(term string) bool {
	_, ok := s[term]
	return ok
}

// containsPhrase reports whether the normalized phrase occurs in text on word boundaries.
func containsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}
