package trigger

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Tokenize folds s to a canonical form and splits it into tokens. Letters,
// digits, '+' and '#' are token runes, so "c++", "c#" and "e2e" survive intact.
func Tokenize(s string) []string {
	folded := cases.Fold().String(norm.NFKC.String(s))

	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !isTokenRune(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		f = strings.TrimLeft(f, "+#")
		if f == "" {
			continue
		}
		tokens = append(tokens, stem(f))
	}
	return tokens
}

// Normalize returns the tokens of s joined by single spaces
func Normalize(s string) string {
	return strings.Join(Tokenize(s), " ")
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#'
}

// stem folds the common plural forms so "tests" and "test" compare equal
func stem(token string) string {
	runes := []rune(token)
	n := len(runes)
	if n <= 3 || runes[n-1] != 's' {
		return token
	}
	switch {
	case strings.HasSuffix(token, "ss"), strings.HasSuffix(token, "us"), strings.HasSuffix(token, "is"):
		return token
	case strings.HasSuffix(token, "sses"):
		return string(runes[:n-2])
	case strings.HasSuffix(token, "ies") && n > 4:
		return string(runes[:n-3]) + "y"
	default:
		return string(runes[:n-1])
	}
}
