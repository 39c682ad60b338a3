// Package trigger scores how well a user request matches a document's
// description. Descriptions name their triggers as quoted phrases
// ("playwright", "e2e test"); every other meaningful word is a keyword.
// Scoring is a pure function of the description and the request.
package trigger

import (
	"strings"
	"unicode/utf8"
)

// KeywordWeight is the weight of full keyword coverage relative to one
// matched phrase, once at least one phrase matched
const KeywordWeight = 0.5

const (
	// phraseFloor is the lowest score of a description with a matched phrase
	phraseFloor = 0.5
	// KeywordOnlyWeight scales keyword coverage when no phrase matched. It is
	// below phraseFloor so keyword overlap alone never reaches a phrase match,
	// in this description or any other.
	KeywordOnlyWeight = 0.4
)

const minKeywordRunes = 2

// quotePairs lists the opening and closing runes that delimit a trigger phrase
var quotePairs = map[rune]rune{
	'"': '"',
	'“': '”',
	'`': '`',
}

// Set holds the normalized trigger phrases and keywords of one description
type Set struct {
	Phrases  []string
	Keywords []string
}

// Empty reports whether nothing in the set can ever match
func (s Set) Empty() bool {
	return len(s.Phrases) == 0 && len(s.Keywords) == 0
}

// Extract derives the trigger set of a description
func Extract(description string) Set {
	var set Set

	seen := make(map[string]bool)
	for _, raw := range quotedPhrases(description) {
		phrase := Normalize(raw)
		if phrase == "" || seen[phrase] {
			continue
		}
		seen[phrase] = true
		set.Phrases = append(set.Phrases, phrase)
	}

	seenKeyword := make(map[string]bool)
	for _, token := range Tokenize(description) {
		if utf8.RuneCountInString(token) < minKeywordRunes || isStopword(token) || seenKeyword[token] {
			continue
		}
		seenKeyword[token] = true
		set.Keywords = append(set.Keywords, token)
	}

	return set
}

// quotedPhrases returns the raw text between matching quote runes. An
// unclosed quote contributes nothing.
func quotedPhrases(s string) []string {
	var phrases []string

	var closing rune
	start := -1
	for i, r := range s {
		if start >= 0 {
			if r == closing {
				phrases = append(phrases, s[start:i])
				start = -1
			}
			continue
		}
		if c, ok := quotePairs[r]; ok {
			closing = c
			start = i + utf8.RuneLen(r)
		}
	}

	return phrases
}

// Query is a normalized user request. Build it once per request and score it
// against every document.
type Query struct {
	padded string
	tokens map[string]bool
}

// NewQuery normalizes a raw user request
func NewQuery(text string) Query {
	tokens := Tokenize(text)
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return Query{
		padded: " " + strings.Join(tokens, " ") + " ",
		tokens: set,
	}
}

// Empty reports whether the query has no tokens
func (q Query) Empty() bool {
	return len(q.tokens) == 0
}

// ContainsPhrase reports whether a normalized phrase occurs in the query on
// token boundaries
func (q Query) ContainsPhrase(phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(q.padded, " "+phrase+" ")
}

// HasToken reports whether the query contains the normalized token
func (q Query) HasToken(token string) bool {
	return q.tokens[token]
}

// Match is the detail behind a score
type Match struct {
	Phrases  []string
	Keywords []string
	Score    float64
}

// Score returns the relevance of set to q in [0, 1]. With P phrases of which
// m occur in the query and a fraction k of keywords present:
//
//	m >= 1: score = 0.5 + 0.5 * (m + KeywordWeight*k) / (P + KeywordWeight)
//	m == 0: score = KeywordOnlyWeight * k
//
// Any phrase match therefore ranks above any keyword-only match. Nothing
// matched scores exactly 0.
func Score(set Set, q Query) float64 {
	return Explain(set, q).Score
}

// Explain scores set against q and reports which phrases and keywords matched
func Explain(set Set, q Query) Match {
	var m Match
	if set.Empty() || q.Empty() {
		return m
	}

	for _, phrase := range set.Phrases {
		if q.ContainsPhrase(phrase) {
			m.Phrases = append(m.Phrases, phrase)
		}
	}
	for _, keyword := range set.Keywords {
		if q.HasToken(keyword) {
			m.Keywords = append(m.Keywords, keyword)
		}
	}

	if len(m.Phrases) == 0 && len(m.Keywords) == 0 {
		return m
	}

	var coverage float64
	if len(set.Keywords) > 0 {
		coverage = float64(len(m.Keywords)) / float64(len(set.Keywords))
	}

	if len(m.Phrases) == 0 {
		m.Score = KeywordOnlyWeight * coverage
		return m
	}

	ratio := (float64(len(m.Phrases)) + KeywordWeight*coverage) / (float64(len(set.Phrases)) + KeywordWeight)
	m.Score = phraseFloor + (1-phraseFloor)*ratio
	if m.Score > 1 {
		m.Score = 1
	}
	return m
}
