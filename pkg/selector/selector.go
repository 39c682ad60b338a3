// Package selector ranks corpus documents against a query and keeps the
// best few. Ranking is deterministic: equal scores are ordered by ID.
package selector

import (
	"sort"

	"github.com/jingkaihe/skillroute/pkg/corpus"
	"github.com/jingkaihe/skillroute/pkg/trigger"
)

// DefaultTopK is used when the caller asks for zero or fewer results
const DefaultTopK = 1

// Source lists the documents to rank, in load order. *corpus.Store
// implements it.
type Source interface {
	All() []*corpus.Document
}

// Result is one ranked document
type Result struct {
	ID       string
	Score    float64
	Document *corpus.Document
	Match    trigger.Match
}

// Selector ranks with optional filters
type Selector struct {
	minScore float64
	kinds    map[corpus.Kind]bool
}

// Option configures a Selector
type Option func(*Selector)

// WithMinScore drops results scoring below min. Zero scores are always
// dropped.
func WithMinScore(min float64) Option {
	return func(s *Selector) {
		s.minScore = min
	}
}

// WithKinds only ranks documents of the given kinds
func WithKinds(kinds ...corpus.Kind) Option {
	return func(s *Selector) {
		if len(kinds) == 0 {
			s.kinds = nil
			return
		}
		s.kinds = make(map[corpus.Kind]bool, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = true
		}
	}
}

// New creates a Selector
func New(opts ...Option) *Selector {
	s := &Selector{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select ranks every document of source against query and returns at most
// topK results, best first. An empty result means no automatic match.
func Select(source Source, query string, topK int) []Result {
	return New().Select(source, query, topK)
}

// Select is the filtered form of the package-level Select
func (s *Selector) Select(source Source, query string, topK int) []Result {
	if topK <= 0 {
		topK = DefaultTopK
	}

	q := trigger.NewQuery(query)
	if q.Empty() || source == nil {
		return []Result{}
	}

	results := []Result{}
	for _, doc := range source.All() {
		if !doc.Rankable() {
			continue
		}
		if s.kinds != nil && !s.kinds[doc.Kind] {
			continue
		}

		m := trigger.Explain(doc.Triggers, q)
		if m.Score == 0 || m.Score < s.minScore {
			continue
		}
		results = append(results, Result{ID: doc.ID, Score: m.Score, Document: doc, Match: m})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// IDs returns the document IDs of results in order
func IDs(results []Result) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}
