// Package assembler concatenates selected document bodies into a single
// payload under a character budget. A body is either included whole or not
// at all.
package assembler

import (
	"strings"
	"unicode/utf8"

	"github.com/jingkaihe/skillroute/pkg/corpus"
)

// DefaultSeparator sits between consecutive sections
const DefaultSeparator = "\n\n---\n\n"

// Lookup resolves document IDs. *corpus.Store implements it.
type Lookup interface {
	Get(id string) (*corpus.Document, error)
}

// Section is one unit of the payload
type Section struct {
	ID   string
	Text string
}

// Assembly is the payload plus what went into it
type Assembly struct {
	Text     string
	Included []string
	Dropped  []string
}

// Assembler packs sections under a budget
type Assembler struct {
	separator string
	headers   bool
}

// Option configures an Assembler
type Option func(*Assembler)

// WithSeparator replaces DefaultSeparator
func WithSeparator(sep string) Option {
	return func(a *Assembler) {
		a.separator = sep
	}
}

// WithHeaders prefixes each section with an HTML comment naming its ID.
// Headers count against the budget.
func WithHeaders(enabled bool) Option {
	return func(a *Assembler) {
		a.headers = enabled
	}
}

// New creates an Assembler
func New(opts ...Option) *Assembler {
	a := &Assembler{separator: DefaultSeparator}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble joins the bodies of ids, in order, within maxChars characters
func Assemble(lookup Lookup, ids []string, maxChars int) (string, error) {
	asm, err := New().Build(lookup, ids, maxChars)
	if err != nil {
		return "", err
	}
	return asm.Text, nil
}

// Build resolves ids through lookup and packs their bodies. Every ID must
// exist, even one that would be dropped; the first unknown ID is returned as
// a *corpus.NotFoundError. Repeated IDs are used once.
func (a *Assembler) Build(lookup Lookup, ids []string, maxChars int) (*Assembly, error) {
	sections := make([]Section, 0, len(ids))
	seen := make(map[string]bool, len(ids))

	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		doc, err := lookup.Get(id)
		if err != nil {
			return nil, err
		}
		sections = append(sections, Section{ID: doc.ID, Text: doc.Body})
	}

	return a.Pack(sections, maxChars), nil
}

// Pack joins sections in order while the total stays within maxChars
// characters, separators included. The first section that does not fit is
// dropped together with every section after it.
func (a *Assembler) Pack(sections []Section, maxChars int) *Assembly {
	asm := &Assembly{Included: []string{}, Dropped: []string{}}

	var (
		buf  strings.Builder
		used int
		sep  = utf8.RuneCountInString(a.separator)
	)

	for i, s := range sections {
		text := a.render(s)
		cost := utf8.RuneCountInString(text)
		if len(asm.Included) > 0 {
			cost += sep
		}

		if used+cost > maxChars {
			for _, rest := range sections[i:] {
				asm.Dropped = append(asm.Dropped, rest.ID)
			}
			break
		}

		if len(asm.Included) > 0 {
			buf.WriteString(a.separator)
		}
		buf.WriteString(text)
		used += cost
		asm.Included = append(asm.Included, s.ID)
	}

	asm.Text = buf.String()
	return asm
}

func (a *Assembler) render(s Section) string {
	if !a.headers {
		return s.Text
	}
	return "<!-- " + s.ID + " -->\n" + s.Text
}

// Len returns the size of text in the unit budgets are expressed in
func Len(text string) int {
	return utf8.RuneCountInString(text)
}
