// Package router answers a request end to end: rank the corpus, assemble
// the winners under the budget, and attach what the chosen persona
// remembered from earlier conversations.
package router

import (
	"context"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillroute/pkg/assembler"
	"github.com/jingkaihe/skillroute/pkg/corpus"
	"github.com/jingkaihe/skillroute/pkg/logger"
	"github.com/jingkaihe/skillroute/pkg/memory"
	"github.com/jingkaihe/skillroute/pkg/selector"
	"github.com/jingkaihe/skillroute/pkg/telemetry"
)

// DefaultMaxChars bounds the payload when no budget is configured
const DefaultMaxChars = 32000

// Source yields the store to serve from. It may change between calls but a
// single request always sees one store.
type Source interface {
	Current() *corpus.Store
}

type staticSource struct {
	store *corpus.Store
}

func (s staticSource) Current() *corpus.Store {
	return s.store
}

// Static serves a fixed store
func Static(store *corpus.Store) Source {
	return staticSource{store: store}
}

// Response is the outcome of one request
type Response struct {
	Query   string
	Results []selector.Result
	// Text is the payload for the downstream model
	Text     string
	Included []string
	Dropped  []string
	// MemoryKey is set when remembered notes were attached
	MemoryKey string
}

// IDs returns the ranked document IDs
func (r *Response) IDs() []string {
	return selector.IDs(r.Results)
}

// Router is safe for concurrent use
type Router struct {
	source    Source
	topK      int
	maxChars  int
	selector  *selector.Selector
	selectOps []selector.Option
	assembler *assembler.Assembler
	memory    memory.Store
}

// Option configures a Router
type Option func(*Router) error

// WithTopK sets how many documents a request may select
func WithTopK(k int) Option {
	return func(r *Router) error {
		if k < 1 {
			return errors.Errorf("top_k must be at least 1, got %d", k)
		}
		r.topK = k
		return nil
	}
}

// WithMaxChars sets the payload budget in characters
func WithMaxChars(n int) Option {
	return func(r *Router) error {
		if n < 0 {
			return errors.Errorf("max_chars must not be negative, got %d", n)
		}
		r.maxChars = n
		return nil
	}
}

// WithMinScore drops weak matches
func WithMinScore(min float64) Option {
	return func(r *Router) error {
		if min < 0 || min > 1 {
			return errors.Errorf("min_score must be within [0,1], got %v", min)
		}
		r.selectOps = append(r.selectOps, selector.WithMinScore(min))
		return nil
	}
}

// WithKinds restricts selection to the given document kinds
func WithKinds(kinds ...corpus.Kind) Option {
	return func(r *Router) error {
		r.selectOps = append(r.selectOps, selector.WithKinds(kinds...))
		return nil
	}
}

// WithMemory attaches the top persona's notes to each payload
func WithMemory(store memory.Store) Option {
	return func(r *Router) error {
		r.memory = store
		return nil
	}
}

// WithAssembler replaces the default assembler
func WithAssembler(a *assembler.Assembler) Option {
	return func(r *Router) error {
		if a == nil {
			return errors.New("assembler must not be nil")
		}
		r.assembler = a
		return nil
	}
}

// New creates a Router over source
func New(source Source, opts ...Option) (*Router, error) {
	if source == nil {
		return nil, errors.New("router needs a document source")
	}

	r := &Router{
		source:    source,
		topK:      selector.DefaultTopK,
		maxChars:  DefaultMaxChars,
		assembler: assembler.New(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, errors.Wrap(err, "failed to apply router option")
		}
	}
	r.selector = selector.New(r.selectOps...)

	return r, nil
}

// Store returns the store the next request would use
func (r *Router) Store() *corpus.Store {
	return r.source.Current()
}

// Select ranks without assembling
func (r *Router) Select(ctx context.Context, query string, topK int) []selector.Result {
	if topK <= 0 {
		topK = r.topK
	}
	results := []selector.Result{}
	_ = telemetry.WithSpan(ctx, "router.select", func(ctx context.Context) error {
		if store := r.source.Current(); store != nil {
			results = r.selector.Select(store, query, topK)
		}
		telemetry.SetAttributes(ctx, attribute.Int("select.results", len(results)))
		return nil
	}, attribute.Int("select.top_k", topK))
	return results
}

// Route selects documents for query and assembles them. An empty selection
// is a valid response with an empty payload.
func (r *Router) Route(ctx context.Context, query string) (*Response, error) {
	start := time.Now()
	resp := &Response{Query: query}

	err := telemetry.WithSpan(ctx, "router.route", func(ctx context.Context) error {
		store := r.source.Current()
		if store == nil {
			return errors.New("no corpus loaded")
		}

		resp.Results = r.selector.Select(store, query, r.topK)

		sections := make([]assembler.Section, 0, len(resp.Results)+1)
		for _, res := range resp.Results {
			sections = append(sections, assembler.Section{ID: res.ID, Text: res.Document.Body})
		}

		if len(resp.Results) > 0 && r.memory != nil {
			key := resp.Results[0].Document.Label()
			section, ok, err := r.memorySection(ctx, key)
			if err != nil {
				return err
			}
			if ok {
				sections = append(sections, section)
				resp.MemoryKey = key
				telemetry.AddEvent(ctx, "memory.attached", attribute.String("memory.key", key))
			}
		}

		asm := r.assembler.Pack(sections, r.maxChars)
		resp.Text = asm.Text
		resp.Included = asm.Included
		resp.Dropped = asm.Dropped
		if resp.MemoryKey != "" && !slices.Contains(asm.Included, memorySectionID(resp.MemoryKey)) {
			resp.MemoryKey = ""
		}
		if len(asm.Dropped) > 0 {
			telemetry.AddEvent(ctx, "sections.dropped", attribute.StringSlice("route.dropped", asm.Dropped))
		}

		telemetry.SetAttributes(ctx,
			attribute.Int("route.results", len(resp.Results)),
			attribute.Int("route.included", len(resp.Included)),
			attribute.Int("route.chars", assembler.Len(resp.Text)),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.G(ctx).WithFields(logrus.Fields{
		"ids":      resp.IDs(),
		"included": resp.Included,
		"dropped":  resp.Dropped,
		"memory":   resp.MemoryKey,
		"elapsed":  time.Since(start),
	}).Debug("Routed request")

	return resp, nil
}

// Assemble packs explicitly chosen documents. References are resolved by
// ID, path or name.
func (r *Router) Assemble(ctx context.Context, refs []string) (*assembler.Assembly, error) {
	var asm *assembler.Assembly
	err := telemetry.WithSpan(ctx, "router.assemble", func(ctx context.Context) error {
		store := r.source.Current()
		if store == nil {
			return errors.New("no corpus loaded")
		}

		ids := make([]string, 0, len(refs))
		for _, ref := range refs {
			doc, err := store.Resolve(ref)
			if err != nil {
				return err
			}
			ids = append(ids, doc.ID)
		}

		var err error
		asm, err = r.assembler.Build(store, ids, r.maxChars)
		return err
	}, attribute.Int("assemble.refs", len(refs)))
	if err != nil {
		return nil, err
	}
	return asm, nil
}

func (r *Router) memorySection(ctx context.Context, key string) (assembler.Section, bool, error) {
	entries, err := r.memory.Read(ctx, key)
	if memory.IsNotFound(err) {
		return assembler.Section{}, false, nil
	}
	if err != nil {
		return assembler.Section{}, false, errors.Wrapf(err, "failed to read memory for %s", key)
	}

	return assembler.Section{
		ID:   memorySectionID(key),
		Text: "# Memory: " + key + "\n\n" + memory.Text(entries),
	}, true, nil
}

func memorySectionID(key string) string {
	return "memory:" + key
}
