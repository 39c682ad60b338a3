package corpus

import (
	"context"
	"io/fs"
	"os"
	"path"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/jingkaihe/skillroute/pkg/logger"
	"github.com/jingkaihe/skillroute/pkg/telemetry"
)

// DefaultInclude selects Markdown files anywhere under the root
var DefaultInclude = []string{"**/*.md", "**/*.markdown"}

// DefaultExclude skips VCS metadata and vendored packages
var DefaultExclude = []string{".git/**", "**/.git/**", "**/node_modules/**"}

type loadOptions struct {
	include []string
	exclude []string
	workers int
}

// Option configures a load
type Option func(*loadOptions) error

// WithInclude replaces the include patterns. Patterns use doublestar syntax
// and are matched case-insensitively against corpus-relative paths.
func WithInclude(patterns ...string) Option {
	return func(o *loadOptions) error {
		if len(patterns) == 0 {
			return errors.New("at least one include pattern must be specified")
		}
		for _, p := range patterns {
			if !doublestar.ValidatePattern(p) {
				return errors.Errorf("invalid include pattern %q", p)
			}
		}
		o.include = patterns
		return nil
	}
}

// WithExclude replaces the exclude patterns
func WithExclude(patterns ...string) Option {
	return func(o *loadOptions) error {
		for _, p := range patterns {
			if !doublestar.ValidatePattern(p) {
				return errors.Errorf("invalid exclude pattern %q", p)
			}
		}
		o.exclude = patterns
		return nil
	}
}

// WithWorkers bounds the number of files parsed concurrently
func WithWorkers(n int) Option {
	return func(o *loadOptions) error {
		if n < 1 {
			return errors.Errorf("workers must be at least 1, got %d", n)
		}
		o.workers = n
		return nil
	}
}

// Load walks root once and parses every matching Markdown file. Any
// malformed file or duplicate ID fails the whole load; no partial store is
// returned.
func Load(ctx context.Context, root string, opts ...Option) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat corpus root %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("corpus root %s is not a directory", root)
	}

	logger.G(ctx).WithField("root", root).Debug("Loading corpus")
	return LoadFS(ctx, os.DirFS(root), opts...)
}

// LoadFS is Load over any file system, such as an embed.FS
func LoadFS(ctx context.Context, fsys fs.FS, opts ...Option) (*Store, error) {
	o := &loadOptions{
		include: DefaultInclude,
		exclude: DefaultExclude,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errors.Wrap(err, "failed to apply corpus option")
		}
	}

	var store *Store
	err := telemetry.WithSpan(ctx, "corpus.load", func(ctx context.Context) error {
		paths, others, err := o.collect(fsys)
		if err != nil {
			return err
		}

		docs, err := parseAll(ctx, fsys, paths, o.workers)
		if err != nil {
			return err
		}
		attachResources(docs, others)

		store, err = New(docs...)
		if err != nil {
			return err
		}

		telemetry.SetAttributes(ctx, attribute.Int("corpus.documents", store.Len()))
		logger.G(ctx).WithField("documents", store.Len()).Debug("Corpus loaded")
		return nil
	})
	if err != nil {
		return nil, err
	}

	return store, nil
}

// collect returns the matching document paths and the remaining,
// non-excluded files, both in lexical order
func (o *loadOptions) collect(fsys fs.FS) (docs, others []string, err error) {
	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}

		lower := strings.ToLower(p)
		if d.IsDir() {
			if o.excluded(lower) || o.excluded(lower+"/") {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		if o.excluded(lower) {
			return nil
		}

		if o.included(lower) {
			docs = append(docs, p)
		} else {
			others = append(others, p)
		}
		return nil
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to walk corpus")
	}

	return docs, others, nil
}

// attachResources hands each non-document file to the closest enclosing
// directory-style skill (a SKILL.md below the corpus root). Files outside
// any skill directory are ignored.
func attachResources(docs []*Document, files []string) {
	skillDirs := make(map[string]*Document)
	for _, doc := range docs {
		if !strings.EqualFold(path.Base(doc.Path), skillFileName) {
			continue
		}
		if dir := path.Dir(doc.Path); dir != "." {
			skillDirs[dir] = doc
		}
	}
	if len(skillDirs) == 0 {
		return
	}

	for _, f := range files {
		for dir := path.Dir(f); dir != "."; dir = path.Dir(dir) {
			if doc, ok := skillDirs[dir]; ok {
				doc.Resources = append(doc.Resources, f)
				break
			}
		}
	}
}

func (o *loadOptions) included(p string) bool {
	return matchAny(o.include, p)
}

func (o *loadOptions) excluded(p string) bool {
	return matchAny(o.exclude, p)
}

func matchAny(patterns []string, p string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(strings.ToLower(pattern), p); ok {
			return true
		}
	}
	return false
}

// parseAll reads and parses files concurrently. Results keep the order of
// paths; every failure is reported, not only the first.
func parseAll(ctx context.Context, fsys fs.FS, paths []string, workers int) ([]*Document, error) {
	docs := make([]*Document, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			content, err := fs.ReadFile(fsys, p)
			if err != nil {
				errs[i] = errors.Wrapf(err, "failed to read %s", p)
				return nil
			}

			doc, err := ParseDocument(path.Clean(p), string(content))
			if err != nil {
				errs[i] = err
				return nil
			}
			docs[i] = doc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "corpus load cancelled")
	}

	var result *multierror.Error
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		logger.G(ctx).WithField("failures", result.Len()).Debug("Corpus has invalid documents")
		return nil, err
	}

	return docs, nil
}
