package main

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillroute/pkg/config"
	"github.com/jingkaihe/skillroute/pkg/corpus"
	"github.com/jingkaihe/skillroute/pkg/memory"
	"github.com/jingkaihe/skillroute/pkg/presenter"
	"github.com/jingkaihe/skillroute/pkg/router"
)

// mustConfig decodes the settings or exits
func mustConfig() config.Config {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		presenter.Error(err, "invalid configuration")
		os.Exit(1)
	}
	return cfg
}

// exitOnError reports err and exits. Runners return errors instead of
// exiting so their deferred Close calls run first.
func exitOnError(err error, msg string) {
	if err == nil {
		return
	}
	presenter.Error(err, msg)
	os.Exit(1)
}

// mustLoadCorpus loads the configured corpus root or exits
func mustLoadCorpus(ctx context.Context, cfg config.Config) *corpus.Store {
	store, err := corpus.Load(ctx, cfg.Corpus.Root, cfg.CorpusOptions()...)
	if err != nil {
		presenter.Error(err, "failed to load corpus")
		os.Exit(1)
	}
	return store
}

// mustOpenMemory opens the configured memory backend. The result is nil
// when memory is disabled.
func mustOpenMemory(ctx context.Context, cfg config.Config) memory.Store {
	store, err := memory.Open(ctx, cfg.Memory.Backend, cfg.Memory.Path)
	if err != nil {
		presenter.Error(err, "failed to open memory store")
		os.Exit(1)
	}
	return store
}

// newRouter builds a router over source with the configured options
// followed by extra, so extra wins
func newRouter(cfg config.Config, source router.Source, mem memory.Store, extra ...router.Option) (*router.Router, error) {
	opts := cfg.RouterOptions()
	if mem != nil {
		opts = append(opts, router.WithMemory(mem))
	}
	opts = append(opts, extra...)

	r, err := router.New(source, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create router")
	}
	return r, nil
}

// mustRouter is newRouter for commands that hold nothing open yet
func mustRouter(cfg config.Config, source router.Source, mem memory.Store, extra ...router.Option) *router.Router {
	r, err := newRouter(cfg, source, mem, extra...)
	if err != nil {
		presenter.Error(err, "invalid router settings")
		os.Exit(1)
	}
	return r
}

// parseKinds reads a comma-separated kind filter such as "persona,skill"
func parseKinds(raw string) ([]corpus.Kind, error) {
	var kinds []corpus.Kind
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		switch k := corpus.Kind(part); k {
		case corpus.KindPersona, corpus.KindSkill, corpus.KindReference:
			kinds = append(kinds, k)
		default:
			return nil, errors.Errorf("unknown document kind %q (want persona, skill or reference)", part)
		}
	}
	return kinds, nil
}
