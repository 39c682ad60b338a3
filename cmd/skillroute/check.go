package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillroute/pkg/config"
	"github.com/jingkaihe/skillroute/pkg/corpus"
	"github.com/jingkaihe/skillroute/pkg/logger"
	"github.com/jingkaihe/skillroute/pkg/presenter"
	"github.com/jingkaihe/skillroute/pkg/reload"
)

type CheckConfig struct {
	Watch bool
}

func NewCheckConfig() *CheckConfig {
	return &CheckConfig{
		Watch: false,
	}
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate every document in the corpus",
	Long: `Load the corpus and report malformed metadata and duplicate document IDs.
With --watch the corpus is checked again whenever a file changes.

Examples:
  skillroute check -C ./agents
  skillroute check --watch`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getCheckConfigFromFlags(cmd)
		runCheckCmd(cmd.Context(), config)
	},
}

func init() {
	defaults := NewCheckConfig()
	checkCmd.Flags().BoolP("watch", "w", defaults.Watch, "Keep running and check again on every change")
}

func getCheckConfigFromFlags(cmd *cobra.Command) *CheckConfig {
	config := NewCheckConfig()
	if watch, err := cmd.Flags().GetBool("watch"); err == nil {
		config.Watch = watch
	}
	return config
}

func runCheckCmd(ctx context.Context, config *CheckConfig) {
	cfg := mustConfig()

	if !config.Watch {
		store, err := corpus.Load(ctx, cfg.Corpus.Root, cfg.CorpusOptions()...)
		if err != nil {
			reportLoadError(err)
			os.Exit(1)
		}
		reportStore(store)
		return
	}

	if err := watchCorpus(ctx, cfg); err != nil {
		reportLoadError(err)
		os.Exit(1)
	}
}

func watchCorpus(ctx context.Context, cfg config.Config) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	w, err := reload.New(ctx, cfg.Corpus.Root, cfg.ReloadOptions()...)
	if err != nil {
		return err
	}
	defer w.Close()

	reportStore(w.Current())
	presenter.Info(fmt.Sprintf("Watching %s for changes. Press Ctrl+C to stop.", cfg.Corpus.Root))

	for {
		select {
		case <-ctx.Done():
			logger.G(ctx).Debug("Stopped watching corpus")
			return nil
		case ev, ok := <-w.Reloads():
			if !ok {
				return nil
			}
			if ev.Err != nil {
				reportLoadError(ev.Err)
				presenter.Warning("keeping the previous corpus")
				continue
			}
			reportStore(ev.Store)
		}
	}
}

func reportStore(store *corpus.Store) {
	counts := map[corpus.Kind]int{}
	for _, doc := range store.All() {
		counts[doc.Kind]++
	}
	presenter.Success(fmt.Sprintf("%d documents OK (%d personas, %d skills, %d references)",
		store.Len(), counts[corpus.KindPersona], counts[corpus.KindSkill], counts[corpus.KindReference]))
}

// reportLoadError prints each aggregated failure on its own line
func reportLoadError(err error) {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			presenter.Error(e, "invalid document")
		}
		return
	}
	presenter.Error(err, "failed to load corpus")
}
