package main

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillroute/pkg/logger"
	"github.com/jingkaihe/skillroute/pkg/mcpserver"
	"github.com/jingkaihe/skillroute/pkg/memory"
	"github.com/jingkaihe/skillroute/pkg/reload"
	"github.com/jingkaihe/skillroute/pkg/router"
)

type MCPConfig struct {
	Watch bool
}

func NewMCPConfig() *MCPConfig {
	return &MCPConfig{
		Watch: true,
	}
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve document routing as MCP tools over stdio",
	Long: `Start an MCP (Model Context Protocol) server on stdin/stdout exposing
select_documents, assemble_context, get_document and list_documents, plus
memory_read and memory_append when a memory backend is configured.

The corpus is reloaded when its files change unless --watch=false is given.
Nothing but protocol messages is written to stdout; logs go to stderr.`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getMCPConfigFromFlags(cmd)
		exitOnError(runMCPCmd(cmd.Context(), config), "MCP server stopped")
	},
}

func init() {
	defaults := NewMCPConfig()
	mcpCmd.Flags().Bool("watch", defaults.Watch, "Reload the corpus when its files change")
}

func getMCPConfigFromFlags(cmd *cobra.Command) *MCPConfig {
	config := NewMCPConfig()
	if watch, err := cmd.Flags().GetBool("watch"); err == nil {
		config.Watch = watch
	}
	return config
}

// runMCPCmd returns its errors so the watcher and memory store are closed
// on every path
func runMCPCmd(ctx context.Context, config *MCPConfig) error {
	cfg := mustConfig()

	var source router.Source
	if config.Watch {
		w, err := reload.New(ctx, cfg.Corpus.Root, cfg.ReloadOptions()...)
		if err != nil {
			return errors.Wrap(err, "failed to load corpus")
		}
		defer w.Close()
		go logReloads(ctx, w)
		source = w
	} else {
		source = router.Static(mustLoadCorpus(ctx, cfg))
	}

	mem, err := memory.Open(ctx, cfg.Memory.Backend, cfg.Memory.Path)
	if err != nil {
		return errors.Wrap(err, "failed to open memory store")
	}
	opts := []mcpserver.Option{mcpserver.WithRouterOptions(cfg.RouterOptions()...)}
	if mem != nil {
		defer mem.Close()
		opts = append(opts, mcpserver.WithMemory(mem))
	}

	s, err := mcpserver.New(source, opts...)
	if err != nil {
		return errors.Wrap(err, "failed to create MCP server")
	}

	logger.G(ctx).WithField("root", cfg.Corpus.Root).WithField("documents", source.Current().Len()).Info("Serving MCP over stdio")
	return server.ServeStdio(s)
}

func logReloads(ctx context.Context, w *reload.Watcher) {
	for ev := range w.Reloads() {
		if ev.Err != nil {
			logger.G(ctx).WithError(ev.Err).Warn("Corpus reload failed, serving the previous version")
			continue
		}
		logger.G(ctx).WithField("documents", ev.Store.Len()).Info("Corpus reloaded")
	}
}
