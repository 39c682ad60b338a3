package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillroute/pkg/presenter"
	"github.com/jingkaihe/skillroute/pkg/router"
)

type RouteConfig struct {
	TopK     int
	MaxChars int
}

func NewRouteConfig() *RouteConfig {
	return &RouteConfig{
		TopK:     0,
		MaxChars: -1,
	}
}

var routeCmd = &cobra.Command{
	Use:   "route <query>",
	Short: "Select documents for a query and print the assembled context",
	Long: `Select the best documents for a query and print them as one payload that fits
the character budget. The selection summary is written to stderr so the payload
can be piped.

Examples:
  skillroute route "write playwright tests for the login page" > context.md
  skillroute route --top-k 2 --max-chars 8000 "plan the database migration"`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getRouteConfigFromFlags(cmd)
		exitOnError(runRouteCmd(cmd.Context(), strings.Join(args, " "), config), "failed to route query")
	},
}

func init() {
	defaults := NewRouteConfig()
	routeCmd.Flags().IntP("top-k", "k", defaults.TopK, "Maximum number of documents to include (0 uses select.top_k)")
	routeCmd.Flags().Int("max-chars", defaults.MaxChars, "Payload budget in characters (negative uses assemble.max_chars)")
}

func getRouteConfigFromFlags(cmd *cobra.Command) *RouteConfig {
	config := NewRouteConfig()
	if topK, err := cmd.Flags().GetInt("top-k"); err == nil {
		config.TopK = topK
	}
	if maxChars, err := cmd.Flags().GetInt("max-chars"); err == nil {
		config.MaxChars = maxChars
	}
	return config
}

// options converts the flags that were set into router overrides
func (c *RouteConfig) options() []router.Option {
	var opts []router.Option
	if c.TopK > 0 {
		opts = append(opts, router.WithTopK(c.TopK))
	}
	if c.MaxChars >= 0 {
		opts = append(opts, router.WithMaxChars(c.MaxChars))
	}
	return opts
}

// runRouteCmd returns its errors so the memory store is closed on every path
func runRouteCmd(ctx context.Context, query string, config *RouteConfig) error {
	cfg := mustConfig()
	store := mustLoadCorpus(ctx, cfg)

	mem := mustOpenMemory(ctx, cfg)
	if mem != nil {
		defer mem.Close()
	}

	r, err := newRouter(cfg, router.Static(store), mem, config.options()...)
	if err != nil {
		return err
	}
	resp, err := r.Route(ctx, query)
	if err != nil {
		return err
	}

	reportResponse(resp)
	fmt.Print(resp.Text)
	if resp.Text != "" && !strings.HasSuffix(resp.Text, "\n") {
		fmt.Println()
	}
	return nil
}

// reportResponse summarises a response on stderr
func reportResponse(resp *router.Response) {
	if len(resp.Results) == 0 {
		presenter.Warning("no documents matched")
		return
	}
	presenter.Success("selected " + strings.Join(resp.IDs(), ", "))
	if len(resp.Dropped) > 0 {
		presenter.Warning("dropped to fit the budget: " + strings.Join(resp.Dropped, ", "))
	}
	if resp.MemoryKey != "" {
		presenter.Success("attached memory for " + resp.MemoryKey)
	}
}
