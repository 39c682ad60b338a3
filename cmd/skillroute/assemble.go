package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillroute/pkg/presenter"
	"github.com/jingkaihe/skillroute/pkg/router"
)

type AssembleConfig struct {
	MaxChars int
}

func NewAssembleConfig() *AssembleConfig {
	return &AssembleConfig{
		MaxChars: -1,
	}
}

var assembleCmd = &cobra.Command{
	Use:   "assemble <id|path|name>...",
	Short: "Concatenate documents into one payload",
	Long: `Concatenate the named documents, in the given order, into one payload that fits
the character budget. Documents that do not fit are dropped together with
everything after them.

Examples:
  skillroute assemble qa-engineer qa/api-testing/skill
  skillroute assemble --max-chars 4000 personas/architect.md`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getAssembleConfigFromFlags(cmd)
		runAssembleCmd(cmd.Context(), args, config)
	},
}

func init() {
	defaults := NewAssembleConfig()
	assembleCmd.Flags().Int("max-chars", defaults.MaxChars, "Payload budget in characters (negative uses assemble.max_chars)")
}

func getAssembleConfigFromFlags(cmd *cobra.Command) *AssembleConfig {
	config := NewAssembleConfig()
	if maxChars, err := cmd.Flags().GetInt("max-chars"); err == nil {
		config.MaxChars = maxChars
	}
	return config
}

func runAssembleCmd(ctx context.Context, refs []string, config *AssembleConfig) {
	cfg := mustConfig()
	store := mustLoadCorpus(ctx, cfg)

	var opts []router.Option
	if config.MaxChars >= 0 {
		opts = append(opts, router.WithMaxChars(config.MaxChars))
	}
	r := mustRouter(cfg, router.Static(store), nil, opts...)

	assembly, err := r.Assemble(ctx, refs)
	if err != nil {
		presenter.Error(err, "failed to assemble documents")
		os.Exit(1)
	}

	if len(assembly.Dropped) > 0 {
		presenter.Warning("dropped to fit the budget: " + strings.Join(assembly.Dropped, ", "))
	}
	fmt.Print(assembly.Text)
	if assembly.Text != "" && !strings.HasSuffix(assembly.Text, "\n") {
		fmt.Println()
	}
}
