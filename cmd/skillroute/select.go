package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillroute/pkg/presenter"
	"github.com/jingkaihe/skillroute/pkg/router"
	"github.com/jingkaihe/skillroute/pkg/selector"
)

type SelectConfig struct {
	TopK  int
	Kinds string
	IDs   bool
}

func NewSelectConfig() *SelectConfig {
	return &SelectConfig{
		TopK:  0,
		Kinds: "",
		IDs:   false,
	}
}

var selectCmd = &cobra.Command{
	Use:   "select <query>",
	Short: "Rank documents against a query",
	Long: `Rank the corpus against a query and print the best matches with their scores.

Examples:
  skillroute select "write playwright tests for the login page"
  skillroute select --top-k 3 --kind skill "review this pull request"
  skillroute select --ids "debug a flaky test"`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getSelectConfigFromFlags(cmd)
		runSelectCmd(cmd.Context(), strings.Join(args, " "), config)
	},
}

func init() {
	defaults := NewSelectConfig()
	selectCmd.Flags().IntP("top-k", "k", defaults.TopK, "Maximum number of documents to return (0 uses select.top_k)")
	selectCmd.Flags().String("kind", defaults.Kinds, "Comma-separated document kinds to consider (persona, skill, reference)")
	selectCmd.Flags().Bool("ids", defaults.IDs, "Print only the selected IDs, one per line")
}

func getSelectConfigFromFlags(cmd *cobra.Command) *SelectConfig {
	config := NewSelectConfig()
	if topK, err := cmd.Flags().GetInt("top-k"); err == nil {
		config.TopK = topK
	}
	if kinds, err := cmd.Flags().GetString("kind"); err == nil {
		config.Kinds = kinds
	}
	if ids, err := cmd.Flags().GetBool("ids"); err == nil {
		config.IDs = ids
	}
	return config
}

func runSelectCmd(ctx context.Context, query string, config *SelectConfig) {
	cfg := mustConfig()

	kinds, err := parseKinds(config.Kinds)
	if err != nil {
		presenter.Error(err, "invalid --kind")
		os.Exit(1)
	}

	store := mustLoadCorpus(ctx, cfg)
	r := mustRouter(cfg, router.Static(store), nil, router.WithKinds(kinds...))

	results := r.Select(ctx, query, config.TopK)
	if config.IDs {
		for _, id := range selector.IDs(results) {
			fmt.Println(id)
		}
		return
	}

	presenter.Scores(scoreRows(results))
}

// scoreRows turns results into presenter rows whose detail explains the match
func scoreRows(results []selector.Result) []presenter.ScoreRow {
	rows := make([]presenter.ScoreRow, 0, len(results))
	for _, res := range results {
		var detail []string
		if res.Document != nil && res.Document.Name != "" {
			detail = append(detail, "name="+res.Document.Name)
		}
		if len(res.Match.Phrases) > 0 {
			detail = append(detail, "phrases="+strings.Join(res.Match.Phrases, ","))
		}
		if len(res.Match.Keywords) > 0 {
			detail = append(detail, "keywords="+strings.Join(res.Match.Keywords, ","))
		}
		rows = append(rows, presenter.ScoreRow{
			ID:     res.ID,
			Score:  res.Score,
			Detail: strings.Join(detail, " "),
		})
	}
	return rows
}
