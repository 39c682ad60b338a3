package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillroute/pkg/corpus"
	"github.com/jingkaihe/skillroute/pkg/presenter"
)

type ListConfig struct {
	Match  string
	Kinds  string
	Format string
}

func NewListConfig() *ListConfig {
	return &ListConfig{
		Match:  "",
		Kinds:  "",
		Format: "table",
	}
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the documents in the corpus",
	Long: `List every document with its ID, kind and name.

Examples:
  skillroute list
  skillroute list --match "qa/**" --format json
  skillroute list --kind persona --format yaml`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getListConfigFromFlags(cmd)
		runListCmd(cmd.Context(), config)
	},
}

func init() {
	defaults := NewListConfig()
	listCmd.Flags().String("match", defaults.Match, "Glob over document IDs, e.g. \"qa-*\" or \"**/skill\"")
	listCmd.Flags().String("kind", defaults.Kinds, "Comma-separated document kinds to list (persona, skill, reference)")
	listCmd.Flags().StringP("format", "o", defaults.Format, "Output format (table, json, yaml)")
}

func getListConfigFromFlags(cmd *cobra.Command) *ListConfig {
	config := NewListConfig()
	if match, err := cmd.Flags().GetString("match"); err == nil {
		config.Match = match
	}
	if kinds, err := cmd.Flags().GetString("kind"); err == nil {
		config.Kinds = kinds
	}
	if format, err := cmd.Flags().GetString("format"); err == nil {
		config.Format = format
	}
	return config
}

func runListCmd(ctx context.Context, config *ListConfig) {
	cfg := mustConfig()

	kinds, err := parseKinds(config.Kinds)
	if err != nil {
		presenter.Error(err, "invalid --kind")
		os.Exit(1)
	}

	store := mustLoadCorpus(ctx, cfg)
	docs, err := filterDocuments(store, config.Match, kinds)
	if err != nil {
		presenter.Error(err, "invalid --match")
		os.Exit(1)
	}

	if err := renderDocuments(os.Stdout, docs, config.Format); err != nil {
		presenter.Error(err, "failed to render documents")
		os.Exit(1)
	}
}

// filterDocuments applies the ID glob, then the kind filter
func filterDocuments(store *corpus.Store, match string, kinds []corpus.Kind) ([]*corpus.Document, error) {
	docs, err := store.Match(match)
	if err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		return docs, nil
	}

	var out []*corpus.Document
	for _, doc := range docs {
		for _, k := range kinds {
			if doc.Kind == k {
				out = append(out, doc)
				break
			}
		}
	}
	return out, nil
}

type documentSummary struct {
	ID           string   `json:"id" yaml:"id"`
	Kind         string   `json:"kind" yaml:"kind"`
	Name         string   `json:"name,omitempty" yaml:"name,omitempty"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	Model        string   `json:"model,omitempty" yaml:"model,omitempty"`
	AllowedTools []string `json:"allowedTools,omitempty" yaml:"allowed-tools,omitempty"`
	Path         string   `json:"path" yaml:"path"`
	Resources    []string `json:"resources,omitempty" yaml:"resources,omitempty"`
}

func summarize(docs []*corpus.Document) []documentSummary {
	out := make([]documentSummary, 0, len(docs))
	for _, doc := range docs {
		out = append(out, documentSummary{
			ID:           doc.ID,
			Kind:         string(doc.Kind),
			Name:         doc.Name,
			Description:  doc.Description,
			Model:        doc.Model,
			AllowedTools: doc.AllowedTools,
			Path:         doc.Path,
			Resources:    doc.Resources,
		})
	}
	return out
}

func renderDocuments(w io.Writer, docs []*corpus.Document, format string) error {
	switch format {
	case "", "table":
		if len(docs) == 0 {
			fmt.Fprintln(w, "No documents found.")
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tKIND\tNAME\tMODEL")
		for _, doc := range docs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", doc.ID, doc.Kind, dash(doc.Name), dash(doc.Model))
		}
		return tw.Flush()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(summarize(docs)), "failed to encode documents")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(summarize(docs)); err != nil {
			return errors.Wrap(err, "failed to encode documents")
		}
		return errors.Wrap(enc.Close(), "failed to encode documents")
	default:
		return errors.Errorf("unknown format %q (want table, json or yaml)", format)
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
