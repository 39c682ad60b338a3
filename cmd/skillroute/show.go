package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jingkaihe/skillroute/pkg/corpus"
	"github.com/jingkaihe/skillroute/pkg/frontmatter"
	"github.com/jingkaihe/skillroute/pkg/presenter"
)

type ShowConfig struct {
	Raw      bool
	BodyOnly bool
}

func NewShowConfig() *ShowConfig {
	return &ShowConfig{
		Raw:      false,
		BodyOnly: false,
	}
}

var showCmd = &cobra.Command{
	Use:   "show <id|path|name>",
	Short: "Print one document",
	Long: `Print one document by ID, path or name. On a terminal the Markdown is rendered;
otherwise, or with --raw, the source is printed as is. Files bundled with a
directory skill (scripts, templates) are listed after the body.

Examples:
  skillroute show qa-engineer
  skillroute show --raw qa/api-testing/skill`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getShowConfigFromFlags(cmd)
		runShowCmd(cmd.Context(), args[0], config)
	},
}

func init() {
	defaults := NewShowConfig()
	showCmd.Flags().Bool("raw", defaults.Raw, "Print Markdown source even on a terminal")
	showCmd.Flags().Bool("body", defaults.BodyOnly, "Omit the metadata block")
}

func getShowConfigFromFlags(cmd *cobra.Command) *ShowConfig {
	config := NewShowConfig()
	if raw, err := cmd.Flags().GetBool("raw"); err == nil {
		config.Raw = raw
	}
	if body, err := cmd.Flags().GetBool("body"); err == nil {
		config.BodyOnly = body
	}
	return config
}

func runShowCmd(ctx context.Context, ref string, config *ShowConfig) {
	cfg := mustConfig()
	store := mustLoadCorpus(ctx, cfg)

	doc, err := store.Resolve(ref)
	if err != nil {
		presenter.Error(err, "document not found")
		os.Exit(1)
	}

	rendered := !config.Raw && term.IsTerminal(int(os.Stdout.Fd()))
	if err := showDocument(os.Stdout, doc, config.BodyOnly, rendered); err != nil {
		presenter.Error(err, "failed to print document")
		os.Exit(1)
	}
}

// showDocument writes doc, through glamour when rendered is set
func showDocument(w io.Writer, doc *corpus.Document, bodyOnly, rendered bool) error {
	text := doc.Body
	if !bodyOnly && doc.Kind != corpus.KindReference {
		text = frontmatter.Render(doc.Metadata, doc.Body)
	}

	if rendered {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return errors.Wrap(err, "failed to create markdown renderer")
		}
		body := doc.Body
		if !bodyOnly {
			body = strings.TrimRight(body, "\n") + "\n\n" + resourceList(doc)
		}
		out, err := r.Render(body)
		if err != nil {
			return errors.Wrap(err, "failed to render markdown")
		}
		if !bodyOnly {
			fmt.Fprintf(w, "%s (%s)\n", doc.ID, doc.Kind)
			if doc.Description != "" {
				fmt.Fprintf(w, "%s\n", doc.Description)
			}
		}
		_, err = io.WriteString(w, out)
		return err
	}

	if !bodyOnly {
		text += resourceList(doc)
	}
	_, err := io.WriteString(w, text)
	return err
}

// resourceList renders the files bundled with a directory skill as a
// Markdown list, or nothing when there are none
func resourceList(doc *corpus.Document) string {
	if len(doc.Resources) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n## Bundled resources\n\n")
	for _, r := range doc.Resources {
		fmt.Fprintf(&b, "- `%s`\n", r)
	}
	return b.String()
}
