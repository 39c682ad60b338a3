// Package corpus loads persona and skill Markdown documents into an
// immutable, in-memory store. A store is built once, is never modified
// afterwards, and can be read from any number of goroutines without locking.
package corpus

import (
	"path"
	"strings"

	"github.com/jingkaihe/skillroute/pkg/frontmatter"
	"github.com/jingkaihe/skillroute/pkg/trigger"
)

// Kind classifies a document by the metadata it declares
type Kind string

const (
	// KindPersona is an agent role: its metadata names a model
	KindPersona Kind = "persona"
	// KindSkill is a reusable procedure with metadata but no model
	KindSkill Kind = "skill"
	// KindReference is plain Markdown with no metadata block
	KindReference Kind = "reference"
)

// skillFileName marks a directory-style skill whether or not it declares a model
const skillFileName = "skill.md"

// Document is one loaded Markdown file
type Document struct {
	ID           string   // unique, derived from Path
	Path         string   // slash-separated, relative to the corpus root
	Name         string   // frontmatter name, may be shared by several documents
	Description  string   // trigger specification in natural language
	Model        string   // frontmatter model, personas only
	AllowedTools []string // advisory capability tokens
	Title        string   // first heading of the body
	Kind         Kind
	Metadata     frontmatter.Metadata
	Body         string
	Triggers     trigger.Set
	// Resources lists the non-Markdown files bundled under a directory
	// skill, such as scripts/validate_openapi.py, as corpus-relative paths
	Resources []string
}

// Rankable reports whether the document can be auto-selected. Documents
// without a description are only reachable by ID or name.
func (d *Document) Rankable() bool {
	return d.Description != ""
}

// Label returns the name when declared, the ID otherwise
func (d *Document) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// ParseDocument builds a Document from the raw content of the file at the
// given corpus-relative path
func ParseDocument(relPath, content string) (*Document, error) {
	relPath = path.Clean(strings.ReplaceAll(relPath, "\\", "/"))

	md, body, err := frontmatter.Parse(content)
	if err != nil {
		return nil, &MalformedDocumentError{Path: relPath, Err: err}
	}

	doc := &Document{
		ID:           DocumentID(relPath),
		Path:         relPath,
		Name:         md.Name,
		Description:  md.Description,
		Model:        md.Model,
		AllowedTools: md.AllowedTools,
		Title:        frontmatter.Title(body),
		Kind:         classify(relPath, md),
		Metadata:     md,
		Body:         body,
		Triggers:     trigger.Extract(md.Description),
	}

	return doc, nil
}

// DocumentID derives the store ID of a corpus-relative path: slash
// separators, Markdown extension removed, lowercased. Two SKILL.md files in
// different directories therefore get distinct IDs ("a/skill", "b/skill").
func DocumentID(relPath string) string {
	p := strings.ToLower(path.Clean(strings.ReplaceAll(relPath, "\\", "/")))
	p = strings.TrimPrefix(p, "./")

	for _, ext := range markdownExtensions {
		if strings.HasSuffix(p, ext) {
			return strings.TrimSuffix(p, ext)
		}
	}
	return p
}

var markdownExtensions = []string{".md", ".markdown"}

func classify(relPath string, md frontmatter.Metadata) Kind {
	switch {
	case md.Empty():
		return KindReference
	case strings.EqualFold(path.Base(relPath), skillFileName):
		return KindSkill
	case md.Model != "":
		return KindPersona
	default:
		return KindSkill
	}
}
