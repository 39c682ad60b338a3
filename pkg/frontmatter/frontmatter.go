// Package frontmatter splits persona and skill Markdown documents into their
// YAML metadata block and body. The block is optional: a document without one
// is returned whole as its body.
package frontmatter

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

const bom = "\ufeff"

// Metadata is the parsed metadata block of a document
type Metadata struct {
	Name         string
	Description  string
	Model        string
	AllowedTools []string

	// Fields holds every key of the block as parsed, including the ones above.
	Fields map[string]interface{}
}

// typedFields is the decode target for the keys with a fixed shape
type typedFields struct {
	Name         string   `mapstructure:"name"`
	Description  string   `mapstructure:"description"`
	Model        string   `mapstructure:"model"`
	AllowedTools []string `mapstructure:"allowed-tools"`
}

// Has reports whether the metadata block declared the given key
func (m Metadata) Has(key string) bool {
	_, ok := m.Fields[key]
	return ok
}

// Empty reports whether the document had no metadata keys at all
func (m Metadata) Empty() bool {
	return len(m.Fields) == 0
}

// Error describes a metadata block that cannot be used
type Error struct {
	Line   int // 1-based line of the offending delimiter, 0 when unknown
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Reason
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// scalarKeys must decode to plain strings
var scalarKeys = []string{"name", "description", "model"}

// toolKeyAliases are folded into allowed-tools, first one present wins
var toolKeyAliases = []string{"allowed-tools", "allowed_tools", "tools"}

// Parse splits raw document text into metadata and body.
//
// A document that does not open with a delimiter line has no metadata and the
// whole text is its body. An opening delimiter without a closing one, invalid
// YAML, or a non-scalar value for name, description or model is an *Error.
func Parse(content string) (Metadata, string, error) {
	md := Metadata{Fields: map[string]interface{}{}}

	source := strings.TrimPrefix(content, bom)
	block, body, found, err := split(source)
	if err != nil {
		return md, "", err
	}
	if !found {
		return md, content, nil
	}

	fields, err := parseBlock(block)
	if err != nil {
		return md, "", err
	}
	md.Fields = fields

	if err := decode(fields, &md); err != nil {
		return md, "", err
	}

	return md, body, nil
}

// split locates the delimited block at the top of source. block includes both
// delimiter lines so it can be handed to goldmark-meta unchanged.
func split(source string) (block, body string, found bool, err error) {
	firstEnd := strings.IndexByte(source, '\n')
	firstLine := source
	if firstEnd >= 0 {
		firstLine = source[:firstEnd]
	}
	if !isDelimiter(firstLine) {
		return "", "", false, nil
	}
	if firstEnd < 0 {
		return "", "", false, &Error{Line: 1, Reason: "metadata block is not terminated"}
	}

	offset := firstEnd + 1
	for offset <= len(source) {
		rest := source[offset:]
		end := strings.IndexByte(rest, '\n')
		current := rest
		if end >= 0 {
			current = rest[:end]
		}

		if isDelimiter(current) {
			if end < 0 {
				return source, "", true, nil
			}
			blockEnd := offset + end + 1
			return source[:blockEnd], source[blockEnd:], true, nil
		}

		if end < 0 {
			break
		}
		offset += end + 1
	}

	return "", "", false, &Error{Line: 1, Reason: "metadata block is not terminated"}
}

// isDelimiter matches a line made of three or more dashes, the same rule
// goldmark-meta applies when it looks for the block boundaries
func isDelimiter(line string) bool {
	trimmed := strings.TrimRight(line, " \t\r")
	if len(trimmed) < 3 {
		return false
	}
	return strings.Trim(trimmed, "-") == ""
}

func parseBlock(block string) (map[string]interface{}, error) {
	md := goldmark.New(goldmark.WithExtensions(meta.Meta))
	pctx := parser.NewContext()
	md.Parser().Parse(text.NewReader([]byte(block)), parser.WithContext(pctx))

	fields, err := meta.TryGet(pctx)
	if err != nil {
		return nil, &Error{Reason: "invalid metadata syntax", Err: err}
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}
	return fields, nil
}

func decode(fields map[string]interface{}, md *Metadata) error {
	for _, key := range scalarKeys {
		value, ok := fields[key]
		if !ok || value == nil {
			continue
		}
		switch value.(type) {
		case string, int, int64, uint64, float64, bool:
		default:
			return &Error{Reason: fmt.Sprintf("%q must be a scalar value, got %T", key, value)}
		}
	}

	input := make(map[string]interface{}, len(fields))
	for _, key := range scalarKeys {
		if value, ok := fields[key]; ok && value != nil {
			input[key] = value
		}
	}
	for _, key := range toolKeyAliases {
		if value, ok := fields[key]; ok && value != nil {
			input["allowed-tools"] = value
			break
		}
	}

	var typed typedFields
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &typed,
		WeaklyTypedInput: true,
		DecodeHook:       splitCommaList,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create metadata decoder")
	}
	if err := decoder.Decode(input); err != nil {
		return &Error{Reason: "invalid metadata value", Err: err}
	}

	md.Name = strings.TrimSpace(typed.Name)
	md.Description = strings.TrimSpace(typed.Description)
	md.Model = strings.TrimSpace(typed.Model)
	md.AllowedTools = dedupe(typed.AllowedTools)
	return nil
}

// splitCommaList turns "Read, Write, Bash" into a list when the target is a
// string slice. YAML lists pass through untouched.
func splitCommaList(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf([]string{}) {
		return data, nil
	}

	raw, _ := data.(string)
	var parts []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts, nil
}

func dedupe(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		result = append(result, item)
	}
	return result
}

// Render writes metadata back as a delimited block followed by body. Only the
// typed fields are written; it is used to produce fixtures and skeleton files.
func Render(md Metadata, body string) string {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	if md.Name != "" {
		fmt.Fprintf(&buf, "name: %s\n", md.Name)
	}
	if md.Description != "" {
		buf.WriteString("description: |\n")
		for _, line := range strings.Split(md.Description, "\n") {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}
	if md.Model != "" {
		fmt.Fprintf(&buf, "model: %s\n", md.Model)
	}
	if len(md.AllowedTools) > 0 {
		fmt.Fprintf(&buf, "allowed-tools: %s\n", strings.Join(md.AllowedTools, ", "))
	}
	buf.WriteString("---\n")
	buf.WriteString(body)
	return buf.String()
}
