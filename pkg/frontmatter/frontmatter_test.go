package frontmatter

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("persona with block scalar description", func(t *testing.T) {
		content := `---
name: qa-engineer
description: |
  Use for test automation. Triggers on "playwright", "e2e"
  and "regression suite".
model: sonnet
allowed-tools: Read, Write, Bash
---
# QA Engineer

You write tests.
`
		md, body, err := Parse(content)
		require.NoError(t, err)
		assert.Equal(t, "qa-engineer", md.Name)
		assert.Equal(t, "Use for test automation. Triggers on \"playwright\", \"e2e\"\nand \"regression suite\".", md.Description)
		assert.Equal(t, "sonnet", md.Model)
		assert.Equal(t, []string{"Read", "Write", "Bash"}, md.AllowedTools)
		assert.Equal(t, "# QA Engineer\n\nYou write tests.\n", body)
		assert.True(t, md.Has("allowed-tools"))
		assert.False(t, md.Empty())
	})

	t.Run("allowed tools as yaml list", func(t *testing.T) {
		content := "---\nname: x\nallowed-tools:\n  - Read\n  - Grep\n  - Read\n---\nbody"
		md, body, err := Parse(content)
		require.NoError(t, err)
		assert.Equal(t, []string{"Read", "Grep"}, md.AllowedTools)
		assert.Equal(t, "body", body)
	})

	t.Run("tools alias", func(t *testing.T) {
		md, _, err := Parse("---\nname: x\ntools: Read, Edit\n---\n")
		require.NoError(t, err)
		assert.Equal(t, []string{"Read", "Edit"}, md.AllowedTools)
	})

	t.Run("no metadata block", func(t *testing.T) {
		md, body, err := Parse("# Just content")
		require.NoError(t, err)
		assert.True(t, md.Empty())
		assert.Empty(t, md.Fields)
		assert.Equal(t, "# Just content", body)
	})

	t.Run("leading byte order mark", func(t *testing.T) {
		md, body, err := Parse("\ufeff---\nname: bom\n---\ntext")
		require.NoError(t, err)
		assert.Equal(t, "bom", md.Name)
		assert.Equal(t, "text", body)
	})

	t.Run("crlf line endings", func(t *testing.T) {
		md, body, err := Parse("---\r\nname: windows\r\n---\r\nbody\r\n")
		require.NoError(t, err)
		assert.Equal(t, "windows", md.Name)
		assert.Equal(t, "body\r\n", body)
	})

	t.Run("closing delimiter at end of file", func(t *testing.T) {
		md, body, err := Parse("---\nname: tail\n---")
		require.NoError(t, err)
		assert.Equal(t, "tail", md.Name)
		assert.Equal(t, "", body)
	})

	t.Run("numeric name is stringified", func(t *testing.T) {
		md, _, err := Parse("---\nname: 42\n---\n")
		require.NoError(t, err)
		assert.Equal(t, "42", md.Name)
	})

	t.Run("extra keys are kept", func(t *testing.T) {
		md, _, err := Parse("---\nname: x\ncolor: blue\n---\n")
		require.NoError(t, err)
		assert.Equal(t, "blue", md.Fields["color"])
	})
}

func TestParseMalformed(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{name: "unterminated block", content: "---\nname: x\ndescription: y\n# body"},
		{name: "delimiter only", content: "---"},
		{name: "invalid yaml", content: "---\nname: [unclosed\n---\nbody"},
		{name: "list for scalar key", content: "---\nname:\n  - a\n  - b\n---\nbody"},
		{name: "map for description", content: "---\ndescription:\n  nested: true\n---\nbody"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse(tc.content)
			require.Error(t, err)

			var fmErr *Error
			assert.True(t, errors.As(err, &fmErr), "expected *Error, got %T", err)
		})
	}
}

func TestIsDelimiter(t *testing.T) {
	assert.True(t, isDelimiter("---"))
	assert.True(t, isDelimiter("-----  "))
	assert.True(t, isDelimiter("---\r"))
	assert.False(t, isDelimiter("--"))
	assert.False(t, isDelimiter("--- x"))
	assert.False(t, isDelimiter(""))
}

func TestRenderRoundTrip(t *testing.T) {
	in := Metadata{
		Name:         "backend-developer",
		Description:  "Builds APIs.\nTriggers on \"rest api\".",
		Model:        "opus",
		AllowedTools: []string{"Read", "Write", "Bash"},
	}

	md, body, err := Parse(Render(in, "# Backend\n"))
	require.NoError(t, err)
	assert.Equal(t, in.Name, md.Name)
	assert.Equal(t, in.Description, md.Description)
	assert.Equal(t, in.Model, md.Model)
	assert.Equal(t, in.AllowedTools, md.AllowedTools)
	assert.Equal(t, "# Backend\n", body)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "QA Engineer", Title("# QA Engineer\n\ntext"))
	assert.Equal(t, "Setup fast", Title("intro paragraph\n\n## Setup *fast*\n"))
	assert.Equal(t, "", Title("no headings here"))
}
