package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillroute/pkg/corpus"
	"github.com/jingkaihe/skillroute/pkg/memory"
	"github.com/jingkaihe/skillroute/pkg/selector"
)

func testStore(t *testing.T) *corpus.Store {
	t.Helper()
	store, err := corpus.LoadFS(context.Background(), fstest.MapFS{
		"personas/qa-engineer.md": {Data: []byte(`---
name: qa-engineer
description: |
  Use for "playwright" tests, "test automation" and flaky test triage.
model: sonnet
allowed-tools: Read, Bash
---
# QA Engineer

Write reliable end-to-end tests.
`)},
		"qa/api-testing/SKILL.md": {Data: []byte(`---
name: api-testing
description: Use when writing "api tests" for REST endpoints.
---
# API testing
`)},
		"notes/glossary.md": {Data: []byte("# Glossary\n\nTerms.\n")},
	})
	require.NoError(t, err)
	return store
}

func TestParseKinds(t *testing.T) {
	kinds, err := parseKinds(" persona, Skill ,,")
	require.NoError(t, err)
	assert.Equal(t, []corpus.Kind{corpus.KindPersona, corpus.KindSkill}, kinds)

	kinds, err = parseKinds("")
	require.NoError(t, err)
	assert.Empty(t, kinds)

	_, err = parseKinds("agent")
	assert.ErrorContains(t, err, `unknown document kind "agent"`)
}

func TestFilterDocuments(t *testing.T) {
	store := testStore(t)

	docs, err := filterDocuments(store, "qa/**", nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "qa/api-testing/skill", docs[0].ID)

	docs, err = filterDocuments(store, "", []corpus.Kind{corpus.KindReference})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "notes/glossary", docs[0].ID)
}

func TestRenderDocuments(t *testing.T) {
	docs := testStore(t).All()

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderDocuments(&buf, docs, "table"))
		out := buf.String()
		assert.Contains(t, out, "ID")
		assert.Contains(t, out, "personas/qa-engineer")
		assert.Contains(t, out, "sonnet")
		assert.Contains(t, out, "notes/glossary")
	})

	t.Run("empty table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderDocuments(&buf, nil, "table"))
		assert.Equal(t, "No documents found.\n", buf.String())
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderDocuments(&buf, docs, "json"))

		var got []documentSummary
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 3)
		for _, s := range got {
			if s.ID == "personas/qa-engineer" {
				assert.Equal(t, "persona", s.Kind)
				assert.Equal(t, []string{"Read", "Bash"}, s.AllowedTools)
			}
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderDocuments(&buf, docs, "yaml"))
		assert.Contains(t, buf.String(), "allowed-tools:")

		var got []documentSummary
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Len(t, got, 3)
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, renderDocuments(&bytes.Buffer{}, docs, "xml"))
	})
}

func TestScoreRows(t *testing.T) {
	store := testStore(t)
	results := selector.Select(store, "write playwright tests", 1)
	require.Len(t, results, 1)

	rows := scoreRows(results)
	require.Len(t, rows, 1)
	assert.Equal(t, "personas/qa-engineer", rows[0].ID)
	assert.Equal(t, results[0].Score, rows[0].Score)
	assert.Contains(t, rows[0].Detail, "name=qa-engineer")
	assert.Contains(t, rows[0].Detail, "phrases=playwright")

	assert.Empty(t, scoreRows(nil))
}

func TestShowDocumentRaw(t *testing.T) {
	store := testStore(t)

	doc, err := store.Resolve("qa-engineer")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, showDocument(&buf, doc, false, false))
	assert.Contains(t, buf.String(), "name: qa-engineer\n")
	assert.Contains(t, buf.String(), "allowed-tools: Read, Bash\n")
	assert.Contains(t, buf.String(), "# QA Engineer")

	buf.Reset()
	require.NoError(t, showDocument(&buf, doc, true, false))
	assert.NotContains(t, buf.String(), "name: qa-engineer")
	assert.Contains(t, buf.String(), "# QA Engineer")

	ref, err := store.Resolve("notes/glossary.md")
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, showDocument(&buf, ref, false, false))
	assert.Equal(t, "# Glossary\n\nTerms.\n", buf.String())
}

func TestRouteConfigOptions(t *testing.T) {
	assert.Empty(t, NewRouteConfig().options())
	assert.Len(t, (&RouteConfig{TopK: 2, MaxChars: 0}).options(), 2)
	assert.Len(t, (&RouteConfig{TopK: 0, MaxChars: 100}).options(), 1)
}

func TestShowDocumentResources(t *testing.T) {
	store, err := corpus.LoadFS(context.Background(), fstest.MapFS{
		"api-test-automation/SKILL.md":                    {Data: []byte("---\nname: api-test-automation\ndescription: Runs \"newman\" suites.\n---\n# API tests\n")},
		"api-test-automation/scripts/run_newman_tests.py": {Data: []byte("print('ok')")},
	})
	require.NoError(t, err)

	doc, err := store.Resolve("api-test-automation")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, showDocument(&buf, doc, false, false))
	assert.Contains(t, buf.String(), "# API tests\n\n## Bundled resources\n\n- `api-test-automation/scripts/run_newman_tests.py`\n")

	buf.Reset()
	require.NoError(t, showDocument(&buf, doc, true, false))
	assert.Equal(t, "# API tests\n", buf.String())

	buf.Reset()
	require.NoError(t, renderDocuments(&buf, store.All(), "json"))
	assert.Contains(t, buf.String(), `"resources": [`)
}

func TestMemoryDBCommands(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "memory.db")
	viper.Set("memory.backend", "sqlite")
	viper.Set("memory.path", path)
	t.Cleanup(func() {
		viper.Set("memory.backend", memory.BackendNone)
		viper.Set("memory.path", "")
	})

	s, err := memory.OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	var buf bytes.Buffer
	require.NoError(t, runMemoryDBStatusCmd(ctx, &buf))
	assert.Contains(t, buf.String(), "[✓] 20261017090000 - Create memory_entries table\n")
	assert.Contains(t, buf.String(), "Applied: 2/2 migrations")

	require.NoError(t, runMemoryDBRollbackCmd(ctx))

	buf.Reset()
	require.NoError(t, runMemoryDBStatusCmd(ctx, &buf))
	assert.Contains(t, buf.String(), "[ ] 20261017090100 - Add memory key index\n")
	assert.Contains(t, buf.String(), "Applied: 1/2 migrations")

	viper.Set("memory.backend", "files")
	err = runMemoryDBStatusCmd(ctx, &buf)
	assert.ErrorContains(t, err, "memory db needs the sqlite backend")
}

func TestMemoryRunnersReturnErrors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	viper.Set("memory.backend", "files")
	viper.Set("memory.path", dir)
	t.Cleanup(func() {
		viper.Set("memory.backend", memory.BackendNone)
		viper.Set("memory.path", "")
	})

	assert.Error(t, runMemoryAppendCmd(ctx, []string{"qa", "   "}))
	assert.NoError(t, runMemoryAppendCmd(ctx, []string{"qa", "note"}))
	assert.NoError(t, runMemoryKeysCmd(ctx))
	assert.NoError(t, runMemoryReadCmd(ctx, "missing"))
}
