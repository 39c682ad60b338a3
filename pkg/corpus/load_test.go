package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const qaEngineer = `---
name: qa-engineer
description: |
  Use this agent for test automation. Triggers on "playwright", "e2e" and
  "regression suite".
model: sonnet
allowed-tools: Read, Write, Bash
---
# QA Engineer

You own the test pyramid.
`

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"qa-engineer.md":               {Data: []byte(qaEngineer)},
		"backend-developer.md":         {Data: []byte("---\nname: backend-developer\ndescription: Builds REST services.\n---\nbody")},
		"notes/plain.md":               {Data: []byte("# Just content")},
		"a/skill.md":                   {Data: []byte("---\nname: skill\n---\nA")},
		"b/skill.md":                   {Data: []byte("---\nname: skill\n---\nB")},
		"notes/todo.txt":               {Data: []byte("ignored")},
		".git/HEAD.md":                 {Data: []byte("ignored")},
		"web/node_modules/pkg/read.md": {Data: []byte("ignored")},
	}

	store, err := LoadFS(context.Background(), fsys)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"a/skill",
		"b/skill",
		"backend-developer",
		"notes/plain",
		"qa-engineer",
	}, ids(store.All()))

	qa, err := store.Get("qa-engineer")
	require.NoError(t, err)
	assert.Equal(t, []string{"Read", "Write", "Bash"}, qa.AllowedTools)
	assert.Equal(t, KindPersona, qa.Kind)

	plain, err := store.Get("notes/plain")
	require.NoError(t, err)
	assert.Equal(t, "# Just content", plain.Body)
	assert.Empty(t, plain.Metadata.Fields)

	a, err := store.Get("a/skill")
	require.NoError(t, err)
	b, err := store.Get("b/skill")
	require.NoError(t, err)
	assert.Equal(t, a.Name, b.Name)
}

func TestLoadFSSkillResources(t *testing.T) {
	fsys := fstest.MapFS{
		"skills/qa/api-test-automation/SKILL.md":                    {Data: []byte("---\nname: api-test-automation\ndescription: Runs \"newman\" suites.\n---\nbody")},
		"skills/qa/api-test-automation/scripts/run_newman_tests.py": {Data: []byte("print('ok')")},
		"skills/qa/api-test-automation/templates/collection.json":   {Data: []byte("{}")},
		"skills/qa/api-test-automation/nested/SKILL.md":             {Data: []byte("---\nname: nested\n---\nnested")},
		"skills/qa/api-test-automation/nested/helper.sh":            {Data: []byte("echo")},
		"skills/qa/api-test-automation/reference.md":                {Data: []byte("# Reference")},
		"skills/qa/api-test-automation/node_modules/dep/index.js":   {Data: []byte("")},
		"skills/qa/README.txt":                                      {Data: []byte("outside any skill")},
		"SKILL.md":                                                  {Data: []byte("---\nname: root\n---\nroot")},
	}

	store, err := LoadFS(context.Background(), fsys)
	require.NoError(t, err)

	skill, err := store.Get("skills/qa/api-test-automation/skill")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"skills/qa/api-test-automation/scripts/run_newman_tests.py",
		"skills/qa/api-test-automation/templates/collection.json",
	}, skill.Resources)

	nested, err := store.Get("skills/qa/api-test-automation/nested/skill")
	require.NoError(t, err)
	assert.Equal(t, []string{"skills/qa/api-test-automation/nested/helper.sh"}, nested.Resources)

	root, err := store.Get("skill")
	require.NoError(t, err)
	assert.Empty(t, root.Resources)

	ref, err := store.Get("skills/qa/api-test-automation/reference")
	require.NoError(t, err)
	assert.Empty(t, ref.Resources)
}

func TestLoadFSOptions(t *testing.T) {
	fsys := fstest.MapFS{
		"agents/qa.md":       {Data: []byte("qa")},
		"agents/drafts/x.md": {Data: []byte("draft")},
		"skills/deploy.md":   {Data: []byte("deploy")},
	}

	store, err := LoadFS(context.Background(), fsys,
		WithInclude("agents/**/*.md"),
		WithExclude("**/drafts/**"),
		WithWorkers(1),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"agents/qa"}, ids(store.All()))

	_, err = LoadFS(context.Background(), fsys, WithInclude())
	assert.Error(t, err)
	_, err = LoadFS(context.Background(), fsys, WithExclude("[oops"))
	assert.Error(t, err)
	_, err = LoadFS(context.Background(), fsys, WithWorkers(0))
	assert.Error(t, err)
}

func TestLoadFSDuplicate(t *testing.T) {
	fsys := fstest.MapFS{
		"Guide.md": {Data: []byte("one")},
		"guide.md": {Data: []byte("two")},
	}

	store, err := LoadFS(context.Background(), fsys)
	assert.Nil(t, store)

	var dup *DuplicateDocumentError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "guide", dup.ID)
	assert.Equal(t, "Guide.md", dup.First)
	assert.Equal(t, "guide.md", dup.Path)
}

func TestLoadFSReportsEveryMalformedFile(t *testing.T) {
	fsys := fstest.MapFS{
		"bad-one.md": {Data: []byte("---\nname: one\n")},
		"bad-two.md": {Data: []byte("---\nname: [unclosed\n---\nbody")},
		"good.md":    {Data: []byte("fine")},
	}

	store, err := LoadFS(context.Background(), fsys)
	assert.Nil(t, store)
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 2)

	var paths []string
	for _, e := range merr.Errors {
		var malformed *MalformedDocumentError
		require.ErrorAs(t, e, &malformed)
		paths = append(paths, malformed.Path)
	}
	assert.Equal(t, []string{"bad-one.md", "bad-two.md"}, paths)
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "qa"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "qa", "qa-engineer.md"), []byte(qaEngineer), 0o644))

	store, err := Load(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"qa/qa-engineer"}, ids(store.All()))

	_, err = Load(context.Background(), filepath.Join(root, "missing"))
	assert.Error(t, err)

	_, err = Load(context.Background(), filepath.Join(root, "qa", "qa-engineer.md"))
	assert.Error(t, err)
}

func TestLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LoadFS(ctx, fstest.MapFS{"a.md": {Data: []byte("a")}})
	assert.ErrorIs(t, err, context.Canceled)
}
