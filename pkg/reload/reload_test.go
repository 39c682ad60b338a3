package reload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jingkaihe/skillroute/pkg/corpus"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func nextEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev, ok := <-w.Reloads():
		require.True(t, ok, "reload channel closed")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
		return Event{}
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "qa.md"), "---\nname: qa\ndescription: \"playwright\"\n---\nv1")

	w, err := New(context.Background(), root, WithDebounce(20*time.Millisecond), WithRetry(1, 0))
	require.NoError(t, err)
	defer w.Close()

	first := w.Current()
	require.Equal(t, 1, first.Len())

	writeFile(t, filepath.Join(root, "skills", "deploy.md"), "---\nname: deploy\n---\nsteps")

	require.Eventually(t, func() bool {
		_, err := w.Current().Get("skills/deploy")
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	doc, err := first.Get("qa")
	require.NoError(t, err)
	assert.Equal(t, "v1", doc.Body, "a loaded store never changes")
	assert.Equal(t, 1, first.Len())
}

func TestWatcherKeepsStoreOnFailedReload(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "qa.md"), "v1")

	w, err := New(context.Background(), root, WithDebounce(20*time.Millisecond), WithRetry(2, 5*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	before := w.Current()
	writeFile(t, filepath.Join(root, "broken.md"), "---\nname: broken\n")

	ev := nextEvent(t, w)
	require.Error(t, ev.Err)
	var malformed *corpus.MalformedDocumentError
	assert.ErrorAs(t, ev.Err, &malformed)
	assert.Same(t, before, ev.Store)
	assert.Same(t, before, w.Current())

	writeFile(t, filepath.Join(root, "broken.md"), "---\nname: fixed\n---\nok")

	require.Eventually(t, func() bool {
		_, err := w.Current().ByName("fixed")
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatcherInitialLoadFails(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.md"), "one")
	writeFile(t, filepath.Join(root, "A.md"), "two")

	_, err := New(context.Background(), root)
	var dup *corpus.DuplicateDocumentError
	assert.ErrorAs(t, err, &dup)

	_, err = New(context.Background(), filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestWatcherManualReload(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.md"), "one")

	// a long debounce keeps the background loop out of the way
	w, err := New(context.Background(), root, WithDebounce(time.Hour))
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, filepath.Join(root, "b.md"), "two")
	store, err := w.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())
	assert.Same(t, store, w.Current())
}

func TestWatcherClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	w, err := New(context.Background(), t.TempDir())
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, ok := <-w.Reloads()
	assert.False(t, ok)
}

func TestOptions(t *testing.T) {
	_, err := New(context.Background(), t.TempDir(), WithDebounce(-time.Second))
	assert.Error(t, err)
	_, err = New(context.Background(), t.TempDir(), WithRetry(0, 0))
	assert.Error(t, err)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.md"), "k")
	writeFile(t, filepath.Join(root, "drafts", "skip.md"), "s")

	w, err := New(context.Background(), root, WithLoadOptions(corpus.WithExclude("drafts/**")))
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, 1, w.Current().Len())
}
