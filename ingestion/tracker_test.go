package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pjv-stack/synapse/core"
)

func newTestTracker(t *testing.T, root string) (*Tracker, *testStores) {
	t.Helper()
	stores := newTestStores(t)
	tracker, err := NewTracker(stores.registry, root, nil)
	require.NoError(t, err)
	return tracker, stores
}

func registerFile(t *testing.T, stores *testStores, root, rel string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	content, err := os.ReadFile(full)
	require.NoError(t, err)
	info, err := os.Stat(full)
	require.NoError(t, err)
	require.NoError(t, stores.registry.Put(context.Background(), &core.RegistryEntry{
		Path:         rel,
		ContentHash:  core.HashContent(content),
		LastModified: info.ModTime().UTC(),
		IngestedAt:   time.Now().UTC(),
	}))
}

func TestTrackerDiffFreshCorpus(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "docs/a.md", "alpha")
	writeCorpusFile(t, root, "docs/sub/b.md", "beta")
	writeCorpusFile(t, root, "notes.txt", "gamma")
	tracker, _ := newTestTracker(t, root)

	diff, err := tracker.Diff(context.Background(), false)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"docs/a.md", "docs/sub/b.md", "notes.txt"}, diff.Added)
	assert.Empty(t, diff.Modified)
	assert.Empty(t, diff.Deleted)
	assert.False(t, diff.Empty())
}

func TestTrackerDiffIgnoresUnrecognizedExtensions(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "docs/a.md", "alpha")
	writeCorpusFile(t, root, "binary.png", "not text")
	writeCorpusFile(t, root, "script.sh", "#!/bin/sh")
	tracker, _ := newTestTracker(t, root)

	diff, err := tracker.Diff(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"docs/a.md"}, diff.Added)
}

func TestTrackerDiffSkipsHiddenDirectories(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "docs/a.md", "alpha")
	writeCorpusFile(t, root, ".git/objects/readme.md", "internal")
	tracker, _ := newTestTracker(t, root)

	diff, err := tracker.Diff(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"docs/a.md"}, diff.Added)
}

func TestTrackerDiffUnchanged(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "docs/a.md", "alpha")
	tracker, stores := newTestTracker(t, root)
	registerFile(t, stores, root, "docs/a.md")

	diff, err := tracker.Diff(context.Background(), false)
	require.NoError(t, err)

	assert.True(t, diff.Empty())
}

func TestTrackerDiffModified(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "docs/a.md", "alpha")
	tracker, stores := newTestTracker(t, root)
	registerFile(t, stores, root, "docs/a.md")

	writeCorpusFile(t, root, "docs/a.md", "alpha v2")
	bumpModTime(t, filepath.Join(root, "docs", "a.md"))

	diff, err := tracker.Diff(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"docs/a.md"}, diff.Modified)
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Deleted)
}

func TestTrackerDiffModifiedWithPreservedModTime(t *testing.T) {
	root := t.TempDir()
	full := filepath.Join(root, "docs", "a.md")
	writeCorpusFile(t, root, "docs/a.md", "alpha")
	tracker, stores := newTestTracker(t, root)
	registerFile(t, stores, root, "docs/a.md")

	info, err := os.Stat(full)
	require.NoError(t, err)
	writeCorpusFile(t, root, "docs/a.md", "alpha rewritten")
	// Restore the original timestamp. The hash must still flag the change.
	require.NoError(t, os.Chtimes(full, info.ModTime(), info.ModTime()))

	diff, err := tracker.Diff(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"docs/a.md"}, diff.Modified)
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Deleted)
}

func TestTrackerDiffTouchedButUnchangedContent(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "docs/a.md", "alpha")
	tracker, stores := newTestTracker(t, root)
	registerFile(t, stores, root, "docs/a.md")

	// New mtime, same bytes: the content hash decides.
	bumpModTime(t, filepath.Join(root, "docs", "a.md"))

	diff, err := tracker.Diff(context.Background(), false)
	require.NoError(t, err)

	assert.True(t, diff.Empty())
}

func TestTrackerDiffDeleted(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "docs/a.md", "alpha")
	tracker, stores := newTestTracker(t, root)
	registerFile(t, stores, root, "docs/a.md")
	registerFile(t, stores, root, "docs/a.md") // idempotent registration

	require.NoError(t, os.Remove(filepath.Join(root, "docs", "a.md")))

	diff, err := tracker.Diff(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"docs/a.md"}, diff.Deleted)
}

func TestTrackerDiffForce(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "docs/a.md", "alpha")
	writeCorpusFile(t, root, "docs/b.md", "beta")
	tracker, stores := newTestTracker(t, root)
	registerFile(t, stores, root, "docs/a.md")

	diff, err := tracker.Diff(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, []string{"docs/a.md"}, diff.Modified)
	assert.Equal(t, []string{"docs/b.md"}, diff.Added)
}
