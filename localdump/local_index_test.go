package localdump_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toothbrush/confluence-export/confluence"
	"github.com/toothbrush/confluence-export/localdump"
)

func writePage(t *testing.T, path, frontMatter string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(frontMatter+"body\n"), 0o644))
}

func TestLoadLocalIndex(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	parent := filepath.Join(dir, "Parent.md")
	child := filepath.Join(dir, "Parent", "Child.md")
	writePage(t, parent, "---\ntitle: Parent\nobject_id: \"1\"\nversion: 3\n---\n")
	writePage(t, child, "---\ntitle: Child\nobject_id: \"2\"\nversion: 7\nancestor_ids:\n- \"1\"\n---\n")
	writePage(t, filepath.Join(dir, "notes.md"), "")
	writePage(t, filepath.Join(dir, localdump.MetricsFileName), "---\ntitle: Metrics\nobject_id: \"9\"\n---\n")

	idx, err := localdump.LoadLocalIndex(dir)
	require.NoError(t, err)
	require.Len(t, idx, 2)
	require.Len(t, idx["2"], 1)
	assert.Equal(t, child, idx["2"][0].Path)
	assert.Empty(t, idx["2"][0].Body)

	t.Run("unchanged needs same version, path and ancestry", func(t *testing.T) {
		ref := confluence.PageRef{ID: "2", Title: "Child", Version: 7, AncestorIDs: []string{"1"}}

		md, ok := idx.Unchanged(ref, child)
		assert.True(t, ok)
		assert.Equal(t, child, md.Path)

		_, ok = idx.Unchanged(ref, filepath.Join(dir, "Child.md"))
		assert.False(t, ok, "moved")

		newer := ref
		newer.Version = 8
		_, ok = idx.Unchanged(newer, child)
		assert.False(t, ok, "edited")

		reparented := ref
		reparented.AncestorIDs = []string{"5"}
		_, ok = idx.Unchanged(reparented, child)
		assert.False(t, ok, "reparented")

		unversioned := ref
		unversioned.Version = 0
		_, ok = idx.Unchanged(unversioned, child)
		assert.False(t, ok, "no version known")
	})

	t.Run("stale", func(t *testing.T) {
		assert.Equal(t, []string{child}, idx.Stale(map[string]bool{"1": true}))
		assert.Equal(t, []string{parent, child}, idx.Stale(nil))
		assert.Empty(t, idx.Stale(map[string]bool{"1": true, "2": true}))
	})
}

func TestLoadLocalIndex_MissingDir(t *testing.T) {
	t.Parallel()

	idx, err := localdump.LoadLocalIndex(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, idx)
}

func TestLoadLocalIndex_BrokenFrontMatter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePage(t, filepath.Join(dir, "bad.md"), "---\ntitle: [unclosed\n---\n")

	_, err := localdump.LoadLocalIndex(dir)
	assert.Error(t, err)
}
