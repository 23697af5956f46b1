package combine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toothbrush/confluence-export/combine"
	"github.com/toothbrush/confluence-export/localdump"
)

type fakeGenerator struct {
	system, prompt string
	response       string
	err            error
}

func (f *fakeGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	f.system, f.prompt = system, prompt
	return f.response, f.err
}

func writeFiles(t *testing.T, root string, files map[string]string) []string {
	t.Helper()
	var paths []string
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
		paths = append(paths, path)
	}
	return paths
}

func TestPostProcessor_Combine(t *testing.T) {
	t.Parallel()

	t.Run("prompts with every file and writes the result", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		paths := writeFiles(t, root, map[string]string{
			"DEV/Parent.md":       "---\ntitle: Parent\nobject_id: \"1\"\n---\nParent body\n",
			"DEV/Parent/Child.md": "Child body\n",
		})
		gen := &fakeGenerator{response: "# Merged\n\nAll of it.\n"}
		p := combine.NewPostProcessor(gen, localdump.NewWriter(root, false), nil)

		doc, err := p.Combine(context.Background(), paths, filepath.Join("DEV", "Parent", localdump.CombinedFileName), localdump.Overwrite{})
		require.NoError(t, err)

		assert.Equal(t, combine.SystemInstruction, gen.system)
		assert.True(t, strings.HasPrefix(gen.prompt, combine.Prompt))
		assert.Contains(t, gen.prompt, "# Parent.md\n\nParent body")
		assert.Contains(t, gen.prompt, "# Child.md\n\nChild body")
		assert.NotContains(t, gen.prompt, "object_id", "front matter is stripped")

		assert.Equal(t, localdump.StatusWritten, doc.Status)
		assert.Equal(t, filepath.Join(root, "DEV", "Parent", localdump.CombinedFileName), doc.OutputPath)
		assert.Equal(t, "# Merged\n\nAll of it.", doc.MergedText)

		b, err := os.ReadFile(doc.OutputPath)
		require.NoError(t, err)
		assert.Equal(t, "# Merged\n\nAll of it.\n", string(b))
	})

	t.Run("increment keeps an earlier combination", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		paths := writeFiles(t, root, map[string]string{"A.md": "a\n", "B.md": "b\n"})
		writeFiles(t, root, map[string]string{localdump.CombinedFileName: "old\n"})

		p := combine.NewPostProcessor(&fakeGenerator{response: "new"}, localdump.NewWriter(root, false), nil)
		doc, err := p.Combine(context.Background(), paths, localdump.CombinedFileName, localdump.Increment{})
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(root, "LLM_Combined_2.md"), doc.OutputPath)
		b, err := os.ReadFile(filepath.Join(root, localdump.CombinedFileName))
		require.NoError(t, err)
		assert.Equal(t, "old\n", string(b))
	})

	t.Run("generator errors are returned and nothing is written", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		paths := writeFiles(t, root, map[string]string{"A.md": "a\n", "B.md": "b\n"})
		boom := errors.New("quota exceeded")

		p := combine.NewPostProcessor(&fakeGenerator{err: boom}, localdump.NewWriter(root, false), nil)
		_, err := p.Combine(context.Background(), paths, localdump.CombinedFileName, localdump.Overwrite{})
		require.ErrorIs(t, err, boom)
		assert.NoFileExists(t, filepath.Join(root, localdump.CombinedFileName))
	})

	t.Run("an empty response is an error", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		paths := writeFiles(t, root, map[string]string{"A.md": "a\n"})

		p := combine.NewPostProcessor(&fakeGenerator{response: " \n"}, localdump.NewWriter(root, false), nil)
		_, err := p.Combine(context.Background(), paths, localdump.CombinedFileName, localdump.Overwrite{})
		assert.ErrorIs(t, err, combine.ErrEmptyResponse)
	})

	t.Run("no readable files", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		gen := &fakeGenerator{response: "unused"}
		p := combine.NewPostProcessor(gen, localdump.NewWriter(root, false), nil)

		_, err := p.Combine(context.Background(), []string{filepath.Join(root, "missing.md")}, localdump.CombinedFileName, localdump.Overwrite{})
		require.Error(t, err)
		assert.Empty(t, gen.prompt, "generator is not called")
	})
}

func TestConsolidate(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	first := filepath.Join(root, "Release_Notes-2024.md")
	second := filepath.Join(root, "Setup.md")
	writeFiles(t, root, map[string]string{
		"Release_Notes-2024.md": "---\ntitle: Release Notes\n---\nShared line\n\nOnly in notes\n",
		"Setup.md":              "Shared line\nOnly in setup\n",
	})

	merged, err := combine.Consolidate([]string{first, second})
	require.NoError(t, err)

	assert.Equal(t, `# Consolidated Developer Documentation

This document combines all unique information from Markdown files in this directory.

---

# Release Notes 2024

Shared line
Only in notes

---

# Setup

Only in setup`, merged)
}

func TestConsolidator_Combine(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	paths := writeFiles(t, root, map[string]string{"A.md": "a\n"})

	c := &combine.Consolidator{Writer: localdump.NewWriter(root, false)}
	doc, err := c.Combine(context.Background(), paths, "Consolidated.md", localdump.Overwrite{})
	require.NoError(t, err)

	assert.Equal(t, localdump.StatusWritten, doc.Status)
	b, err := os.ReadFile(filepath.Join(root, "Consolidated.md"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(b), "# A\n\na\n"))
}
