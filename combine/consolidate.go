package combine

import (
	"bufio"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/toothbrush/confluence-export/localdump"
)

const consolidatedHeader = "# Consolidated Developer Documentation\n\n" +
	"This document combines all unique information from Markdown files in this directory.\n"

// Consolidator merges files without a language model: each file gets a heading and lines that
// already appeared earlier in the batch are dropped.
type Consolidator struct {
	Writer *localdump.Writer
}

func (c *Consolidator) Combine(ctx context.Context, paths []string, outputPath string, policy localdump.Policy) (localdump.CombinedDocument, error) {
	doc := localdump.CombinedDocument{SourcePaths: paths, OutputPath: outputPath}

	merged, err := Consolidate(paths)
	if err != nil {
		return doc, err
	}
	doc.MergedText = merged

	return write(c.Writer, doc, policy)
}

// Consolidate concatenates the bodies of paths, keeping only the first occurrence of each
// non-blank line.
func Consolidate(paths []string) (string, error) {
	var sb strings.Builder
	sb.WriteString(consolidatedHeader)

	seen := map[string]bool{}
	for _, path := range paths {
		md, err := localdump.ReadMarkdown(path)
		if err != nil {
			return "", fmt.Errorf("combine: %w", err)
		}

		fmt.Fprintf(&sb, "\n---\n\n# %s\n\n", heading(path))

		scanner := bufio.NewScanner(strings.NewReader(md.Body))
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) == "" || seen[line] {
				continue
			}
			seen[line] = true
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("combine: couldn't scan %s: %w", path, err)
		}
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}

// heading turns "Release_Notes-2024.md" into "Release Notes 2024".
func heading(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}
