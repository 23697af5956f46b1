package localdump

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/toothbrush/confluence-export/confluence"
)

// LocalIndex maps page IDs to files of an earlier export, found through their front matter.
type LocalIndex map[string][]LocalMarkdown

// LoadLocalIndex reads the front matter of every exported page below dir.  Files without front
// matter are not indexed.
func LoadLocalIndex(dir string) (LocalIndex, error) {
	files, err := ListMarkdownFiles(dir, MetricsFileName, CombinedFileName)
	if err != nil {
		return nil, err
	}

	index := LocalIndex{}
	for _, file := range files {
		md, err := ReadMarkdown(file)
		if err != nil {
			return nil, fmt.Errorf("localdump: couldn't index local pages: %w", err)
		}
		if md.Header == nil || md.Header.ObjectID == "" {
			continue
		}
		md.Body = ""
		index[md.Header.ObjectID] = append(index[md.Header.ObjectID], md)
	}
	return index, nil
}

// Unchanged returns the local copy of ref at path when it has the same version and ancestry as
// the remote page.  A page that moved or was renamed resolves to a different path and so counts
// as changed.
func (idx LocalIndex) Unchanged(ref confluence.PageRef, path string) (LocalMarkdown, bool) {
	if ref.Version == 0 {
		return LocalMarkdown{}, false
	}
	for _, md := range idx[ref.ID] {
		if md.Path != path {
			continue
		}
		if md.Header.Version == ref.Version && slices.Equal(md.Header.AncestorIDs, ref.AncestorIDs) {
			return md, true
		}
	}
	return LocalMarkdown{}, false
}

// Stale lists indexed files whose page is not in keep.
func (idx LocalIndex) Stale(keep map[string]bool) []string {
	var stale []string
	for id, mds := range idx {
		if keep[id] {
			continue
		}
		for _, md := range mds {
			stale = append(stale, md.Path)
		}
	}
	slices.Sort(stale)
	return stale
}

// prune deletes the given files.  In a dry run nothing is removed.
func (w *Writer) prune(paths []string) ([]string, error) {
	if w.DryRun {
		return paths, nil
	}
	removed := make([]string, 0, len(paths))
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("localdump: failed to prune %s: %w", filepath.Base(path), err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}
