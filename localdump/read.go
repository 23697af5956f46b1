package localdump

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontMatterFence = "---\n"

// Matches the _N suffix the Increment policy adds.
var incrementSuffix = regexp.MustCompile(`_\d+(\.md)$`)

// ReadMarkdown loads an exported file, separating the YAML front matter (if any) from the body.
func ReadMarkdown(path string) (LocalMarkdown, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return LocalMarkdown{}, fmt.Errorf("localdump: couldn't read file %s: %w", path, err)
	}

	header, body, err := splitFrontMatter(string(source))
	if err != nil {
		return LocalMarkdown{}, fmt.Errorf("localdump: couldn't parse header of file %s: %w", path, err)
	}

	return LocalMarkdown{Header: header, Body: body, Path: path}, nil
}

func splitFrontMatter(source string) (*MarkdownHeader, string, error) {
	text := strings.ReplaceAll(source, "\r\n", "\n")
	if !strings.HasPrefix(text, frontMatterFence) {
		return nil, source, nil
	}

	rest := text[len(frontMatterFence):]
	end := strings.Index(rest, "\n"+frontMatterFence)
	if end < 0 {
		// an opening fence with no closing one is just a horizontal rule.
		return nil, source, nil
	}

	header := new(MarkdownHeader)
	if err := yaml.Unmarshal([]byte(rest[:end]), header); err != nil {
		return nil, "", err
	}

	return header, strings.TrimLeft(rest[end+1+len(frontMatterFence):], "\n"), nil
}

// ListMarkdownFiles returns the .md files below dir, sorted.  A missing dir yields no files.
// Files named in skip (base names) are left out, as are their incremented copies (name_2.md, ...).
func ListMarkdownFiles(dir string, skip ...string) ([]string, error) {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("localdump: error opening %s for file tree walk: %w", dir, err)
	}

	skipped := map[string]bool{}
	for _, s := range skip {
		skipped[s] = true
	}

	filenames := []string{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("localdump: error during file tree walk: %w", err)
		}
		if d.IsDir() || !strings.HasSuffix(path, markdownExt) ||
			skipped[d.Name()] || skipped[incrementSuffix.ReplaceAllString(d.Name(), "$1")] {
			return nil
		}
		filenames = append(filenames, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(filenames)
	return filenames, nil
}
