package localdump

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/toothbrush/confluence-export/confluence"
)

const (
	markdownExt = ".md"

	// Keeps room for an _N suffix inside the usual 255-byte filename limit.
	maxSegmentBytes = 200
)

var (
	unsafePathChars = regexp.MustCompile(`[\\/*?":<>|\x00-\x1f\x7f]`)
	underscoreRuns  = regexp.MustCompile(`_{2,}`)
)

// ExportTarget is where a page lands, relative to the output directory.
type ExportTarget struct {
	Ref confluence.PageRef

	// Directory segments, root first.  The space key leads when the page has one.
	Dir []string

	// Sanitized title, without extension.
	Name string
	Ext  string
}

// RelativePath joins the target into an OS path below the output directory.
func (t ExportTarget) RelativePath() string {
	parts := append(append([]string{}, t.Dir...), t.Name+t.Ext)
	return filepath.Join(parts...)
}

// Resolve maps a page to its export location: space key, then each ancestor title, then the page
// title as the file name.  It only looks at the PageRef, so it is deterministic.
func Resolve(ref confluence.PageRef) ExportTarget {
	dir := make([]string, 0, len(ref.AncestorTitles)+1)
	if ref.SpaceKey != "" {
		dir = append(dir, Sanitize(ref.SpaceKey))
	}
	for _, title := range ref.AncestorTitles {
		dir = append(dir, Sanitize(title))
	}

	return ExportTarget{
		Ref:  ref,
		Dir:  dir,
		Name: Sanitize(ref.Title),
		Ext:  markdownExt,
	}
}

// Sanitize turns a title into a single safe path segment.  Characters that are illegal on common
// filesystems become underscores, whitespace is collapsed, and an empty result becomes "Untitled".
// Case is kept.
func Sanitize(title string) string {
	s := strings.Join(strings.Fields(title), " ")
	s = unsafePathChars.ReplaceAllString(s, "_")
	s = underscoreRuns.ReplaceAllString(s, "_")
	s = strings.Trim(s, ". ")

	if len(s) > maxSegmentBytes {
		s = s[:maxSegmentBytes]
		for !utf8.ValidString(s) {
			s = s[:len(s)-1]
		}
		s = strings.TrimRight(s, ". ")
	}

	if s == "" || s == "_" {
		return "Untitled"
	}
	return s
}

// SubtreeKey names the batch a target belongs to when combining: the top-level page below the
// space (or below the output root when there's no space).  A top-level page shares the key of its
// own children.
func SubtreeKey(t ExportTarget) string {
	segments := append(append([]string{}, t.Dir...), t.Name)

	depth := 1
	if t.Ref.SpaceKey != "" {
		depth = 2
	}
	if len(segments) < depth {
		depth = len(segments)
	}
	return filepath.Join(segments[:depth]...)
}

// PageLinks finds where linked pages of the same run were exported, keyed by space and title.
type PageLinks map[string]ExportTarget

func linkKey(space, title string) string {
	return space + "\x00" + title
}

// NewPageLinks indexes the export targets of refs.
func NewPageLinks(refs []confluence.PageRef) PageLinks {
	links := make(PageLinks, len(refs))
	for _, ref := range refs {
		links[linkKey(ref.SpaceKey, ref.Title)] = Resolve(ref)
	}
	return links
}

// Href returns a relative, URL-escaped link from the page exported at from to the page titled
// title.  An empty space means the space of from.  It reports false for pages outside the run.
func (l PageLinks) Href(from ExportTarget, space, title string) (string, bool) {
	if space == "" {
		space = from.Ref.SpaceKey
	}
	to, ok := l[linkKey(space, title)]
	if !ok {
		return "", false
	}

	// Both paths live below the same root, so this can't fail.
	rel, err := filepath.Rel(filepath.Join(append([]string{"."}, from.Dir...)...), to.RelativePath())
	if err != nil {
		return "", false
	}

	segments := strings.Split(filepath.ToSlash(rel), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/"), true
}
