package localdump_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/toothbrush/confluence-export/confluence"
	"github.com/toothbrush/confluence-export/localdump"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	t.Run("nests pages under their ancestors within the space", func(t *testing.T) {
		t.Parallel()

		parent := localdump.Resolve(confluence.PageRef{ID: "1", Title: "Parent", SpaceKey: "DEV"})
		child := localdump.Resolve(confluence.PageRef{ID: "2", Title: "Child", SpaceKey: "DEV", AncestorTitles: []string{"Parent"}})

		assert.Equal(t, filepath.Join("DEV", "Parent.md"), parent.RelativePath())
		assert.Equal(t, filepath.Join("DEV", "Parent", "Child.md"), child.RelativePath())
	})

	t.Run("is deterministic", func(t *testing.T) {
		t.Parallel()

		ref := confluence.PageRef{ID: "9", Title: "How/To: *Deploy*?", SpaceKey: "OPS", AncestorTitles: []string{"Guides  ", "  Runbooks"}}
		assert.Equal(t, localdump.Resolve(ref), localdump.Resolve(ref))
		assert.Equal(t, filepath.Join("OPS", "Guides", "Runbooks", "How_To_ _Deploy_.md"), localdump.Resolve(ref).RelativePath())
	})

	t.Run("works without a space key", func(t *testing.T) {
		t.Parallel()

		target := localdump.Resolve(confluence.PageRef{ID: "3", Title: "Loose"})
		assert.Equal(t, "Loose.md", target.RelativePath())
	})
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Parent":               "Parent",
		"  padded  ":           "padded",
		`a\b/c*d?e"f:g<h>i|j`:  "a_b_c_d_e_f_g_h_i_j",
		"many   inner\tspaces": "many inner spaces",
		"a//b":                 "a_b",
		"...":                  "Untitled",
		"":                     "Untitled",
		"/":                    "Untitled",
		"Release Notes v1.2.":  "Release Notes v1.2",
		"MiXeD Case":           "MiXeD Case",
		"line\nbreak":          "line break",
		"tab\x00null":          "tab_null",
	}

	for in, want := range tests {
		assert.Equal(t, want, localdump.Sanitize(in), "input %q", in)
	}
}

func TestSubtreeKey(t *testing.T) {
	t.Parallel()

	root := localdump.Resolve(confluence.PageRef{Title: "Parent", SpaceKey: "DEV"})
	child := localdump.Resolve(confluence.PageRef{Title: "Child", SpaceKey: "DEV", AncestorTitles: []string{"Parent"}})
	deep := localdump.Resolve(confluence.PageRef{Title: "Leaf", SpaceKey: "DEV", AncestorTitles: []string{"Parent", "Child"}})
	other := localdump.Resolve(confluence.PageRef{Title: "Other", SpaceKey: "DEV"})

	want := filepath.Join("DEV", "Parent")
	assert.Equal(t, want, localdump.SubtreeKey(root))
	assert.Equal(t, want, localdump.SubtreeKey(child))
	assert.Equal(t, want, localdump.SubtreeKey(deep))
	assert.Equal(t, filepath.Join("DEV", "Other"), localdump.SubtreeKey(other))
}

func TestPageLinks_Href(t *testing.T) {
	t.Parallel()

	refs := []confluence.PageRef{
		{ID: "1", Title: "Parent", SpaceKey: "DEV"},
		{ID: "2", Title: "Child", SpaceKey: "DEV", AncestorTitles: []string{"Parent"}},
		{ID: "3", Title: "Other Page", SpaceKey: "DEV"},
		{ID: "4", Title: "Runbook", SpaceKey: "OPS", AncestorTitles: []string{"Guides"}},
	}
	links := localdump.NewPageLinks(refs)
	child := localdump.Resolve(refs[1])
	parent := localdump.Resolve(refs[0])

	tests := []struct {
		name   string
		from   localdump.ExportTarget
		space  string
		title  string
		want   string
		wantOK bool
	}{
		{name: "up one level", from: child, title: "Other Page", want: "../Other%20Page.md", wantOK: true},
		{name: "down into a subtree", from: parent, title: "Child", want: "Parent/Child.md", wantOK: true},
		{name: "sibling", from: parent, title: "Other Page", want: "Other%20Page.md", wantOK: true},
		{name: "other space", from: child, space: "OPS", title: "Runbook", want: "../../OPS/Guides/Runbook.md", wantOK: true},
		{name: "wrong space", from: child, space: "OPS", title: "Parent"},
		{name: "not exported", from: child, title: "Elsewhere"},
	}
	for _, tt := range tests {
		got, ok := links.Href(tt.from, tt.space, tt.title)
		assert.Equal(t, tt.wantOK, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}
