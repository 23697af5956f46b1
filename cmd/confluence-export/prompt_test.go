package main

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toothbrush/confluence-export/confluence"
	"github.com/toothbrush/confluence-export/localdump"
)

func TestParseSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{in: "all", want: []int{0, 1, 2, 3, 4}},
		{in: "1", want: []int{0}},
		{in: "3, 1", want: []int{0, 2}},
		{in: "2-4", want: []int{1, 2, 3}},
		{in: "1,1,2-3,3", want: []int{0, 1, 2}},
		{in: "", wantErr: true},
		{in: ",", wantErr: true},
		{in: "0", wantErr: true},
		{in: "6", wantErr: true},
		{in: "4-2", wantErr: true},
		{in: "two", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseSelection(tt.in, 5)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseDecision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		decision localdump.Decision
		sticky   bool
		ok       bool
	}{
		{"", localdump.DecideOverwrite, false, true},
		{"Y", localdump.DecideOverwrite, false, true},
		{"n", localdump.DecideSkip, false, true},
		{"a", localdump.DecideOverwrite, true, true},
		{"s", localdump.DecideSkip, true, true},
		{"i", localdump.DecideIncrement, true, true},
		{"maybe", localdump.DecideOverwrite, false, false},
	}
	for _, tt := range tests {
		decision, sticky, ok := parseDecision(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if !ok {
			continue
		}
		assert.Equal(t, tt.decision, decision, tt.in)
		assert.Equal(t, tt.sticky, sticky, tt.in)
	}
}

func scripted(input string) (*prompter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &prompter{in: bufio.NewReader(strings.NewReader(input)), out: out, interactive: true}, out
}

func TestPrompter_DecideOverwrite(t *testing.T) {
	t.Parallel()

	p, out := scripted("what\nn\ns\n")

	assert.Equal(t, localdump.DecideSkip, p.DecideOverwrite("a.md"))
	assert.Contains(t, out.String(), "File 'a.md' exists. Overwrite?")
	assert.Contains(t, out.String(), "Please answer")

	assert.Equal(t, localdump.DecideSkip, p.DecideOverwrite("b.md"))
	// "s" sticks without asking again, even though the input is exhausted.
	assert.Equal(t, localdump.DecideSkip, p.DecideOverwrite("c.md"))
	assert.NotContains(t, out.String(), "File 'c.md'")
}

func TestPrompter_ChoosePages(t *testing.T) {
	t.Parallel()

	candidates := []confluence.PageRef{
		{ID: "1", Title: "Runbook", SpaceKey: "OPS"},
		{ID: "2", Title: "Runbook (old)", SpaceKey: "OPS", AncestorTitles: []string{"Archive"}},
		{ID: "3", Title: "Runbook draft", SpaceKey: "DEV"},
	}

	p, out := scripted("9\n1,3\n")
	chosen, err := p.ChoosePages(candidates)
	require.NoError(t, err)

	assert.Equal(t, []confluence.PageRef{candidates[0], candidates[2]}, chosen)
	assert.Contains(t, out.String(), "Runbook (old)  (OPS / Archive, id 2)")
	assert.Contains(t, out.String(), "out of range")
}
