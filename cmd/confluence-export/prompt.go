package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/toothbrush/confluence-export/config"
	"github.com/toothbrush/confluence-export/confluence"
	"github.com/toothbrush/confluence-export/localdump"
	"golang.org/x/term"
)

// prompter asks the user for input on a terminal.  Every method is safe to call from worker
// goroutines; questions are asked one at a time.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int

	interactive bool

	mu     sync.Mutex
	sticky *localdump.Decision
}

func newPrompter() *prompter {
	fd := int(os.Stdin.Fd())
	return &prompter{
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stderr,
		fd:          fd,
		interactive: term.IsTerminal(fd),
	}
}

func (p *prompter) Interactive() bool {
	return p != nil && p.interactive
}

func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("confluence-export: couldn't read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (p *prompter) askSecret(question string) (string, error) {
	fmt.Fprint(p.out, question)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("confluence-export: couldn't read secret: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// FillMissing prompts for unset connection settings and, when full is set, for the selection.
func (p *prompter) FillMissing(cfg *config.Config, full bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if config.IsUnset(cfg.BaseURL) {
		if cfg.BaseURL, err = p.ask("Confluence base URL (e.g. https://ORG.atlassian.net/wiki): "); err != nil {
			return err
		}
	}
	if config.IsUnset(cfg.Username) {
		if cfg.Username, err = p.ask("Confluence username (email): "); err != nil {
			return err
		}
	}
	if config.IsUnset(cfg.APIToken) {
		if cfg.APIToken, err = p.askSecret("Confluence API token: "); err != nil {
			return err
		}
	}
	if !full {
		return nil
	}

	if cfg.Mode == "" {
		answer, err := p.ask("Select download mode:\n  1. Entire space\n  2. Page and its descendants\n  3. Search by title\nMode [1]: ")
		if err != nil {
			return err
		}
		if answer == "" {
			answer = "1"
		}
		if cfg.Mode, err = config.ParseMode(answer); err != nil {
			return err
		}
	}

	switch cfg.Mode {
	case localdump.ModeSpace:
		if config.IsUnset(cfg.SpaceKey) {
			cfg.SpaceKey, err = p.ask("Space key: ")
		}
	case localdump.ModeSubtree:
		if config.IsUnset(cfg.ParentPageRef) {
			cfg.ParentPageRef, err = p.ask("Parent page ID or URL: ")
		}
	case localdump.ModeSearch:
		if config.IsUnset(cfg.SearchTitle) {
			cfg.SearchTitle, err = p.ask("Page title to search for: ")
		}
	}
	return err
}

// DecideOverwrite is the callback for the ask policy.
func (p *prompter) DecideOverwrite(path string) localdump.Decision {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sticky != nil {
		return *p.sticky
	}

	for {
		answer, err := p.ask(fmt.Sprintf("File '%s' exists. Overwrite? (y/n/a=all/s=skip all/i=increment all) [default: y]: ", path))
		if err != nil {
			// Nobody to ask; keep what is there.
			return localdump.DecideSkip
		}
		decision, sticky, ok := parseDecision(answer)
		if !ok {
			fmt.Fprintln(p.out, "Please answer y, n, a, s or i.")
			continue
		}
		if sticky {
			p.sticky = &decision
		}
		return decision
	}
}

func parseDecision(answer string) (decision localdump.Decision, sticky bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "", "y", "yes":
		return localdump.DecideOverwrite, false, true
	case "n", "no":
		return localdump.DecideSkip, false, true
	case "a", "all":
		return localdump.DecideOverwrite, true, true
	case "s":
		return localdump.DecideSkip, true, true
	case "i":
		return localdump.DecideIncrement, true, true
	}
	return localdump.DecideOverwrite, false, false
}

// ChoosePages lets the user pick from search results.
func (p *prompter) ChoosePages(candidates []confluence.PageRef) ([]confluence.PageRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "Found %d matching pages:\n", len(candidates))
	printCandidates(p.out, candidates)

	for {
		answer, err := p.ask("Select pages to export (comma-separated numbers or 'all'): ")
		if err != nil {
			return nil, err
		}
		idx, err := parseSelection(answer, len(candidates))
		if err != nil {
			fmt.Fprintln(p.out, err)
			continue
		}
		chosen := make([]confluence.PageRef, 0, len(idx))
		for _, i := range idx {
			chosen = append(chosen, candidates[i])
		}
		return chosen, nil
	}
}

func printCandidates(w io.Writer, candidates []confluence.PageRef) {
	for i, c := range candidates {
		where := c.SpaceKey
		if len(c.AncestorTitles) > 0 {
			where += " / " + strings.Join(c.AncestorTitles, " / ")
		}
		fmt.Fprintf(w, "  %2d. %s  (%s, id %s)\n", i+1, c.Title, where, c.ID)
	}
}

// parseSelection turns "1,3-4" or "all" into sorted, distinct zero-based indices below n.
func parseSelection(answer string, n int) ([]int, error) {
	answer = strings.TrimSpace(strings.ToLower(answer))
	if answer == "all" || answer == "a" {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	if answer == "" {
		return nil, errors.New("nothing selected")
	}

	seen := map[int]bool{}
	for _, part := range strings.Split(answer, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			hi = lo
		}
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", part)
		}
		to, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", part)
		}
		if from < 1 || to > n || from > to {
			return nil, fmt.Errorf("%q is out of range 1-%d", part, n)
		}
		for i := from; i <= to; i++ {
			seen[i-1] = true
		}
	}

	if len(seen) == 0 {
		return nil, errors.New("nothing selected")
	}

	picked := make([]int, 0, len(seen))
	for i := range seen {
		picked = append(picked, i)
	}
	sort.Ints(picked)
	return picked, nil
}
