package localdump

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Policy says what happens when an export target already exists.  It is one of Overwrite, Skip,
// Increment or Ask.
type Policy interface {
	fmt.Stringer
	policy()
}

// Overwrite always replaces the existing file.
type Overwrite struct{}

// Skip never replaces an existing file.
type Skip struct{}

// Increment writes alongside the existing file as Name_2.md, Name_3.md, ...
type Increment struct{}

// Ask defers to a caller-supplied decision for every collision.  Calls are serialised.
type Ask struct {
	Decide func(path string) Decision
}

func (Overwrite) policy() {}
func (Skip) policy()      {}
func (Increment) policy() {}
func (Ask) policy()       {}

func (Overwrite) String() string { return "overwrite" }
func (Skip) String() string      { return "skip" }
func (Increment) String() string { return "increment" }
func (Ask) String() string       { return "ask" }

// Decision is the answer an Ask policy gives for one colliding path.
type Decision int

const (
	DecideOverwrite Decision = iota
	DecideSkip
	DecideIncrement
)

// ParsePolicy maps a configured policy name onto a Policy.  decide is only used for "ask".
func ParsePolicy(name string, decide func(path string) Decision) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "overwrite":
		return Overwrite{}, nil
	case "skip":
		return Skip{}, nil
	case "increment":
		return Increment{}, nil
	case "ask":
		if decide == nil {
			return nil, fmt.Errorf("localdump: overwrite policy 'ask' needs an interactive terminal")
		}
		return Ask{Decide: decide}, nil
	}
	return nil, fmt.Errorf("localdump: unknown overwrite policy %q (want overwrite, skip, increment or ask)", name)
}

// Writer places Markdown files below Root according to an overwrite policy.  It is safe for
// concurrent use: collision handling and file creation are serialised per directory, and paths
// claimed earlier in the run count as existing even in a dry run.
type Writer struct {
	Root   string
	DryRun bool

	mu       sync.Mutex
	dirLocks map[string]*sync.Mutex
	claimed  map[string]bool

	askMu sync.Mutex
}

func NewWriter(root string, dryRun bool) *Writer {
	return &Writer{
		Root:     root,
		DryRun:   dryRun,
		dirLocks: map[string]*sync.Mutex{},
		claimed:  map[string]bool{},
	}
}

// Write stores one exported page.  Failures are reported in the outcome, not returned.
func (w *Writer) Write(target ExportTarget, markdown string, policy Policy) FetchOutcome {
	dir := filepath.Join(append([]string{w.Root}, target.Dir...)...)

	status, path, err := w.place(dir, target.Name, target.Ext, markdown, policy)
	outcome := FetchOutcome{
		Ref:    target.Ref,
		Status: status,
		Path:   path,
		Err:    err,
	}
	return outcome
}

// WriteDocument stores a file that isn't a page, such as a combined document, at relPath below
// Root under the same rules.
func (w *Writer) WriteDocument(relPath string, markdown string, policy Policy) (Status, string, error) {
	dir := filepath.Join(w.Root, filepath.Dir(relPath))
	ext := filepath.Ext(relPath)
	name := strings.TrimSuffix(filepath.Base(relPath), ext)

	return w.place(dir, name, ext, markdown, policy)
}

func (w *Writer) place(dir, name, ext, content string, policy Policy) (Status, string, error) {
	lock := w.dirLock(dir)
	lock.Lock()
	defer lock.Unlock()

	path := filepath.Join(dir, name+ext)

	exists, err := w.exists(path)
	if err != nil {
		return StatusFailed, path, err
	}
	if !exists {
		return w.commit(path, content, false)
	}

	switch p := policy.(type) {
	case Overwrite:
		return w.commit(path, content, false)
	case Skip:
		return w.skip(path)
	case Increment:
		return w.increment(dir, name, ext, content)
	case Ask:
		w.askMu.Lock()
		decision := p.Decide(path)
		w.askMu.Unlock()

		switch decision {
		case DecideOverwrite:
			return w.commit(path, content, false)
		case DecideSkip:
			return w.skip(path)
		case DecideIncrement:
			return w.increment(dir, name, ext, content)
		}
		return StatusFailed, path, fmt.Errorf("localdump: unknown decision %d for %s", decision, path)
	case nil:
		return StatusFailed, path, fmt.Errorf("localdump: no overwrite policy for %s", path)
	default:
		return StatusFailed, path, fmt.Errorf("localdump: unhandled overwrite policy %T", policy)
	}
}

func (w *Writer) skip(path string) (Status, string, error) {
	if w.DryRun {
		return StatusWouldSkip, path, nil
	}
	return StatusSkipped, path, nil
}

// increment picks one more than the highest existing suffix, starting at _2, so suffixes only
// ever grow.
func (w *Writer) increment(dir, name, ext, content string) (Status, string, error) {
	n, err := w.nextSuffix(dir, name, ext)
	if err != nil {
		return StatusFailed, filepath.Join(dir, name+ext), err
	}

	for ; ; n++ {
		path := filepath.Join(dir, fmt.Sprintf("%s_%d%s", name, n, ext))
		status, path, err := w.commit(path, content, true)
		if errors.Is(err, fs.ErrExist) {
			// someone outside this process got there first
			continue
		}
		return status, path, err
	}
}

func (w *Writer) nextSuffix(dir, name, ext string) (int, error) {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(name) + `_(\d+)` + regexp.QuoteMeta(ext) + `$`)

	highest := 1
	consider := func(base string) {
		if m := pattern.FindStringSubmatch(base); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
				highest = n
			}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("localdump: couldn't list %s: %w", dir, err)
	}
	for _, e := range entries {
		consider(e.Name())
	}

	w.mu.Lock()
	for p := range w.claimed {
		if filepath.Dir(p) == dir {
			consider(filepath.Base(p))
		}
	}
	w.mu.Unlock()

	return highest + 1, nil
}

// commit writes content to path, or in a dry run records that it would have.
func (w *Writer) commit(path, content string, exclusive bool) (Status, string, error) {
	if w.DryRun {
		w.claim(path)
		return StatusWouldWrite, path, nil
	}

	// there's probably a nicer way to express 0750 but meh
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return StatusFailed, path, fmt.Errorf("localdump: couldn't create directory %s: %w", filepath.Dir(path), err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if exclusive {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0640)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return StatusFailed, path, err
		}
		return StatusFailed, path, fmt.Errorf("localdump: couldn't create file %s: %w", path, err)
	}

	if _, err = f.WriteString(content); err != nil {
		f.Close()
		return StatusFailed, path, fmt.Errorf("localdump: couldn't write to file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return StatusFailed, path, fmt.Errorf("localdump: couldn't close file %s: %w", path, err)
	}

	w.claim(path)
	return StatusWritten, path, nil
}

func (w *Writer) exists(path string) (bool, error) {
	w.mu.Lock()
	claimed := w.claimed[path]
	w.mu.Unlock()
	if claimed {
		return true, nil
	}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("localdump: cannot stat '%s': %w", path, err)
	}
}

func (w *Writer) claim(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.claimed == nil {
		w.claimed = map[string]bool{}
	}
	w.claimed[path] = true
}

func (w *Writer) dirLock(dir string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirLocks == nil {
		w.dirLocks = map[string]*sync.Mutex{}
	}
	l, ok := w.dirLocks[dir]
	if !ok {
		l = &sync.Mutex{}
		w.dirLocks[dir] = l
	}
	return l
}
