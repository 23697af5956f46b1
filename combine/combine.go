// Package combine merges batches of exported pages into a single document.
package combine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/toothbrush/confluence-export/localdump"
)

const (
	// Prompt precedes the concatenated files.
	Prompt = "combine these files into 1. preserve all unique information. " +
		"improve readability and flow. create sections and reorder information based on need and where applicable"

	SystemInstruction = "You are a helpful technical writer."
)

// ErrEmptyResponse is returned when a generator produces no text.
var ErrEmptyResponse = errors.New("combine: generator returned an empty response")

// Generator turns a prompt into text.  gemini.Generator and ollama.Generator implement it.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Ensure the combiners implement localdump.Combiner at compile time.
var (
	_ localdump.Combiner = (*PostProcessor)(nil)
	_ localdump.Combiner = (*Consolidator)(nil)
)

// PostProcessor asks a Generator to merge a batch of files.
type PostProcessor struct {
	Generator Generator
	Writer    *localdump.Writer
	Logger    *slog.Logger
}

func NewPostProcessor(gen Generator, writer *localdump.Writer, logger *slog.Logger) *PostProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostProcessor{Generator: gen, Writer: writer, Logger: logger}
}

// Combine merges paths and writes the result to outputPath, relative to the writer's root.
func (p *PostProcessor) Combine(ctx context.Context, paths []string, outputPath string, policy localdump.Policy) (localdump.CombinedDocument, error) {
	doc := localdump.CombinedDocument{SourcePaths: paths, OutputPath: outputPath}

	prompt, err := p.BuildPrompt(paths)
	if err != nil {
		return doc, err
	}

	p.Logger.Debug("asking generator to combine files", "files", len(paths), "prompt_len", len(prompt))
	merged, err := p.Generator.Generate(ctx, SystemInstruction, prompt)
	if err != nil {
		return doc, fmt.Errorf("combine: generation failed: %w", err)
	}
	merged = strings.TrimSpace(merged)
	if merged == "" {
		return doc, ErrEmptyResponse
	}
	doc.MergedText = merged

	return write(p.Writer, doc, policy)
}

// BuildPrompt concatenates the bodies of paths under a heading per file.  Unreadable files are
// left out; it is an error only if none can be read.
func (p *PostProcessor) BuildPrompt(paths []string) (string, error) {
	var sb strings.Builder
	sb.WriteString(Prompt)
	sb.WriteString("\n\n")

	read := 0
	for _, path := range paths {
		md, err := localdump.ReadMarkdown(path)
		if err != nil {
			p.Logger.Warn("leaving file out of combination", "path", path, "error", err)
			continue
		}
		read++
		fmt.Fprintf(&sb, "\n\n---\n\n# %s\n\n%s", filepath.Base(path), md.Body)
	}
	if read == 0 {
		return "", fmt.Errorf("combine: none of the %d files could be read", len(paths))
	}
	return sb.String(), nil
}

func write(w *localdump.Writer, doc localdump.CombinedDocument, policy localdump.Policy) (localdump.CombinedDocument, error) {
	status, path, err := w.WriteDocument(doc.OutputPath, doc.MergedText+"\n", policy)
	if err != nil {
		return doc, fmt.Errorf("combine: couldn't write %s: %w", doc.OutputPath, err)
	}
	doc.Status = status
	if path != "" {
		doc.OutputPath = path
	}
	return doc, nil
}
