/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/toothbrush/confluence-export/combine"
	"github.com/toothbrush/confluence-export/config"
	"github.com/toothbrush/confluence-export/gemini"
	"github.com/toothbrush/confluence-export/localdump"
	"github.com/toothbrush/confluence-export/ollama"
	"github.com/toothbrush/confluence-export/sqlite"
	"golang.org/x/term"
)

var exportUsage = strings.TrimSpace(`
Export Confluence pages as Markdown, one file per page, laid out like the page tree.

  --mode space     every current page in --space
  --mode subtree   --parent (an ID or page URL) and all of its descendants
  --mode search    pages whose title matches --search; you pick which ones

Ctrl-C stops handing out new pages.  Pages already being fetched finish and the summary is marked
partial.
`)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export pages to Markdown",
	Long:  exportUsage,
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context())
	},
}

var (
	Mode          string
	Space         string
	Parent        string
	Search        string
	Overwrite     string
	DryRun        bool
	Concurrency   int
	MetricsOnly   bool
	NoMetrics     bool
	NoFrontMatter bool
	OnlyChanged   bool
	Prune         bool

	Combine          bool
	CombineBackend   string
	CombineModel     string
	CombineOverwrite string
	OllamaURL        string

	Ledger            string
	WithVCR           bool
	RequestsPerSecond float64
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&Mode, "mode", "", "what to export: space, subtree or search (1, 2, 3)")
	exportCmd.Flags().StringVar(&Space, "space", "", "space key, for --mode space")
	exportCmd.Flags().StringVar(&Parent, "parent", "", "parent page ID or URL, for --mode subtree")
	exportCmd.Flags().StringVar(&Search, "search", "", "title to search for, for --mode search")
	exportCmd.Flags().StringVar(&Overwrite, "overwrite", config.DefaultOverwritePolicy, "when a file exists: overwrite, skip, increment or ask")
	exportCmd.Flags().BoolVarP(&DryRun, "dry-run", "n", false, "report what would be written without touching the disk")
	exportCmd.Flags().IntVarP(&Concurrency, "concurrency", "j", localdump.DefaultWorkers, "pages fetched in parallel")
	exportCmd.Flags().BoolVar(&MetricsOnly, "metrics-only", false, "only write the metrics report")
	exportCmd.Flags().BoolVar(&NoMetrics, "no-metrics", false, "don't write the metrics report")
	exportCmd.Flags().BoolVar(&NoFrontMatter, "no-front-matter", false, "write page bodies without YAML front matter")
	exportCmd.Flags().BoolVar(&OnlyChanged, "only-changed", false, "skip pages whose earlier export is up to date (needs front matter)")
	exportCmd.Flags().BoolVar(&Prune, "prune", false, "remove earlier exports of pages deleted from the space")

	exportCmd.Flags().BoolVar(&Combine, "combine", false, "merge each exported subtree into "+localdump.CombinedFileName)
	exportCmd.Flags().StringVar(&CombineBackend, "combine-backend", "gemini", "how to merge: gemini, ollama or consolidate (no LLM)")
	exportCmd.Flags().StringVar(&CombineModel, "combine-model", "", "model for the combine backend")
	exportCmd.Flags().StringVar(&CombineOverwrite, "combine-overwrite", "overwrite", "when a combined file exists: overwrite or increment")
	exportCmd.Flags().StringVar(&OllamaURL, "ollama-url", "", "Ollama server (default: $OLLAMA_URL or "+ollama.DefaultURL+")")

	exportCmd.Flags().StringVar(&Ledger, "ledger", "", "record the run in this SQLite database")
	exportCmd.Flags().BoolVar(&WithVCR, "with-vcr", false, "use go-vcr to record and replay responses")
	exportCmd.Flags().Float64Var(&RequestsPerSecond, "rps", 0, "limit requests per second (0: unlimited)")
}

func runExport(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := newPrompter()

	base := config.Config{
		SpaceKey:        Space,
		ParentPageRef:   Parent,
		SearchTitle:     Search,
		OverwritePolicy: Overwrite,
		DryRun:          DryRun,
		Concurrency:     Concurrency,
	}
	if Mode != "" {
		mode, err := config.ParseMode(Mode)
		if err != nil {
			return err
		}
		base.Mode = mode
	}

	cfg, err := resolveConfig(base, p, true)
	if err != nil {
		return err
	}
	logger.Debug("resolved config\n" + cfg.String())

	if cfg.OverwritePolicy == "ask" && !p.Interactive() {
		return &config.FatalConfigError{Problems: []string{"--overwrite ask needs a terminal"}}
	}
	policy, err := localdump.ParsePolicy(cfg.OverwritePolicy, p.DecideOverwrite)
	if err != nil {
		return err
	}

	cassette := ""
	if WithVCR {
		cassette = cassetteName
	}
	api, stopRecording, err := newAPI(cfg, cassette, RequestsPerSecond)
	if err != nil {
		return err
	}
	defer func() {
		if err := stopRecording(); err != nil {
			logger.Error("couldn't save recording", "error", err)
		}
	}()

	writer := localdump.NewWriter(cfg.OutputDir, cfg.DryRun)
	exporter := &localdump.Exporter{
		Source:      api,
		Converter:   localdump.NewConverter(api.BaseURI, !NoFrontMatter, logger),
		Writer:      writer,
		Policy:      policy,
		Workers:     cfg.Concurrency,
		MetricsOnly: MetricsOnly,
		NoMetrics:   NoMetrics,
		OnlyChanged: OnlyChanged,
		Prune:       Prune,
		PageURL:     api.PageURL,
		Logger:      logger,
	}

	if Combine {
		combiner, err := newCombiner(ctx, CombineBackend, writer)
		if err != nil {
			return err
		}
		if exporter.CombinePolicy, err = parseCombinePolicy(CombineOverwrite); err != nil {
			return err
		}
		exporter.Combiner = combiner
	}

	switch {
	case Ledger == "":
	case cfg.DryRun:
		logger.Info("dry run, not recording the run", "ledger", Ledger)
	default:
		ledger, closeLedger, err := openLedger(Ledger)
		if err != nil {
			return err
		}
		defer closeLedger()
		exporter.Recorder = ledger
	}

	// Prompts and a progress bar don't mix.
	if !Debug && cfg.OverwritePolicy != "ask" && term.IsTerminal(int(os.Stderr.Fd())) {
		exporter.Progress = newProgressBar(os.Stderr, "Exporting")
	}

	sel := localdump.Selection{
		Mode:        cfg.Mode,
		SpaceKey:    cfg.SpaceKey,
		ParentRef:   cfg.ParentPageRef,
		SearchTitle: cfg.SearchTitle,
	}
	if p.Interactive() {
		sel.Choose = p.ChoosePages
	}

	summary, err := exporter.Export(ctx, sel)
	if summary != nil {
		printSummary(os.Stdout, summary)
	}
	return err
}

func newCombiner(ctx context.Context, backend string, writer *localdump.Writer) (localdump.Combiner, error) {
	switch backend {
	case "gemini":
		client, err := gemini.NewClient(ctx, os.Getenv("GEMINI_API_KEY"), "")
		if err != nil {
			return nil, err
		}
		return combine.NewPostProcessor(gemini.NewGenerator(client, CombineModel), writer, logger), nil

	case "ollama":
		url := OllamaURL
		if url == "" {
			url = os.Getenv("OLLAMA_URL")
		}
		model := CombineModel
		if model == "" {
			model = os.Getenv("OLLAMA_MODEL")
		}
		return combine.NewPostProcessor(ollama.NewGenerator(url, model), writer, logger), nil

	case "consolidate":
		return &combine.Consolidator{Writer: writer}, nil
	}
	return nil, fmt.Errorf("confluence-export: unknown combine backend %q (want gemini, ollama or consolidate)", backend)
}

func parseCombinePolicy(name string) (localdump.Policy, error) {
	switch name {
	case "overwrite", "increment":
		return localdump.ParsePolicy(name, nil)
	}
	return nil, fmt.Errorf("confluence-export: --combine-overwrite must be overwrite or increment, got %q", name)
}

func openLedger(path string) (*sqlite.Ledger, func(), error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, nil, fmt.Errorf("confluence-export: unable to expand homedir: %w", err)
	}
	db := sqlite.NewDB(expanded)
	if err := db.Open(); err != nil {
		return nil, nil, err
	}
	return sqlite.NewLedger(db), func() {
		if err := db.Close(); err != nil {
			logger.Error("couldn't close ledger", "error", err)
		}
	}, nil
}
