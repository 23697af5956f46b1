/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/toothbrush/confluence-export/localdump"
)

var historyUsage = strings.TrimSpace(`
Show previous export runs recorded with 'export --ledger PATH'.  Pass a run ID to list its pages.
`)

var HistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history [RUN-ID]",
	Short: "Show recorded export runs",
	Long:  historyUsage,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Ledger == "" {
			return fmt.Errorf("confluence-export: no ledger, use --ledger or set it in your config file")
		}
		ledger, closeLedger, err := openLedger(Ledger)
		if err != nil {
			return err
		}
		defer closeLedger()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer w.Flush()

		if len(args) == 1 {
			pages, err := ledger.Pages(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "PAGE\tSTATUS\tHASH\tPATH / ERROR")
			for _, p := range pages {
				detail := p.Path
				if p.Status == localdump.StatusFailed {
					detail = p.Error
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.PageID, p.Status, p.ContentHash, detail)
			}
			return nil
		}

		runs, err := ledger.Runs(cmd.Context(), HistoryLimit)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "RUN\tSTARTED\tSCOPE\tWRITTEN\tSKIPPED\tFAILED\tELAPSED\t")
		for _, r := range runs {
			partial := ""
			if r.Partial {
				partial = fmt.Sprintf("partial, %d not dispatched", r.NotDispatched)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
				r.ID, r.Started.Local().Format(time.DateTime), r.Scope,
				r.Written, r.Skipped, r.Failed, r.Elapsed.Round(time.Second), partial)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&Ledger, "ledger", "", "SQLite database written by 'export --ledger'")
	historyCmd.Flags().IntVar(&HistoryLimit, "limit", 20, "number of runs to show (0: all)")
}
