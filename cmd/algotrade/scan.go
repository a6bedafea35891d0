package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	scanSymbols       []string
	scanMinConfidence int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan over the configured symbols",
	Long:  "Score every symbol once, route qualifying signals to storage and notifiers, and print them",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringSliceVar(&scanSymbols, "symbols", nil, "symbols to scan (default: scanner.symbols)")
	scanCmd.Flags().IntVar(&scanMinConfidence, "min-confidence", 0, "minimum confidence (default: router.min_confidence)")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	_, _, a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	symbols := make([]string, 0, len(scanSymbols))
	for _, s := range scanSymbols {
		symbols = append(symbols, strings.ToUpper(strings.TrimSpace(s)))
	}

	res, err := a.ScanOnce(cmd.Context(), symbols, scanMinConfidence)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanned %d, generated %d, saved %d, failed %d\n\n",
		res.Scanned, res.Generated, res.Saved, res.Failed)

	if len(res.Signals) == 0 {
		fmt.Fprintln(out, "No signals")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tSIGNAL\tCONF\tENTRY\tSTOP\tTARGET\tR:R\tSTRATEGY\t")
	fmt.Fprintln(w, "------\t------\t----\t-----\t----\t------\t---\t--------\t")
	for _, s := range res.Signals {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t\n",
			s.Symbol, s.Action, s.Confidence, s.EntryPrice, s.StopLoss, s.Target, s.RiskReward, s.Strategy)
	}
	return w.Flush()
}
