package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/newthinker/algotrade/internal/backtest"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

var (
	backtestSymbol   string
	backtestFrom     string
	backtestTo       string
	backtestCapital  float64
	backtestFraction float64
	backtestTrades   bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [strategy]",
	Short: "Run backtest on a strategy",
	Long:  "Run a strategy against historical data and show performance statistics",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestSymbol, "symbol", "", "Symbol to backtest (required)")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "Start date YYYY-MM-DD (required)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "End date YYYY-MM-DD (required)")
	backtestCmd.Flags().Float64Var(&backtestCapital, "capital", 0, "initial capital (default: backtest.initial_capital)")
	backtestCmd.Flags().Float64Var(&backtestFraction, "fraction", 0, "fraction of cash per entry (default: backtest.position_fraction)")
	backtestCmd.Flags().BoolVar(&backtestTrades, "trades", false, "print every closed trade")

	backtestCmd.MarkFlagRequired("symbol")
	backtestCmd.MarkFlagRequired("from")
	backtestCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	fromDate, err := time.Parse(dateLayout, backtestFrom)
	if err != nil {
		return fmt.Errorf("invalid from date format (expected YYYY-MM-DD): %w", err)
	}
	toDate, err := time.Parse(dateLayout, backtestTo)
	if err != nil {
		return fmt.Errorf("invalid to date format (expected YYYY-MM-DD): %w", err)
	}
	if toDate.Before(fromDate) {
		return fmt.Errorf("end date must not be before start date")
	}

	_, _, a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := backtest.Config{
		Symbol:           strings.ToUpper(backtestSymbol),
		Start:            fromDate,
		End:              toDate,
		InitialCapital:   backtestCapital,
		PositionFraction: backtestFraction,
	}
	if len(args) == 1 {
		cfg.Strategy = args[0]
	}

	res, err := a.RunBacktest(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	printReport(cmd, res)
	if backtestTrades {
		return printTrades(cmd, res.Trades)
	}
	return nil
}

func printReport(cmd *cobra.Command, res *backtest.Result) {
	out := cmd.OutOrStdout()
	r := res.Report

	fmt.Fprintln(out, "=== algotrade Backtest ===")
	fmt.Fprintf(out, "Run:      %s\n", res.RunID)
	fmt.Fprintf(out, "Strategy: %s\n", res.Strategy)
	fmt.Fprintf(out, "Symbol:   %s\n", res.Config.Symbol)
	fmt.Fprintf(out, "Period:   %s to %s\n", res.Config.Start.Format(dateLayout), res.Config.End.Format(dateLayout))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Initial capital\t%.2f\n", res.Config.InitialCapital)
	fmt.Fprintf(w, "Final capital\t%.2f\n", r.FinalCapital)
	fmt.Fprintf(w, "Total return\t%.2f (%.2f%%)\n", r.TotalReturn, r.TotalReturnPct)
	fmt.Fprintf(w, "Trades\t%d (%d won, %d lost)\n", r.TotalTrades, r.WinningTrades, r.LosingTrades)
	fmt.Fprintf(w, "Win rate\t%.2f%%\n", r.WinRate)
	fmt.Fprintf(w, "Avg win / loss\t%.2f / %.2f\n", r.AvgWin, r.AvgLoss)
	fmt.Fprintf(w, "Profit factor\t%.2f\n", r.ProfitFactor)
	fmt.Fprintf(w, "Sharpe ratio\t%.2f\n", r.SharpeRatio)
	fmt.Fprintf(w, "Max drawdown\t%.2f (%.2f%%)\n", r.MaxDrawdown, r.MaxDrawdownPct)
	if res.SkippedBars > 0 {
		fmt.Fprintf(w, "Skipped bars\t%d\n", res.SkippedBars)
	}
	w.Flush()
}

func printTrades(cmd *cobra.Command, trades []backtest.ClosedTrade) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENTRY\tEXIT\tSIDE\tQTY\tENTRY PX\tEXIT PX\tP&L\tP&L %\tSTATUS\t")
	fmt.Fprintln(w, "-----\t----\t----\t---\t--------\t-------\t---\t-----\t------\t")
	for _, t := range trades {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t\n",
			t.EntryDate.Format(dateLayout),
			t.ExitDate.Format(dateLayout),
			t.Type,
			t.Quantity,
			t.EntryPrice,
			t.ExitPrice,
			t.PnL,
			t.PnLPct,
			t.Outcome,
		)
	}
	return w.Flush()
}
