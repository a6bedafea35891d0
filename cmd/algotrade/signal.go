package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var signalStrategy string

var signalCmd = &cobra.Command{
	Use:   "signal [symbol]",
	Short: "Generate an on-demand signal for one symbol",
	Long:  "Fetch recent history for a symbol, compute indicators and print the scored signal as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runSignal,
}

func init() {
	signalCmd.Flags().StringVarP(&signalStrategy, "strategy", "s", "", "strategy name (default combined)")
	rootCmd.AddCommand(signalCmd)
}

func runSignal(cmd *cobra.Command, args []string) error {
	_, _, a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	symbol := strings.ToUpper(args[0])
	res, err := a.Signal(cmd.Context(), symbol, signalStrategy)
	if err != nil {
		return fmt.Errorf("generating signal for %s: %w", symbol, err)
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
