package main

import (
	"fmt"

	"github.com/newthinker/finsight/internal/core"
	"github.com/newthinker/finsight/internal/logger"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <TICKER>",
	Short: "Analyze a ticker and print the insight",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	a, _, err := loadApp(cmd.Context(), log)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, result, err := a.Analyze(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", snap.CompanyName, snap.Ticker)
	fmt.Fprintf(out, "  Sector:  %s\n", snap.Sector)
	fmt.Fprintf(out, "  Price:   %.2f (%+.2f%%)\n", snap.Price, snap.PercentChange)
	fmt.Fprintf(out, "  P/E:     %s\n", optional(snap.PERatio))
	fmt.Fprintf(out, "  Beta:    %s\n", optional(snap.Beta))
	fmt.Fprintf(out, "\n%s\n\n[%s]\n", result.Text, result.Strategy)
	return nil
}

func optional(v *float64) string {
	if v == nil {
		return core.NotAvailable
	}
	return fmt.Sprintf("%.2f", *v)
}
