// Package report contains the report command
package report

import (
	"fmt"
	"time"

	"softetsolutions/mattax/cmd/root"
	"softetsolutions/mattax/internal/dateutils"
	"softetsolutions/mattax/internal/report"

	"github.com/spf13/cobra"
)

var (
	fromDate     string
	toDate       string
	outputFile   string
	outputFormat string
)

// Cmd represents the report command
var Cmd = &cobra.Command{
	Use:   "report",
	Short: "Summarise money in and out per vendor",
	Long: `Summarise money in and money out per vendor for the transactions created in a date range.
Both bounds are inclusive and optional. The report is printed or written to --output.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat != report.FormatCSV && outputFormat != report.FormatJSON {
			return fmt.Errorf("unsupported output format: %s. Must be 'csv' or 'json'", outputFormat)
		}
		from, err := parseBound(fromDate)
		if err != nil {
			return err
		}
		to, err := parseBound(toDate)
		if err != nil {
			return err
		}

		c, err := root.SessionContainer()
		if err != nil {
			return err
		}
		ctx := root.Context(cmd)
		if err := c.Resolver().Load(ctx, c.Session()); err != nil {
			root.Log.WithError(err).Warn("Vendor names unavailable")
		}

		gen := c.Reports()
		txs, err := gen.Collect(ctx, c.Service().ListTransactions, c.Session())
		if err != nil {
			return fmt.Errorf("failed to load transactions: %w", err)
		}
		summary := gen.Summarize(txs, from, to)

		if outputFile != "" {
			return gen.WriteFile(summary, outputFormat, outputFile)
		}
		out, err := gen.GenerateReport(summary, outputFormat)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func parseBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, _, err := dateutils.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func init() {
	Cmd.Flags().StringVar(&fromDate, "from", "", "First day included")
	Cmd.Flags().StringVar(&toDate, "to", "", "Last day included")
	Cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	Cmd.Flags().StringVarP(&outputFormat, "format", "f", report.FormatCSV, "Output format (csv, json)")
}
