package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"AnalystScanner/internal/domain"
)

var scanDay *string

func init() {
	scanDay = scanCmd.Flags().String("day", "", "Day to scan as YYYY-MM-DD (default: today in the configured timezone).")
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan [--day YYYY-MM-DD]",
	Short: "Scans the feed once, stores new announcements, sends digests and prints the records.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, logger, err := newApplication(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		day := application.Today()
		if *scanDay != "" {
			day, err = time.ParseInLocation(time.DateOnly, *scanDay, application.Location())
			if err != nil {
				return fmt.Errorf("invalid --day %q: %w", *scanDay, err)
			}
		}

		report, err := application.RunOnce(cmd.Context(), day)
		if err != nil {
			return err
		}
		logger.Info("scan finished", "day", day.Format(time.DateOnly), "collected", len(report.Collected), "fresh", len(report.Fresh))

		renderTable(os.Stdout, report.Collected)
		return nil
	},
}

func renderTable(out io.Writer, records []domain.Announcement) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Company", "Upgrade/Downgrade", "Analyst", "Price Target"})
	for _, record := range records {
		target, _ := record.Target()
		t.AppendRow(table.Row{record.CompanyName, record.Direction.String(), record.Analyst, target})
	}
	t.AppendFooter(table.Row{"", "", "Total", len(records)})
	t.Render()
}
