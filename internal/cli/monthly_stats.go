package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/classsync/classsync-api/internal/dto"
)

var titleStyle = lipgloss.NewStyle().Bold(true)

func newMonthlyStatsCommand(deps Deps) *cobra.Command {
	return LeafCommand{
		Use:   "monthly-stats",
		Short: "Compute working days and classes for a month, optionally saving them",
		Args:  cobra.NoArgs,
		IntFlags: []IntFlag{
			{Name: "year", Usage: "calendar year (defaults to the current month)"},
			{Name: "month", Usage: "month 1-12 (defaults to the current month)"},
		},
		StrFlags: []StringFlag{
			{Name: "notes", Usage: "notes stored with --save"},
		},
		BoolFlags: []BoolFlag{
			{Name: "save", Usage: "persist the computed figures"},
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			year, _ := cmd.Flags().GetInt("year")
			month, _ := cmd.Flags().GetInt("month")
			save, _ := cmd.Flags().GetBool("save")

			var (
				stats *dto.MonthlyStatsResponse
				err   error
			)
			if year == 0 && month == 0 {
				stats, err = deps.Monthly.ComputeCurrent(ctx)
			} else {
				stats, err = deps.Monthly.Compute(ctx, year, month)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := printMonthlyStats(out, stats); err != nil {
				return err
			}

			if !save {
				return nil
			}
			var notes *string
			if cmd.Flags().Changed("notes") {
				value, _ := cmd.Flags().GetString("notes")
				notes = &value
			}
			saved, err := deps.Monthly.SaveComputed(ctx, stats.Year, stats.Month, notes)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "saved %s (%s)\n", saved.Month, saved.ID)
			return nil
		},
	}.Build()
}

func printMonthlyStats(out io.Writer, stats *dto.MonthlyStatsResponse) error {
	_, _ = fmt.Fprintln(out, titleStyle.Render(stats.MonthLabel))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Days in month\t%d\n", stats.DaysInMonth)
	_, _ = fmt.Fprintf(w, "Working days\t%d\n", stats.WorkingDays)
	_, _ = fmt.Fprintf(w, "Total classes\t%d\n", stats.TotalClasses)
	_, _ = fmt.Fprintf(w, "Holidays\t%d\n", stats.HolidaysInMonth)
	_, _ = fmt.Fprintf(w, "Sundays\t%s\n", strings.Join(stats.SundayDates, ", "))
	for _, h := range stats.HolidayDetails {
		_, _ = fmt.Fprintf(w, "  %s\t%s\n", h.Date, h.Name)
	}
	return w.Flush()
}
