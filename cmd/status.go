package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/misterclayt0n/lazaro-timer/internal/utils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show totals over the logged history: volume, sets, blocks, time under work and week streak",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStorage()
		if err != nil {
			return err
		}
		defer st.Close()

		totals, err := st.Totals()
		if err != nil {
			return fmt.Errorf("failed to compute totals: %w", err)
		}

		entries, err := st.RecentEntries(0)
		if err != nil {
			return fmt.Errorf("failed to retrieve history: %w", err)
		}
		days := make([]time.Time, len(entries))
		for i, e := range entries {
			days[i] = e.LoggedAt
		}

		printBoxedHeader("STATUS")

		printMetric("Total volume", fmt.Sprintf("%.1f", totals.TotalVolume))
		printMetric("Sets logged", totals.Sets)
		printMetric("Blocks logged", totals.Blocks)
		printMetric("Time under work", utils.FormatDuration(totals.WorkDuration))
		printMetric("Week streak", weeks(computeWeekStreak(days, time.Now())))
		if totals.LastLogged != nil {
			printMetric("Last logged", utils.FormatLocal(*totals.LastLogged))
		}
		fmt.Println()

		return nil
	},
}

func weeks(n int) string {
	return fmt.Sprintf("%d %s", n, utils.Plural(n, "week"))
}

// printBoxedHeader prints the title in a Unicode box with a fixed width.
func printBoxedHeader(title string) {
	width := 40
	cyanBold := color.New(color.FgCyan, color.Bold).SprintFunc()
	border := strings.Repeat("═", width)
	fmt.Println(cyanBold("╔" + border + "╗"))
	fmt.Println(cyanBold("║" + centerText(title, width) + "║"))
	fmt.Println(cyanBold("╚" + border + "╝"))
}

func centerText(s string, width int) string {
	if len(s) >= width {
		return s
	}
	padding := (width - len(s)) / 2
	return strings.Repeat(" ", padding) + s + strings.Repeat(" ", width-len(s)-padding)
}

// printMetric prints a label and value using bold yellow for the label.
func printMetric(label string, value any) {
	yellowBold := color.New(color.FgYellow, color.Bold).SprintFunc()
	fmt.Printf("  %s: %v\n", yellowBold(label), value)
}

// computeWeekStreak counts consecutive ISO weeks, ending with the week of
// now, that have at least one logged entry.
func computeWeekStreak(logged []time.Time, now time.Time) int {
	weekSet := make(map[string]bool)
	for _, t := range logged {
		year, week := t.Local().ISOWeek()
		weekSet[fmt.Sprintf("%d-%02d", year, week)] = true
	}

	streak := 0
	year, week := now.ISOWeek()
	for weekSet[fmt.Sprintf("%d-%02d", year, week)] {
		streak++
		now = now.AddDate(0, 0, -7)
		year, week = now.ISOWeek()
	}
	return streak
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
