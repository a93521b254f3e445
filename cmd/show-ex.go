package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/misterclayt0n/lazaro-timer/internal/models"
	"github.com/misterclayt0n/lazaro-timer/internal/prescription"
	"github.com/misterclayt0n/lazaro-timer/internal/utils"
)

var (
	limitDays   int
	historyOnly bool
)

var showExCmd = &cobra.Command{
	Use:   "show-ex [exercise-name]",
	Short: "Display the best set and logged history of a particular exercise",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := prescription.NormalizeName(args[0])

		st, err := openStorage()
		if err != nil {
			return err
		}
		defer st.Close()

		logged, err := st.ExerciseLogged(name)
		if err != nil {
			return err
		}
		if !logged {
			// Fall back to a case-insensitive match.
			entries, err := st.ExerciseEntries(name)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return fmt.Errorf("no history for exercise %q", name)
			}
			name = entries[0].ExerciseName
		}

		last, err := st.LastEntry(name)
		if err != nil {
			return fmt.Errorf("failed to get exercise: %w", err)
		}
		entries, err := st.ExerciseEntries(name)
		if err != nil {
			return fmt.Errorf("failed to retrieve history: %w", err)
		}

		boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
		boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		blue := color.New(color.FgBlue).SprintFunc()

		if !historyOnly && last != nil {
			fmt.Println(boldGreen("Exercise Information:"))
			fmt.Printf("  %s: %s\n", boldCyan("Name"), last.ExerciseName)
			fmt.Printf("  %s: %s\n", boldCyan("Type"), last.ExerciseType)
			fmt.Printf("  %s: %s\n", boldCyan("Last Logged"), utils.FormatLocal(last.LoggedAt))
			if best := bestSet(entries); best != nil {
				fmt.Printf("  %s: %gkg × %d (%s: %.1f%s)\n",
					boldCyan("All-time PR"),
					best.Weight, best.Reps,
					yellow("Calculated 1RM"), utils.CalculateEpley1RM(best.Weight, best.Reps), best.WeightUnit)
			}
			fmt.Println()
		}

		fmt.Printf("%s %s:\n", boldGreen("History for"), name)
		for i, day := range groupByDay(entries) {
			if limitDays > 0 && i == limitDays {
				break
			}
			fmt.Printf("\n%s\n", blue(day[0].LoggedAt.Local().Format("Mon, 02 Jan 2006")))
			fmt.Printf("      %-6s | %-14s | %-6s\n", "Set", "Result", "Work")
			fmt.Println("      " + strings.Repeat("─", 32))
			for _, e := range day {
				fmt.Printf("      %-6s | %-14s | %-6s\n", setColumn(e), resultColumn(e), utils.FormatClock(e.WorkSeconds))
			}
		}

		return nil
	},
}

// bestSet returns the weighted set with the highest estimated 1RM.
func bestSet(entries []models.HistoryEntry) *models.HistoryEntry {
	var best *models.HistoryEntry
	var bestRM float32
	for i := range entries {
		e := &entries[i]
		if e.Weight <= 0 || e.Reps <= 0 {
			continue
		}
		if rm := utils.CalculateEpley1RM(e.Weight, e.Reps); best == nil || rm > bestRM {
			best, bestRM = e, rm
		}
	}
	return best
}

// groupByDay splits newest-first entries into local calendar days, keeping
// the order. Sets within a day are listed oldest first.
func groupByDay(entries []models.HistoryEntry) [][]models.HistoryEntry {
	var days [][]models.HistoryEntry
	current := ""
	for _, e := range entries {
		key := e.LoggedAt.Local().Format("2006-01-02")
		if key != current {
			days = append(days, nil)
			current = key
		}
		last := len(days) - 1
		days[last] = append([]models.HistoryEntry{e}, days[last]...)
	}
	return days
}

func init() {
	rootCmd.AddCommand(showExCmd)
	showExCmd.Flags().IntVarP(&limitDays, "limit", "l", 5, "Number of training days to display")
	showExCmd.Flags().BoolVarP(&historyOnly, "history-only", "H", false, "Display only history without the exercise summary")
}
