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
	historyLimit    int
	historyExercise string
)

// historyCmd lists logged sets and blocks, newest first.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Display logged sets and blocks, optionally filtered by exercise",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStorage()
		if err != nil {
			return err
		}
		defer st.Close()

		limit := historyLimit
		if historyExercise != "" {
			// Filtering happens here, so read everything.
			limit = 0
		}
		entries, err := st.RecentEntries(limit)
		if err != nil {
			return fmt.Errorf("failed to retrieve history: %w", err)
		}

		if historyExercise != "" {
			want := prescription.NormalizeName(historyExercise)
			var filtered []models.HistoryEntry
			for _, e := range entries {
				if strings.EqualFold(e.ExerciseName, want) {
					filtered = append(filtered, e)
				}
			}
			entries = filtered
			if historyLimit > 0 && len(entries) > historyLimit {
				entries = entries[:historyLimit]
			}
		}

		if len(entries) == 0 {
			fmt.Println("No history yet.")
			return nil
		}

		header := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Println(header(fmt.Sprintf("%-17s %-24s %-10s %-6s %-14s %-8s %s",
			"DATE", "EXERCISE", "TYPE", "SET", "RESULT", "WORK", "EST. 1RM")))
		for _, e := range entries {
			fmt.Printf("%-17s %-24s %-10s %-6s %-14s %-8s %s\n",
				utils.FormatLocal(e.LoggedAt),
				truncate(e.ExerciseName, 24),
				e.ExerciseType,
				setColumn(e),
				resultColumn(e),
				utils.FormatClock(e.WorkSeconds),
				oneRMColumn(e),
			)
		}
		return nil
	},
}

func setColumn(e models.HistoryEntry) string {
	if e.ExerciseType.IsBlock() {
		return "-"
	}
	return fmt.Sprintf("#%d", e.SetNumber)
}

func resultColumn(e models.HistoryEntry) string {
	if e.ExerciseType.IsBlock() {
		return fmt.Sprintf("%d %s", e.Rounds, utils.Plural(e.Rounds, "round"))
	}
	if e.Weight > 0 {
		return fmt.Sprintf("%d x %g%s", e.Reps, e.Weight, e.WeightUnit)
	}
	return fmt.Sprintf("%d %s", e.Reps, utils.Plural(e.Reps, "rep"))
}

func oneRMColumn(e models.HistoryEntry) string {
	if e.Weight <= 0 || e.Reps <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%s", utils.CalculateEpley1RM(e.Weight, e.Reps), e.WeightUnit)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show (0 for all)")
	historyCmd.Flags().StringVarP(&historyExercise, "exercise", "e", "", "Filter by exercise name (case insensitive)")
}
