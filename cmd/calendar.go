package cmd

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/misterclayt0n/lazaro-timer/internal/models"
)

// details is a flag to enable verbose day details.
var details bool

var typeColors = map[models.ExerciseType]color.Attribute{
	models.ExerciseStrength:   color.FgRed,
	models.ExerciseBodyweight: color.FgYellow,
	models.ExerciseEMOM:       color.FgGreen,
	models.ExerciseAMRAP:      color.FgMagenta,
	models.ExerciseInterval:   color.FgBlue,
	models.ExerciseCircuit:    color.FgCyan,
}

// calendarCmd prints the calendar grid. Days with logged entries are colored
// by the type of the first exercise logged that day.
var calendarCmd = &cobra.Command{
	Use:   "calendar [month] [year]",
	Short: "Display a calendar of training days with a legend mapping colors to exercise types",
	Args:  cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		month := now.Month()
		year := now.Year()
		if len(args) >= 1 {
			m, err := strconv.Atoi(args[0])
			if err != nil || m < 1 || m > 12 {
				return fmt.Errorf("invalid month: %s", args[0])
			}
			month = time.Month(m)
		}
		if len(args) == 2 {
			y, err := strconv.Atoi(args[1])
			if err != nil || y < 1 {
				return fmt.Errorf("invalid year: %s", args[1])
			}
			year = y
		}

		firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)

		st, err := openStorage()
		if err != nil {
			return err
		}
		defer st.Close()

		entries, err := st.EntriesBetween(firstOfMonth, firstOfMonth.AddDate(0, 1, 0))
		if err != nil {
			return fmt.Errorf("failed to get history: %w", err)
		}

		renderCalendar(cmd.OutOrStdout(), firstOfMonth, entries, details)
		return nil
	},
}

func renderCalendar(w io.Writer, firstOfMonth time.Time, entries []models.HistoryEntry, details bool) {
	byDay := make(map[int][]models.HistoryEntry)
	for _, e := range entries {
		day := e.LoggedAt.In(firstOfMonth.Location()).Day()
		byDay[day] = append(byDay[day], e)
	}
	lastOfMonth := firstOfMonth.AddDate(0, 1, -1)

	header := fmt.Sprintf("%s %d", firstOfMonth.Month(), firstOfMonth.Year())
	fmt.Fprintln(w, centerText(header, 20))
	fmt.Fprintln(w, "Su Mo Tu We Th Fr Sa")

	// Weekday of the first day (0 = Sunday).
	weekday := int(firstOfMonth.Weekday())
	for i := 0; i < weekday; i++ {
		fmt.Fprint(w, "   ")
	}

	for day := 1; day <= lastOfMonth.Day(); day++ {
		dayStr := fmt.Sprintf("%2d", day)
		if logged, ok := byDay[day]; ok {
			dayStr = color.New(typeColors[logged[0].ExerciseType]).Sprint(dayStr + "*")
		} else {
			dayStr += " "
		}
		fmt.Fprint(w, dayStr)
		weekday++
		if weekday%7 == 0 {
			fmt.Fprintln(w)
		}
	}
	fmt.Fprint(w, "\n\n")

	fmt.Fprintln(w, "Legend:")
	for _, t := range models.ExerciseTypes() {
		fmt.Fprintf(w, "  %s: %s\n", color.New(typeColors[t]).Sprint("██"), t)
	}

	if !details {
		return
	}

	fmt.Fprintln(w, "\nDay Details:")
	var days []int
	for d := range byDay {
		days = append(days, d)
	}
	sort.Ints(days)
	for _, day := range days {
		date := time.Date(firstOfMonth.Year(), firstOfMonth.Month(), day, 0, 0, 0, 0, firstOfMonth.Location())
		fmt.Fprintf(w, "\n%s:\n", date.Format("Mon, 02 Jan 2006"))
		for _, e := range byDay[day] {
			fmt.Fprintf(w, "  %s %s %s %s\n",
				e.LoggedAt.In(firstOfMonth.Location()).Format("15:04"),
				e.ExerciseName,
				setColumn(e),
				resultColumn(e),
			)
		}
	}
}

func init() {
	rootCmd.AddCommand(calendarCmd)
	calendarCmd.Flags().BoolVarP(&details, "details", "d", false, "Print the entries logged each day")
}
