package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/misterclayt0n/lazaro-timer/internal/models"
	"github.com/misterclayt0n/lazaro-timer/internal/timer"
)

const modesRowFormat = "%-12s%-11s%-26s%-19s%-16s%s\n"

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List exercise types and how the timer runs each one",
	RunE: func(cmd *cobra.Command, args []string) error {
		return renderModes(cmd.OutOrStdout())
	},
}

func renderModes(w io.Writer) error {
	bold := color.New(color.Bold)
	if _, err := bold.Fprintf(w, modesRowFormat, "TYPE", "MODE", "PHASES", "WORK", "LOG", "CUES"); err != nil {
		return err
	}

	for _, t := range models.ExerciseTypes() {
		cfg := timer.ConfigFor(t)

		phases := make([]string, len(cfg.Phases))
		for i, p := range cfg.Phases {
			phases[i] = string(p)
		}

		_, err := fmt.Fprintf(w, modesRowFormat,
			t,
			cfg.Mode,
			strings.Join(phases, " > "),
			cfg.WorkCalculation,
			cfg.LogTiming,
			describeCues(cfg),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func describeCues(cfg timer.Config) string {
	cues := []string{"lead-in"}
	if cfg.MinuteMarkers {
		cues = append(cues, "minute markers")
	}
	if cfg.CountdownAtMinuteEnd {
		cues = append(cues, "minute-end 3-2-1")
	}
	return strings.Join(cues, ", ")
}

func init() {
	rootCmd.AddCommand(modesCmd)
}
