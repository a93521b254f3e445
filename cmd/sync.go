package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [output-file]",
	Short: "Export the logged history to a TOML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile := "history_dump.toml" // Default filename.
		if len(args) == 1 {
			outputFile = args[0]
		}

		st, err := openStorage()
		if err != nil {
			return err
		}
		defer st.Close()

		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("error creating %s: %w", outputFile, err)
		}
		defer f.Close()

		if err := st.ExportToTOML(f); err != nil {
			return fmt.Errorf("error exporting history: %w", err)
		}

		fmt.Printf("✅ History exported successfully to %s\n", outputFile)
		return nil
	},
}

var buildDBCmd = &cobra.Command{
	Use:   "build-db [dump-file]",
	Short: "Load a TOML history dump into the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("Failed to open dump: %w", err)
		}
		defer f.Close()

		st, err := openStorage()
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.ImportFromTOML(f)
		if err != nil {
			return fmt.Errorf("Failed to build database: %w", err)
		}
		fmt.Printf("✅ Imported %s from %s.\n", pluralEntries(n), args[0])
		return nil
	},
}

func pluralEntries(n int) string {
	if n == 1 {
		return "1 entry"
	}
	return fmt.Sprintf("%d entries", n)
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(buildDBCmd)
}
