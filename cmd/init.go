package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/misterclayt0n/lazaro-timer/internal/config"
)

var forceInit bool

var initSetupCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file and create the history database",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.GetConfigPath(); err != nil {
				return fmt.Errorf("Failed to locate config: %w", err)
			}
		}

		_, err := os.Stat(path)
		switch {
		case err == nil && !forceInit:
			fmt.Printf("Config already exists at %s (use --force to overwrite)\n", path)
		case err == nil || errors.Is(err, fs.ErrNotExist):
			if err := config.Default().Write(path); err != nil {
				return err
			}
			fmt.Printf("✅ Config written to %s\n", path)
		default:
			return fmt.Errorf("Failed to check config: %w", err)
		}

		st, err := openStorage()
		if err != nil {
			return err
		}
		defer st.Close()

		fmt.Println("✅ History database initialized successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initSetupCmd)
	initSetupCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file")
}
