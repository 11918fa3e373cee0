package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/llmlibrarian/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize llmli configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the local model backend and index directory, and writes the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
