package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	dbPath  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "llmli",
	Short: "Ask questions about your local files",
	Long: `llmli answers questions over folders you have indexed into silos. It
lists and counts files straight from the index manifest, reads tax form
lines and ranked rows without guessing, and otherwise retrieves the
closest chunks and asks a local model to answer from them, citing every
source file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "llmli.yml", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "index directory (overrides db_path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
