package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/llmlibrarian/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing the ask and list_silos tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		lib, err := openLibrary(context.Background(), cfg, newLogger())
		if err != nil {
			return err
		}
		defer lib.Close()

		mcpserver.Version = Version

		silos, err := lib.engine.Silos()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "llmli MCP server started on stdio (db=%s, silos=%d)\n", cfg.DBPath, len(silos))

		return mcpserver.NewServer(lib.engine).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
