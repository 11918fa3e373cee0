package main

import (
	"fmt"
	"os"

	"github.com/ziadkadry99/llmlibrarian/cmd"
	"github.com/ziadkadry99/llmlibrarian/internal/query"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(query.ExitCode(err))
	}
}
