package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/llmlibrarian/internal/query"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your indexed files",
	Long: `Answers a question from the indexed silos. Deterministic questions
(file lists, structure, tax form lines, rankings) never call the model.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	f := askCmd.Flags()
	f.String("in", "", "silo to search (slug, prefix or display name)")
	f.String("as", "", "archetype to answer as")
	f.Int("n", query.DefaultNResults, "number of chunks to use as context")
	f.String("model", "", "chat model (overrides config)")
	f.Bool("strict", false, "refuse rather than guess")
	f.Bool("quiet", false, "print only the answer, without banners or sources")
	f.Bool("explain", false, "print how the question was routed and retrieved")
	f.Bool("force", false, "answer catalog questions even when the index is stale")
	f.Bool("unified", false, "search every silo even if the question names one")
	f.Bool("no-color", false, "disable color")
	f.Bool("rerank", false, "rerank candidates by query overlap")
	f.Bool("json", false, "print the full response as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	f := cmd.Flags()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lib, err := openLibrary(ctx, cfg, newLogger())
	if err != nil {
		return err
	}
	defer lib.Close()

	req := query.Request{Query: strings.Join(args, " ")}
	req.Silo, _ = f.GetString("in")
	req.Archetype, _ = f.GetString("as")
	req.NResults, _ = f.GetInt("n")
	req.Model, _ = f.GetString("model")
	req.Strict, _ = f.GetBool("strict")
	req.Quiet, _ = f.GetBool("quiet")
	req.Explain, _ = f.GetBool("explain")
	req.Force, _ = f.GetBool("force")
	req.ExplicitUnified, _ = f.GetBool("unified")
	req.NoColor, _ = f.GetBool("no-color")
	if f.Changed("rerank") {
		rerank, _ := f.GetBool("rerank")
		req.UseReranker = &rerank
	}

	resp, err := lib.engine.Ask(ctx, req)
	if err != nil {
		return err
	}

	if asJSON, _ := f.GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	fmt.Println(resp.Answer)
	if resp.Explain != nil {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, resp.Explain.String())
	}
	return nil
}
