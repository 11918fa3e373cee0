package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var silosCmd = &cobra.Command{
	Use:   "silos",
	Short: "List indexed silos and whether they are up to date",
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

		silos, err := lib.engine.Silos()
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(silos)
		}
		if len(silos) == 0 {
			fmt.Printf("No silos indexed in %s.\n", cfg.DBPath)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SLUG\tNAME\tFILES\tCHUNKS\tSTATUS\tPATH")
		for _, s := range silos {
			status := "ok"
			if s.Stale {
				status = "stale (" + s.StaleReason + ")"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n", s.Slug, s.Name, s.FilesIndexed, s.ChunksCount, status, s.Path)
		}
		return w.Flush()
	},
}

func init() {
	silosCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(silosCmd)
}
