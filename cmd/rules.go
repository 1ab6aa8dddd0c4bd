package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bun-ready/bun-ready/pkg/detect"
)

// rulesCmd lists the finding IDs a policy rule can reference.
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the finding IDs that policy rules can target",
	Long: `Every finding the scanner can emit has a stable ID. Policy rules,
either --rule flags or the rules array in bun-ready.config.json, match
on these IDs (or on "*" for every finding).`,
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tWORST\tDESCRIPTION")
		fmt.Fprintln(w, "--\t-----\t-----------")
		for _, info := range detect.Catalog() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", info.ID, info.Severity, info.Summary)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
