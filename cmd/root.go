package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bun-ready/bun-ready/pkg/logger"
)

// Version is set during build using ldflags
var Version = "0.3.0"

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bun-ready",
	Short: "Estimates how ready a JavaScript project is to run on Bun",
	Long: `bun-ready statically inspects a JavaScript or TypeScript project and
reports a green/yellow/red verdict on how well it will migrate to the
Bun runtime. It checks dependencies, scripts, lockfiles, engine ranges
and source imports, supports monorepo workspaces, and can diff the
result against a stored baseline to catch regressions in CI.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verbose)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
