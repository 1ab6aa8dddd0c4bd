package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bun-ready/bun-ready/pkg/analyzer"
	"github.com/bun-ready/bun-ready/pkg/ci"
	"github.com/bun-ready/bun-ready/pkg/config"
	"github.com/bun-ready/bun-ready/pkg/logger"
	"github.com/bun-ready/bun-ready/pkg/output"
	"github.com/bun-ready/bun-ready/pkg/policy"
	"github.com/bun-ready/bun-ready/pkg/runner"
	"github.com/bun-ready/bun-ready/pkg/scan"
)

var (
	scanPath          string
	scanFormat        string
	scanOutput        string
	scanRules         []string
	maxWarnings       int
	maxPackagesRed    int
	maxPackagesYellow int
	failOn            string
	baselineFile      string
	updateBaseline    bool
	changedOnly       bool
	runInstall        bool
	runTest           bool
	scanTimeout       time.Duration
	bunBinary         string
	configPath        string
	ciMode            bool
	noColor           bool
	noWorkspaces      bool
	excludeDirs       []string
)

// scanCmd represents the scan subcommand
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a project and report its Bun readiness",
	Long: `Scan analyzes the project at --path (the repository root plus every
workspace package) and prints a readiness report. The process exit code
follows the verdict: 0 passes, 2 flags warnings under the default
--fail-on policy, 3 fails. Exit code 1 only ever means the invocation
itself was invalid.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := os.Stat(scanPath)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("path %q is not a directory", scanPath)
		}
		if failOn != "" {
			if _, err := scan.ParseSeverity(failOn); err != nil {
				return fmt.Errorf("invalid --fail-on: %w", err)
			}
		}

		var file config.File
		if configPath != "" {
			file = config.LoadPath(configPath)
		} else {
			file = config.Load(scanPath)
		}

		flags := config.Flags{RulesGiven: cmd.Flags().Changed("rule")}
		for _, raw := range scanRules {
			rule, err := policy.ParseRule(raw)
			if err != nil {
				logger.Debugf("Dropping invalid --rule %q: %v", raw, err)
				continue
			}
			flags.Rules = append(flags.Rules, rule)
		}
		if cmd.Flags().Changed("max-warnings") {
			flags.MaxWarnings = &maxWarnings
		}
		if cmd.Flags().Changed("max-packages-red") {
			flags.MaxPackagesRed = &maxPackagesRed
		}
		if cmd.Flags().Changed("max-packages-yellow") {
			flags.MaxPackagesYellow = &maxPackagesYellow
		}
		flags.FailOn = scan.Severity(failOn)

		merged := config.MergePolicy(file, flags)

		format := scanFormat
		if !cmd.Flags().Changed("format") && file.Format != "" {
			format = file.Format
		}
		if !output.ValidFormat(format) {
			return fmt.Errorf("unknown format %q (expected one of %v)", format, output.Formats())
		}

		baselinePath := baselineFile
		if baselinePath == "" {
			baselinePath = file.Baseline
		}
		install := runInstall
		if !cmd.Flags().Changed("install") && file.Install != nil {
			install = *file.Install
		}
		test := runTest
		if !cmd.Flags().Changed("test") && file.Test != nil {
			test = *file.Test
		}
		workspaces := noWorkspaces
		if !cmd.Flags().Changed("no-workspaces") && file.Workspaces != nil {
			workspaces = !*file.Workspaces
		}
		exclude := excludeDirs
		if !cmd.Flags().Changed("exclude") {
			exclude = file.Exclude
		}

		result, err := analyzer.AnalyzeRepo(cmd.Context(), analyzer.Options{
			RepoPath:       scanPath,
			Policy:         merged,
			RunInstall:     install,
			RunTest:        test,
			Timeout:        scanTimeout,
			Binary:         bunBinary,
			BaselinePath:   baselinePath,
			UpdateBaseline: updateBaseline,
			ChangedOnly:    changedOnly,
			NoWorkspaces:   workspaces,
			ExcludeDirs:    exclude,
			ScanVersion:    Version,
		})
		if err != nil {
			return err
		}

		if updateBaseline && baselinePath != "" {
			if err := analyzer.SaveBaseline(result, baselinePath); err != nil {
				logger.Errorf("%v", err)
				os.Exit(ci.ExitFail)
			}
			logger.Infof("Baseline written to %s", baselinePath)
		}

		writer := io.Writer(os.Stdout)
		color := output.ShouldColor(os.Stdout, noColor) && format == output.FormatText
		if scanOutput != "" {
			reportFile, err := os.Create(scanOutput)
			if err != nil {
				logger.Errorf("Cannot write report to %s: %v", scanOutput, err)
				os.Exit(ci.ExitFail)
			}
			defer reportFile.Close()
			writer = reportFile
			color = false
		}
		if err := output.Render(writer, format, result, color); err != nil {
			logger.Errorf("%v", err)
			os.Exit(ci.ExitFail)
		}

		if ciMode {
			summary := ci.Summary{
				RunID:          result.RunID,
				Severity:       result.Severity,
				ExitCode:       result.ExitCode,
				TotalFindings:  result.Metrics.TotalFindings,
				RedFindings:    result.Metrics.RedFindings,
				YellowFindings: result.Metrics.YellowFindings,
				Packages:       result.Metrics.Packages,
				Breaches:       len(result.Thresholds.Breaches),
				Regression:     result.Baseline != nil && result.Baseline.IsRegression,
			}
			if err := ci.WriteSummary(os.Stdout, summary); err != nil {
				logger.Warnf("Could not write CI summary: %v", err)
			}
		}

		if result.ExitCode != ci.ExitOK {
			os.Exit(result.ExitCode)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVarP(&scanPath, "path", "p", ".", "Path to the project to scan")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", output.FormatText, "Report format: text, json, markdown or sarif")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "", "Write the report to a file instead of stdout")
	scanCmd.Flags().StringArrayVar(&scanRules, "rule", nil, "Policy rule id=action[:severityChange], repeatable")
	scanCmd.Flags().IntVar(&maxWarnings, "max-warnings", 0, "Fail threshold for total yellow findings")
	scanCmd.Flags().IntVar(&maxPackagesRed, "max-packages-red", 0, "Fail threshold for red workspace packages")
	scanCmd.Flags().IntVar(&maxPackagesYellow, "max-packages-yellow", 0, "Fail threshold for yellow workspace packages")
	scanCmd.Flags().StringVar(&failOn, "fail-on", "", "Minimum severity that fails the run: green, yellow or red")
	scanCmd.Flags().StringVar(&baselineFile, "baseline", "", "Baseline file to compare findings against")
	scanCmd.Flags().BoolVar(&updateBaseline, "update-baseline", false, "Overwrite the baseline with this scan's findings")
	scanCmd.Flags().BoolVar(&changedOnly, "changed-only", false, "List only findings that are new or changed since the baseline")
	scanCmd.Flags().BoolVar(&runInstall, "install", false, "Run a bun install dry-run per package")
	scanCmd.Flags().BoolVar(&runTest, "test", false, "Run each package's test script under bun")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", runner.DefaultTimeout, "Timeout per spawned install or test process")
	scanCmd.Flags().StringVar(&bunBinary, "bun", runner.DefaultBinary, "Bun binary to spawn for --install and --test")
	scanCmd.Flags().StringVar(&configPath, "config", "", "Config file (default <path>/"+config.DefaultFileName+")")
	scanCmd.Flags().BoolVar(&ciMode, "ci", false, "Print a one-line JSON summary after the report")
	scanCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	scanCmd.Flags().BoolVar(&noWorkspaces, "no-workspaces", false, "Scan only the repository root")
	scanCmd.Flags().StringArrayVar(&excludeDirs, "exclude", nil, "Directory relative to --path to skip when scanning sources, repeatable")
}
