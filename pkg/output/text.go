package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/bun-ready/bun-ready/pkg/analyzer"
	"github.com/bun-ready/bun-ready/pkg/scan"
)

const detailLimit = 60 // max characters for the detail column

var (
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#2ecc71")).Bold(true)
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f1c40f")).Bold(true)
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#e74c3c")).Bold(true)
)

func severityLabel(s scan.Severity, color bool) string {
	label := strings.ToUpper(string(s))
	if !color {
		return label
	}
	switch s {
	case scan.SeverityGreen:
		return greenStyle.Render(label)
	case scan.SeverityYellow:
		return yellowStyle.Render(label)
	case scan.SeverityRed:
		return redStyle.Render(label)
	}
	return label
}

// RenderText writes the human-oriented report. Findings are listed
// worst first within each package; ties keep detector order.
func RenderText(w io.Writer, result analyzer.Result, color bool) error {
	fmt.Fprintf(w, "bun-ready scan of %s\n", result.RepoPath)
	fmt.Fprintf(w, "Overall: %s (exit code %d)\n", severityLabel(result.Severity, color), result.ExitCode)
	fmt.Fprintf(w, "Findings: %d total (%d red, %d yellow, %d green) across %d workspace package(s)\n",
		result.Metrics.TotalFindings, result.Metrics.RedFindings,
		result.Metrics.YellowFindings, result.Metrics.GreenFindings, result.Metrics.Packages)

	printPackage(w, "root", result.Root, color)
	for _, pkg := range result.Packages {
		printPackage(w, "package", pkg, color)
	}

	if result.Policy.RulesApplied > 0 {
		fmt.Fprintf(w, "\nPolicy: %d rule application(s), %d modified, %d disabled, %d upgraded, %d downgraded\n",
			result.Policy.RulesApplied, result.Policy.FindingsModified, result.Policy.FindingsDisabled,
			result.Policy.SeverityUpgraded, result.Policy.SeverityDowngraded)
		for _, applied := range result.Policy.Rules {
			if applied.Suppressed {
				fmt.Fprintf(w, "  rule %s suppressed %s in %s\n", applied.RuleID, applied.FindingID, applied.Package)
				continue
			}
			fmt.Fprintf(w, "  rule %s remapped %s in %s: %s -> %s\n",
				applied.RuleID, applied.FindingID, applied.Package, applied.Before, applied.After)
		}
	}

	if result.Thresholds.Breached() {
		fmt.Fprintln(w, "\nThresholds:")
		for _, breach := range result.Thresholds.Breaches {
			fmt.Fprintf(w, "  %s\n", breach)
		}
	}

	if result.Baseline != nil {
		fmt.Fprintf(w, "\nBaseline: %d new, %d resolved, %d severity change(s)\n",
			len(result.Baseline.NewFindings), len(result.Baseline.ResolvedFindings),
			len(result.Baseline.SeverityChanges))
		if result.Baseline.IsRegression {
			for _, reason := range result.Baseline.RegressionReasons {
				fmt.Fprintf(w, "  %s %s\n", severityLabel(scan.SeverityRed, color), reason)
			}
		}
	}
	return nil
}

func printPackage(w io.Writer, kind string, pkg scan.PackageAnalysis, color bool) {
	fmt.Fprintf(w, "\n%s %s: %s\n", kind, pkg.Name, severityLabel(pkg.Severity, color))
	printSteps(w, pkg)

	if len(pkg.Findings) == 0 {
		fmt.Fprintln(w, "  no findings")
		return
	}

	findings := make([]scan.Finding, len(pkg.Findings))
	copy(findings, pkg.Findings)
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.Rank() > findings[j].Severity.Rank()
	})

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tSEVERITY\tDETAIL")
	for _, f := range findings {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", f.ID, severityLabel(f.Severity, color), detailColumn(f))
	}
	tw.Flush()
}

func printSteps(w io.Writer, pkg scan.PackageAnalysis) {
	describe := func(name string, step *scan.StepResult) {
		if step == nil {
			return
		}
		status := "ok"
		switch {
		case step.TimedOut:
			status = "timed out"
		case !step.Ok:
			status = "failed"
		}
		fmt.Fprintf(w, "  %s: %s (%dms)\n", name, status, step.DurationMS)
	}
	describe("install", pkg.Install)
	describe("test", pkg.Test)
}

func detailColumn(f scan.Finding) string {
	if len(f.Details) == 0 {
		return f.Title
	}
	detail := strings.ReplaceAll(f.Details[0], "\t", " ")
	if len(detail) > detailLimit {
		detail = detail[:detailLimit-3] + "..."
	}
	if len(f.Details) > 1 {
		detail += fmt.Sprintf(" (+%d more)", len(f.Details)-1)
	}
	return detail
}
