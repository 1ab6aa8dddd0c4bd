package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/bun-ready/bun-ready/pkg/analyzer"
	"github.com/bun-ready/bun-ready/pkg/scan"
)

var severityBadges = map[scan.Severity]string{
	scan.SeverityGreen:  "🟢 green",
	scan.SeverityYellow: "🟡 yellow",
	scan.SeverityRed:    "🔴 red",
}

func badge(s scan.Severity) string {
	if b, ok := severityBadges[s]; ok {
		return b
	}
	return string(s)
}

// RenderMarkdown writes the report as a document suitable for CI job
// summaries and pull request comments.
func RenderMarkdown(w io.Writer, result analyzer.Result) error {
	fmt.Fprintln(w, "# Bun readiness report")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "- **Repository:** `%s`\n", result.RepoPath)
	fmt.Fprintf(w, "- **Overall:** %s\n", badge(result.Severity))
	fmt.Fprintf(w, "- **Generated:** %s\n", result.GeneratedAt)
	fmt.Fprintf(w, "- **Findings:** %d total, %d red, %d yellow, %d green\n",
		result.Metrics.TotalFindings, result.Metrics.RedFindings,
		result.Metrics.YellowFindings, result.Metrics.GreenFindings)

	writeMarkdownPackage(w, result.Root, true)
	for _, pkg := range result.Packages {
		writeMarkdownPackage(w, pkg, false)
	}

	if result.Policy.RulesApplied > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "## Policy")
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%d rule application(s): %d findings modified, %d disabled.\n",
			result.Policy.RulesApplied, result.Policy.FindingsModified, result.Policy.FindingsDisabled)
	}

	if result.Thresholds.Breached() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "## Threshold breaches")
		fmt.Fprintln(w)
		for _, breach := range result.Thresholds.Breaches {
			fmt.Fprintf(w, "- %s\n", breach)
		}
	}

	if result.Baseline != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "## Baseline comparison")
		fmt.Fprintln(w)
		fmt.Fprintf(w, "- New findings: %d\n", len(result.Baseline.NewFindings))
		fmt.Fprintf(w, "- Resolved findings: %d\n", len(result.Baseline.ResolvedFindings))
		fmt.Fprintf(w, "- Severity changes: %d\n", len(result.Baseline.SeverityChanges))
		if result.Baseline.IsRegression {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "**Regression detected:**")
			for _, reason := range result.Baseline.RegressionReasons {
				fmt.Fprintf(w, "- %s\n", reason)
			}
		}
	}
	return nil
}

func writeMarkdownPackage(w io.Writer, pkg scan.PackageAnalysis, isRoot bool) {
	fmt.Fprintln(w)
	if isRoot {
		fmt.Fprintf(w, "## Root `%s` (%s)\n", pkg.Name, badge(pkg.Severity))
	} else {
		fmt.Fprintf(w, "## Package `%s` (%s)\n", pkg.Name, badge(pkg.Severity))
	}
	fmt.Fprintln(w)

	if len(pkg.Findings) == 0 {
		fmt.Fprintln(w, "No findings.")
		return
	}

	findings := make([]scan.Finding, len(pkg.Findings))
	copy(findings, pkg.Findings)
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.Rank() > findings[j].Severity.Rank()
	})

	fmt.Fprintln(w, "| Severity | Finding | Details |")
	fmt.Fprintln(w, "|----------|---------|---------|")
	for _, f := range findings {
		fmt.Fprintf(w, "| %s | `%s` %s | %s |\n",
			badge(f.Severity), f.ID, f.Title, markdownDetails(f))
	}
}

func markdownDetails(f scan.Finding) string {
	if len(f.Details) == 0 {
		return ""
	}
	escaped := make([]string, 0, len(f.Details))
	for _, d := range f.Details {
		escaped = append(escaped, strings.ReplaceAll(d, "|", "\\|"))
	}
	return strings.Join(escaped, "<br>")
}
