package ci

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/bun-ready/bun-ready/pkg/policy"
	"github.com/bun-ready/bun-ready/pkg/scan"
)

// Process exit codes. 1 is reserved for CLI misuse and is never
// produced by a completed scan.
const (
	ExitOK    = 0
	ExitUsage = 1
	ExitWarn  = 2
	ExitFail  = 3
)

// ExitCode maps the overall severity and the failOn policy to a process
// exit code. failOn names the minimum severity that must fail the run;
// an empty failOn means red.
//
//	failOn    green  yellow  red
//	red         0      2      3
//	yellow      0      0      3
//	green       0      3      3
//
// Yellow is a distinct flagged-but-passing state (exit 2) only under
// the default policy; under failOn yellow or green the outcome is
// binary.
func ExitCode(severity, failOn scan.Severity) int {
	switch failOn {
	case scan.SeverityYellow:
		if severity == scan.SeverityRed {
			return ExitFail
		}
		return ExitOK
	case scan.SeverityGreen:
		if severity == scan.SeverityGreen {
			return ExitOK
		}
		return ExitFail
	default:
		switch severity {
		case scan.SeverityRed:
			return ExitFail
		case scan.SeverityYellow:
			return ExitWarn
		default:
			return ExitOK
		}
	}
}

// Verdict is the outcome of the numeric threshold gates, kept separate
// from the finding-derived severity.
type Verdict struct {
	Severity scan.Severity `json:"severity"`
	Breaches []string      `json:"breaches,omitempty"`
}

// Breached reports whether any gate was exceeded.
func (v Verdict) Breached() bool {
	return len(v.Breaches) > 0
}

// EvaluateThresholds checks the configured numeric gates against the
// scan totals. Each breach produces one message; any breach makes the
// verdict yellow. Gates left nil are disabled, a zero limit is real.
func EvaluateThresholds(metrics scan.Metrics, redPackages, yellowPackages int, thresholds policy.Thresholds) Verdict {
	verdict := Verdict{Severity: scan.SeverityGreen}

	if limit := thresholds.MaxWarnings; limit != nil && metrics.YellowFindings > *limit {
		verdict.Breaches = append(verdict.Breaches,
			fmt.Sprintf("yellow findings %d exceed maxWarnings %d", metrics.YellowFindings, *limit))
	}
	if limit := thresholds.MaxPackagesRed; limit != nil && redPackages > *limit {
		verdict.Breaches = append(verdict.Breaches,
			fmt.Sprintf("red packages %d exceed maxPackagesRed %d", redPackages, *limit))
	}
	if limit := thresholds.MaxPackagesYellow; limit != nil && yellowPackages > *limit {
		verdict.Breaches = append(verdict.Breaches,
			fmt.Sprintf("yellow packages %d exceed maxPackagesYellow %d", yellowPackages, *limit))
	}

	if verdict.Breached() {
		verdict.Severity = scan.SeverityYellow
	}
	return verdict
}

// Resolve combines the severity-derived exit code with the threshold
// verdict and the baseline comparison. A threshold breach raises the
// exit to at least ExitWarn without rewriting the severity itself; a
// baseline regression always fails the run.
func Resolve(severity, failOn scan.Severity, verdict Verdict, regression bool) int {
	code := ExitCode(severity, failOn)
	if verdict.Breached() && code < ExitWarn {
		code = ExitWarn
	}
	if regression {
		code = ExitFail
	}
	return code
}

// Summary is the single-line machine-readable digest printed in --ci
// mode, one JSON object per scan so log collectors can grep it out.
type Summary struct {
	Schema         int           `json:"schemaVersion"`
	RunID          string        `json:"runId,omitempty"`
	Severity       scan.Severity `json:"severity"`
	ExitCode       int           `json:"exitCode"`
	TotalFindings  int           `json:"totalFindings"`
	RedFindings    int           `json:"redFindings"`
	YellowFindings int           `json:"yellowFindings"`
	Packages       int           `json:"packages"`
	Breaches       int           `json:"thresholdBreaches"`
	Regression     bool          `json:"regression"`
}

// SchemaVersion identifies the summary line layout.
const SchemaVersion = 1

// WriteSummary emits the digest as one line of JSON.
func WriteSummary(w io.Writer, s Summary) error {
	s.Schema = SchemaVersion
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode ci summary: %w", err)
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}
