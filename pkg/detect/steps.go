package detect

import (
	"strings"

	"github.com/bun-ready/bun-ready/pkg/scan"
)

const stepLogExcerpt = 5

var errorMarkers = []string{"error", "err!", "fail", "cannot", "not found", "panic"}

// StepFindings turns failed install or test runs into findings so they
// participate in policy matching and baselines like any other signal.
// The forced-red package severity comes from the step result itself;
// these findings carry the evidence.
func StepFindings(install, test *scan.StepResult) []scan.Finding {
	findings := []scan.Finding{}
	if f := stepFinding(install, "install.log_errors", "Install failed under Bun"); f != nil {
		findings = append(findings, *f)
	}
	if f := stepFinding(test, "test.log_errors", "Tests failed under Bun"); f != nil {
		findings = append(findings, *f)
	}
	return findings
}

func stepFinding(step *scan.StepResult, id, title string) *scan.Finding {
	if step == nil || step.Ok {
		return nil
	}

	details := []string{}
	if step.TimedOut {
		details = append(details, "the run timed out")
	}
	details = append(details, logExcerpt(step.Logs)...)

	return &scan.Finding{
		ID:       id,
		Title:    title,
		Severity: scan.SeverityRed,
		Details:  details,
		Hints:    []string{"re-run the command by hand for the full output"},
	}
}

// logExcerpt keeps the last stepLogExcerpt lines, except that
// error-looking lines buried earlier in the log take slots from the
// front of the tail. The actual failure message often scrolls away
// under install progress output.
func logExcerpt(logs []string) []string {
	if len(logs) <= stepLogExcerpt {
		return logs
	}
	tail := logs[len(logs)-stepLogExcerpt:]

	buried := []string{}
	for _, line := range logs[:len(logs)-stepLogExcerpt] {
		if looksLikeError(line) {
			buried = append(buried, line)
		}
	}
	if len(buried) == 0 {
		return tail
	}
	if len(buried) >= stepLogExcerpt {
		return buried[len(buried)-stepLogExcerpt:]
	}
	return append(buried, tail[len(buried):]...)
}

func looksLikeError(line string) bool {
	lowered := strings.ToLower(line)
	for _, marker := range errorMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
