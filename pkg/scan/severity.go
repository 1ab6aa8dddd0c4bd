package scan

import "fmt"

// Severity is the three-level readiness verdict. Severities form a
// total order green < yellow < red; every combination step takes the
// worst of its inputs, so adding information can only hold or raise a
// verdict, never lower it.
type Severity string

const (
	SeverityGreen  Severity = "green"
	SeverityYellow Severity = "yellow"
	SeverityRed    Severity = "red"
)

var severityRanks = map[Severity]int{
	SeverityGreen:  0,
	SeverityYellow: 1,
	SeverityRed:    2,
}

// Rank returns the position of s in the green < yellow < red order.
// Unknown values rank below green so they never win an aggregation.
func (s Severity) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return -1
}

// Valid reports whether s is one of the three defined severities.
func (s Severity) Valid() bool {
	_, ok := severityRanks[s]
	return ok
}

// ParseSeverity validates a user-supplied severity string, as used by
// the --fail-on flag and policy severityChange values.
func ParseSeverity(raw string) (Severity, error) {
	s := Severity(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown severity %q (expected green, yellow or red)", raw)
	}
	return s, nil
}

// Worse returns the higher-ranked of a and b.
func Worse(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// PackageSeverity derives a package verdict from its findings and step
// results. A failed install or test forces red regardless of findings;
// skipped steps (nil) carry no signal. A package with no findings and
// no failed steps is green.
func PackageSeverity(findings []Finding, install, test *StepResult) Severity {
	severity := SeverityGreen
	for _, f := range findings {
		severity = Worse(severity, f.Severity)
	}
	if stepFailed(install) || stepFailed(test) {
		severity = SeverityRed
	}
	return severity
}

func stepFailed(step *StepResult) bool {
	return step != nil && !step.Ok
}

// Aggregate folds the root analysis and every package verdict into the
// repo-level severity. Any red anywhere makes the repo red; otherwise
// any yellow makes it yellow; otherwise green. Packages that were
// skipped do not participate.
func Aggregate(root PackageAnalysis, packages []PackageAnalysis) Severity {
	severity := root.Severity
	for _, p := range packages {
		if p.Severity == SeverityRed {
			return SeverityRed
		}
		severity = Worse(severity, p.Severity)
	}
	return severity
}
