package scan

// Finding represents a single migration-risk observation produced by a
// detector. ID is the stable identity (dotted namespace, e.g.
// "deps.native_addons") used for policy matching and fingerprinting;
// Title, Details and Hints are presentation only.
type Finding struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Severity Severity `json:"severity"`
	Details  []string `json:"details,omitempty"`
	Hints    []string `json:"hints,omitempty"`
}

// StepResult captures the outcome of an external install or test run.
// A nil *StepResult means the step was skipped and must never be read
// as a failure.
type StepResult struct {
	Ok         bool     `json:"ok"`
	TimedOut   bool     `json:"timedOut,omitempty"`
	Logs       []string `json:"logs,omitempty"`
	DurationMS int64    `json:"durationMs,omitempty"`
}

// PackageAnalysis is the scan result for one package directory. Path is
// absolute and unique within a scan; it is the join key used by
// aggregation, baseline package scoping and changed-only filtering.
type PackageAnalysis struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Severity Severity    `json:"severity"`
	Findings []Finding   `json:"findings"`
	Install  *StepResult `json:"install,omitempty"`
	Test     *StepResult `json:"test,omitempty"`
}

// Metrics summarises a scan for baseline persistence and CI output.
type Metrics struct {
	TotalFindings  int      `json:"totalFindings"`
	RedFindings    int      `json:"redFindings"`
	YellowFindings int      `json:"yellowFindings"`
	GreenFindings  int      `json:"greenFindings"`
	Packages       int      `json:"packages"`
	Severity       Severity `json:"severity"`
}

// CountMetrics tallies finding counts across the root analysis and all
// workspace packages. Packages counts workspace packages only, matching
// the report's packages list.
func CountMetrics(root PackageAnalysis, packages []PackageAnalysis, overall Severity) Metrics {
	m := Metrics{Packages: len(packages), Severity: overall}
	tally := func(findings []Finding) {
		for _, f := range findings {
			m.TotalFindings++
			switch f.Severity {
			case SeverityRed:
				m.RedFindings++
			case SeverityYellow:
				m.YellowFindings++
			default:
				m.GreenFindings++
			}
		}
	}
	tally(root.Findings)
	for _, p := range packages {
		tally(p.Findings)
	}
	return m
}
