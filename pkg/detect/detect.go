package detect

import (
	"github.com/bun-ready/bun-ready/pkg/imports"
	"github.com/bun-ready/bun-ready/pkg/project"
	"github.com/bun-ready/bun-ready/pkg/scan"
)

// Context is everything a detector may inspect for one package.
// Manifest is nil when the package has no package.json; detectors that
// need it must return no findings in that case.
type Context struct {
	Dir      string
	Manifest *project.Manifest
	Imports  []imports.Record
	IsRoot   bool
}

// Detector is one registered heuristic. Severity is the worst level the
// detector can emit, shown in the rule catalog.
type Detector struct {
	ID       string
	Title    string
	Severity scan.Severity
	Summary  string
	Run      func(*Context) []scan.Finding
}

// All returns the detector battery in its fixed registration order.
// Findings come out in this order, which keeps reports and baselines
// stable across runs.
func All() []Detector {
	return []Detector{
		nativeAddonsDetector,
		installScriptsDetector,
		bunReplaceableDetector,
		enginesNodeDetector,
		enginesBunDetector,
		lockfilesDetector,
		packageManagerDetector,
		scriptNodeFlagsDetector,
		scriptLifecycleDetector,
		scriptTestRunnerDetector,
		nodeBuiltinsDetector,
	}
}

// RunAll executes every detector against ctx and concatenates the
// findings in registration order.
func RunAll(ctx *Context) []scan.Finding {
	findings := []scan.Finding{}
	for _, detector := range All() {
		findings = append(findings, detector.Run(ctx)...)
	}
	return findings
}

// NoManifest is the synthetic finding for a package directory without a
// package.json. It is not part of the battery since it replaces a scan
// rather than contributing to one.
func NoManifest(dir string) scan.Finding {
	return scan.Finding{
		ID:       "repo.no_package_json",
		Title:    "No package.json found",
		Severity: scan.SeverityRed,
		Details:  []string{"expected a package.json in " + dir},
		Hints:    []string{"every scanned package needs a package.json; check the workspace configuration"},
	}
}
