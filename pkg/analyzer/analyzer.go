package analyzer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/bun-ready/bun-ready/pkg/baseline"
	"github.com/bun-ready/bun-ready/pkg/ci"
	"github.com/bun-ready/bun-ready/pkg/detect"
	"github.com/bun-ready/bun-ready/pkg/imports"
	"github.com/bun-ready/bun-ready/pkg/logger"
	"github.com/bun-ready/bun-ready/pkg/policy"
	"github.com/bun-ready/bun-ready/pkg/project"
	"github.com/bun-ready/bun-ready/pkg/runner"
	"github.com/bun-ready/bun-ready/pkg/scan"
)

// ErrBaselineRequired is returned when --baseline points at a missing
// file and no --update-baseline was given. Comparing against nothing
// would make the regression check silently pass forever.
var ErrBaselineRequired = errors.New("baseline file does not exist; run with --update-baseline to create it")

// Options configures one repository scan.
type Options struct {
	RepoPath       string
	Policy         policy.Config
	RunInstall     bool
	RunTest        bool
	Timeout        time.Duration
	Binary         string
	BaselinePath   string
	UpdateBaseline bool
	ChangedOnly    bool
	NoWorkspaces   bool
	ExcludeDirs    []string
	ScanVersion    string
}

// Result is the fully assembled scan outcome handed to the renderers.
// Fingerprints carries the complete post-policy fingerprint set for
// baseline updates; it is not part of the rendered report.
type Result struct {
	RunID       string                 `json:"runId"`
	ScanVersion string                 `json:"scanVersion,omitempty"`
	GeneratedAt string                 `json:"generatedAt"`
	RepoPath    string                 `json:"repoPath"`
	Severity    scan.Severity          `json:"severity"`
	Root        scan.PackageAnalysis   `json:"root"`
	Packages    []scan.PackageAnalysis `json:"packages"`
	Metrics     scan.Metrics           `json:"metrics"`
	Policy      policy.Summary         `json:"policy"`
	Thresholds  ci.Verdict             `json:"thresholds"`
	Baseline    *baseline.Comparison   `json:"baseline,omitempty"`
	ExitCode    int                    `json:"exitCode"`

	Fingerprints []baseline.Fingerprint `json:"-"`
}

// AnalyzeRepo scans the repository at opts.RepoPath: root first, then
// every workspace package in name order, one at a time. Detector
// findings flow through the policy, severities are recomputed, the
// overall verdict is aggregated and the exit code resolved. Almost
// every problem degrades into findings or warnings; the only error is
// a required baseline that does not exist.
func AnalyzeRepo(ctx context.Context, opts Options) (Result, error) {
	repoPath, err := filepath.Abs(opts.RepoPath)
	if err != nil {
		repoPath = opts.RepoPath
	}

	// Workspaces are discovered up front so the root scan can leave
	// their sources to the per-package scans.
	workspaces := []project.Workspace{}
	if !opts.NoWorkspaces {
		if rootManifest, err := project.Load(repoPath); err == nil {
			workspaces = project.DiscoverWorkspaces(repoPath, rootManifest)
		}
	}
	// Exclusions are configured relative to the repository root but the
	// import scanner compares absolute walk paths.
	excluded := make([]string, 0, len(opts.ExcludeDirs))
	for _, dir := range opts.ExcludeDirs {
		excluded = append(excluded, filepath.Join(repoPath, dir))
	}
	rootExcluded := excluded
	for _, workspace := range workspaces {
		rootExcluded = append(rootExcluded, workspace.Path)
	}

	root := analyzeDir(ctx, repoPath, repoPath, opts, rootExcluded)

	packages := []scan.PackageAnalysis{}
	for _, workspace := range workspaces {
		logger.Debugf("Scanning workspace package %s", workspace.Name)
		analysis := analyzeDir(ctx, workspace.Path, repoPath, opts, excluded)
		analysis.Name = workspace.Name
		packages = append(packages, analysis)
	}

	// Policy pass: remap or suppress findings, then recompute each
	// severity from what survived.
	summary := policy.Summary{}
	root.Findings, summary = policy.ApplyForPackage(root.Findings, opts.Policy, baseline.RootPackage)
	root.Severity = scan.PackageSeverity(root.Findings, root.Install, root.Test)
	for i := range packages {
		modified, pkgSummary := policy.ApplyForPackage(packages[i].Findings, opts.Policy, packages[i].Name)
		packages[i].Findings = modified
		packages[i].Severity = scan.PackageSeverity(modified, packages[i].Install, packages[i].Test)
		summary.Merge(pkgSummary)
	}

	severity := scan.Aggregate(root, packages)
	metrics := scan.CountMetrics(root, packages, severity)
	fingerprints := baseline.Collect(root, packages)

	comparison, err := compareBaseline(opts, fingerprints)
	if err != nil {
		return Result{}, err
	}

	redPackages, yellowPackages := 0, 0
	for _, p := range packages {
		switch p.Severity {
		case scan.SeverityRed:
			redPackages++
		case scan.SeverityYellow:
			yellowPackages++
		}
	}
	verdict := ci.EvaluateThresholds(metrics, redPackages, yellowPackages, opts.Policy.Thresholds)
	summary.RulesApplied += len(verdict.Breaches)
	for _, breach := range verdict.Breaches {
		logger.Warnf("Threshold breached: %s", breach)
	}

	regression := comparison != nil && comparison.IsRegression
	exitCode := ci.Resolve(severity, opts.Policy.FailOn, verdict, regression)

	result := Result{
		RunID:        uuid.NewString(),
		ScanVersion:  opts.ScanVersion,
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
		RepoPath:     repoPath,
		Severity:     severity,
		Root:         root,
		Packages:     packages,
		Metrics:      metrics,
		Policy:       summary,
		Thresholds:   verdict,
		Baseline:     comparison,
		ExitCode:     exitCode,
		Fingerprints: fingerprints,
	}

	if opts.ChangedOnly && comparison != nil {
		filterChanged(&result, comparison)
	}
	return result, nil
}

func analyzeDir(ctx context.Context, dir, repoPath string, opts Options, excludeDirs []string) scan.PackageAnalysis {
	manifest, err := project.Load(dir)
	if err != nil {
		if errors.Is(err, project.ErrNoManifest) {
			logger.Debugf("No package.json in %s", dir)
		} else {
			logger.Warnf("Skipping manifest in %s: %v", dir, err)
		}
		finding := detect.NoManifest(packageLabel(dir, repoPath))
		return scan.PackageAnalysis{
			Name:     filepath.Base(dir),
			Path:     dir,
			Severity: finding.Severity,
			Findings: []scan.Finding{finding},
		}
	}

	records := imports.ScanDir(dir, excludeDirs...)
	findings := detect.RunAll(&detect.Context{
		Dir:      dir,
		Manifest: manifest,
		Imports:  records,
		IsRoot:   dir == repoPath,
	})

	var install, test *scan.StepResult
	run := runner.Runner{Binary: opts.Binary, Timeout: opts.Timeout}
	if opts.RunInstall {
		install = run.Install(ctx, dir)
	}
	if opts.RunTest {
		test = run.Test(ctx, dir)
	}
	findings = append(findings, detect.StepFindings(install, test)...)

	return scan.PackageAnalysis{
		Name:     manifest.DisplayName(dir),
		Path:     dir,
		Severity: scan.PackageSeverity(findings, install, test),
		Findings: findings,
		Install:  install,
		Test:     test,
	}
}

// packageLabel keeps finding details machine-independent by reporting
// paths relative to the repository root.
func packageLabel(dir, repoPath string) string {
	rel, err := filepath.Rel(repoPath, dir)
	if err != nil || rel == "." {
		return "the repository root"
	}
	return rel
}

func compareBaseline(opts Options, fingerprints []baseline.Fingerprint) (*baseline.Comparison, error) {
	if opts.BaselinePath == "" {
		return nil, nil
	}

	data, err := baseline.Load(opts.BaselinePath)
	switch {
	case err == nil:
		comparison := baseline.Compare(data.Findings, fingerprints)
		return &comparison, nil
	case errors.Is(err, baseline.ErrNotFound):
		if !opts.UpdateBaseline {
			return nil, fmt.Errorf("%w: %s", ErrBaselineRequired, opts.BaselinePath)
		}
		logger.Infof("No baseline at %s yet, a fresh one will be written", opts.BaselinePath)
		return nil, nil
	default:
		logger.Warnf("Ignoring unusable baseline %s: %v", opts.BaselinePath, err)
		return nil, nil
	}
}

// filterChanged trims the report down to findings that are new or
// changed since the baseline. Severity, metrics and the exit code stay
// computed from the full scan; only the listing shrinks. Workspace
// packages left without a single changed finding drop out entirely,
// the root stays as the report anchor.
func filterChanged(result *Result, comparison *baseline.Comparison) {
	keys := map[string]bool{}
	for _, fp := range comparison.NewFindings {
		keys[fp.Key()] = true
	}
	for _, change := range comparison.SeverityChanges {
		keys[change.Fingerprint.Key()] = true
	}

	result.Root.Findings = keepChanged(result.Root.Findings, baseline.RootPackage, keys)
	packages := []scan.PackageAnalysis{}
	for _, pkg := range result.Packages {
		pkg.Findings = keepChanged(pkg.Findings, pkg.Name, keys)
		if len(pkg.Findings) == 0 {
			continue
		}
		packages = append(packages, pkg)
	}
	result.Packages = packages
}

func keepChanged(findings []scan.Finding, packageName string, keys map[string]bool) []scan.Finding {
	kept := []scan.Finding{}
	for _, f := range findings {
		if keys[baseline.New(f, packageName).Key()] {
			kept = append(kept, f)
		}
	}
	return kept
}

// SaveBaseline persists the scan's fingerprints, replacing any previous
// snapshot at path.
func SaveBaseline(result Result, path string) error {
	data := baseline.NewData(result.RepoPath, result.ScanVersion, result.Fingerprints, result.Metrics)
	return baseline.Save(data, path)
}
