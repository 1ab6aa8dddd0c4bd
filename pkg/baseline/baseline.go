package baseline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bun-ready/bun-ready/pkg/scan"
)

// Version is the baseline file format version.
const Version = "0.3"

// RootPackage is the package name recorded for findings that belong to
// the repository root rather than a workspace package.
const RootPackage = "root"

// Fingerprint is the content-addressed identity of one finding
// occurrence. Severity is carried for comparison but excluded from the
// composite key, so the same logical finding is tracked across a
// severity change.
type Fingerprint struct {
	ID          string        `json:"id"`
	PackageName string        `json:"packageName"`
	Severity    scan.Severity `json:"severity"`
	DetailsHash string        `json:"detailsHash"`
}

// New fingerprints a finding for the given package. An empty package
// name maps to "root". Detail strings are lower-cased and sorted before
// hashing, so reordering or re-casing details never changes the
// fingerprint.
func New(f scan.Finding, packageName string) Fingerprint {
	if packageName == "" {
		packageName = RootPackage
	}
	return Fingerprint{
		ID:          f.ID,
		PackageName: packageName,
		Severity:    f.Severity,
		DetailsHash: hashDetails(f.Details),
	}
}

// Key returns the composite identity used for baseline diffing.
func (fp Fingerprint) Key() string {
	return fp.ID + ":" + fp.PackageName + ":" + fp.DetailsHash
}

func hashDetails(details []string) string {
	normalized := make([]string, 0, len(details))
	for _, d := range details {
		normalized = append(normalized, strings.ToLower(d))
	}
	sort.Strings(normalized)
	sum := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(sum[:])
}

// Collect fingerprints every finding in a scan, root first and then
// each package in the order given. Callers pass packages already in
// deterministic name order, so the collected list is stable run to run.
func Collect(root scan.PackageAnalysis, packages []scan.PackageAnalysis) []Fingerprint {
	fingerprints := make([]Fingerprint, 0, len(root.Findings))
	for _, f := range root.Findings {
		fingerprints = append(fingerprints, New(f, RootPackage))
	}
	for _, p := range packages {
		for _, f := range p.Findings {
			fingerprints = append(fingerprints, New(f, p.Name))
		}
	}
	return fingerprints
}

// SeverityShift records one fingerprint whose severity moved between
// baseline and current.
type SeverityShift struct {
	Fingerprint Fingerprint   `json:"fingerprint"`
	OldSeverity scan.Severity `json:"oldSeverity"`
	NewSeverity scan.Severity `json:"newSeverity"`
}

// Comparison is the diff between a stored baseline and the current
// scan. Computed fresh every run and never persisted.
type Comparison struct {
	NewFindings       []Fingerprint   `json:"newFindings"`
	ResolvedFindings  []Fingerprint   `json:"resolvedFindings"`
	SeverityChanges   []SeverityShift `json:"severityChanges"`
	IsRegression      bool            `json:"isRegression"`
	RegressionReasons []string        `json:"regressionReasons,omitempty"`
}

// Compare diffs two fingerprint sets keyed by id:packageName:detailsHash.
// Entries present on one side only are new or resolved; entries present
// on both sides with a different severity are severity changes and
// never appear in the new or resolved lists. A finding that moved
// between packages keys differently on each side and therefore shows up
// as one resolution plus one new finding.
//
// The comparison is a regression when any new finding is red, or any
// severity change lands on red.
func Compare(baselineSet, current []Fingerprint) Comparison {
	baselineByKey := index(baselineSet)
	currentByKey := index(current)

	comparison := Comparison{
		NewFindings:      []Fingerprint{},
		ResolvedFindings: []Fingerprint{},
		SeverityChanges:  []SeverityShift{},
	}

	for _, fp := range current {
		old, known := baselineByKey[fp.Key()]
		if !known {
			comparison.NewFindings = append(comparison.NewFindings, fp)
			continue
		}
		if old.Severity != fp.Severity {
			comparison.SeverityChanges = append(comparison.SeverityChanges, SeverityShift{
				Fingerprint: fp,
				OldSeverity: old.Severity,
				NewSeverity: fp.Severity,
			})
		}
	}

	for _, fp := range baselineSet {
		if _, still := currentByKey[fp.Key()]; !still {
			comparison.ResolvedFindings = append(comparison.ResolvedFindings, fp)
		}
	}

	newRed := 0
	for _, fp := range comparison.NewFindings {
		if fp.Severity == scan.SeverityRed {
			newRed++
		}
	}
	escalatedRed := 0
	for _, change := range comparison.SeverityChanges {
		if change.NewSeverity == scan.SeverityRed {
			escalatedRed++
		}
	}

	if newRed > 0 {
		comparison.IsRegression = true
		comparison.RegressionReasons = append(comparison.RegressionReasons,
			fmt.Sprintf("New RED findings since baseline: %d", newRed))
	}
	if escalatedRed > 0 {
		comparison.IsRegression = true
		comparison.RegressionReasons = append(comparison.RegressionReasons,
			fmt.Sprintf("Findings escalated to RED since baseline: %d", escalatedRed))
	}

	return comparison
}

func index(fingerprints []Fingerprint) map[string]Fingerprint {
	byKey := make(map[string]Fingerprint, len(fingerprints))
	for _, fp := range fingerprints {
		byKey[fp.Key()] = fp
	}
	return byKey
}

// Timestamp returns the RFC 3339 UTC timestamp recorded in baselines.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
