package baseline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bun-ready/bun-ready/pkg/scan"
)

func TestFingerprintIgnoresDetailOrderAndCase(t *testing.T) {
	a := scan.Finding{ID: "deps.native_addons", Severity: scan.SeverityRed, Details: []string{"A", "b"}}
	b := scan.Finding{ID: "deps.native_addons", Severity: scan.SeverityRed, Details: []string{"b", "a"}}

	fpA := New(a, "root")
	fpB := New(b, "root")
	assert.Equal(t, fpA.DetailsHash, fpB.DetailsHash)
	assert.Equal(t, fpA.Key(), fpB.Key())

	// Calling twice on the same finding is stable.
	assert.Equal(t, fpA, New(a, "root"))

	// Different content hashes differently.
	c := scan.Finding{ID: "deps.native_addons", Severity: scan.SeverityRed, Details: []string{"c"}}
	assert.NotEqual(t, fpA.DetailsHash, New(c, "root").DetailsHash)
}

func TestFingerprintDefaultsPackageToRoot(t *testing.T) {
	fp := New(scan.Finding{ID: "pm.lockfiles"}, "")
	assert.Equal(t, "root", fp.PackageName)
}

func TestKeyExcludesSeverity(t *testing.T) {
	yellow := Fingerprint{ID: "x", PackageName: "root", Severity: scan.SeverityYellow, DetailsHash: "h1"}
	red := Fingerprint{ID: "x", PackageName: "root", Severity: scan.SeverityRed, DetailsHash: "h1"}
	assert.Equal(t, yellow.Key(), red.Key())
}

func TestCollectOrdersRootThenPackages(t *testing.T) {
	root := scan.PackageAnalysis{
		Name:     "my-app",
		Findings: []scan.Finding{{ID: "pm.lockfiles", Severity: scan.SeverityYellow}},
	}
	packages := []scan.PackageAnalysis{
		{Name: "api", Findings: []scan.Finding{{ID: "deps.native_addons", Severity: scan.SeverityRed}}},
		{Name: "web", Findings: []scan.Finding{{ID: "scripts.node_flags", Severity: scan.SeverityYellow}}},
	}

	fingerprints := Collect(root, packages)
	require.Len(t, fingerprints, 3)
	assert.Equal(t, "root", fingerprints[0].PackageName)
	assert.Equal(t, "api", fingerprints[1].PackageName)
	assert.Equal(t, "web", fingerprints[2].PackageName)
}

func TestCompareIdenticalSetsIsClean(t *testing.T) {
	set := []Fingerprint{
		{ID: "x", PackageName: "root", Severity: scan.SeverityYellow, DetailsHash: "h1"},
		{ID: "y", PackageName: "api", Severity: scan.SeverityRed, DetailsHash: "h2"},
	}

	comparison := Compare(set, set)
	assert.Empty(t, comparison.NewFindings)
	assert.Empty(t, comparison.ResolvedFindings)
	assert.Empty(t, comparison.SeverityChanges)
	assert.False(t, comparison.IsRegression)
	assert.Empty(t, comparison.RegressionReasons)
}

func TestCompareNewRedIsRegression(t *testing.T) {
	baselineSet := []Fingerprint{
		{ID: "x", PackageName: "root", Severity: scan.SeverityYellow, DetailsHash: "h1"},
	}
	current := []Fingerprint{
		{ID: "x", PackageName: "root", Severity: scan.SeverityYellow, DetailsHash: "h1"},
		{ID: "y", PackageName: "root", Severity: scan.SeverityRed, DetailsHash: "h2"},
	}

	comparison := Compare(baselineSet, current)
	require.Len(t, comparison.NewFindings, 1)
	assert.Equal(t, "y", comparison.NewFindings[0].ID)
	assert.True(t, comparison.IsRegression)
	require.Len(t, comparison.RegressionReasons, 1)
	assert.Contains(t, comparison.RegressionReasons[0], "New RED findings")
}

func TestCompareNewYellowIsNotRegression(t *testing.T) {
	current := []Fingerprint{
		{ID: "y", PackageName: "root", Severity: scan.SeverityYellow, DetailsHash: "h2"},
	}

	comparison := Compare(nil, current)
	assert.Len(t, comparison.NewFindings, 1)
	assert.False(t, comparison.IsRegression)
}

func TestCompareSeverityEscalationToRed(t *testing.T) {
	baselineSet := []Fingerprint{
		{ID: "x", PackageName: "root", Severity: scan.SeverityYellow, DetailsHash: "h1"},
	}
	current := []Fingerprint{
		{ID: "x", PackageName: "root", Severity: scan.SeverityRed, DetailsHash: "h1"},
	}

	comparison := Compare(baselineSet, current)
	assert.Empty(t, comparison.NewFindings)
	assert.Empty(t, comparison.ResolvedFindings)
	require.Len(t, comparison.SeverityChanges, 1)
	assert.Equal(t, scan.SeverityYellow, comparison.SeverityChanges[0].OldSeverity)
	assert.Equal(t, scan.SeverityRed, comparison.SeverityChanges[0].NewSeverity)
	assert.True(t, comparison.IsRegression)
	require.Len(t, comparison.RegressionReasons, 1)
	assert.Contains(t, comparison.RegressionReasons[0], "escalated to RED")
}

func TestCompareSeverityDowngradeIsTrackedNotRegression(t *testing.T) {
	baselineSet := []Fingerprint{
		{ID: "x", PackageName: "root", Severity: scan.SeverityRed, DetailsHash: "h1"},
	}
	current := []Fingerprint{
		{ID: "x", PackageName: "root", Severity: scan.SeverityYellow, DetailsHash: "h1"},
	}

	comparison := Compare(baselineSet, current)
	require.Len(t, comparison.SeverityChanges, 1)
	assert.False(t, comparison.IsRegression)
}

func TestComparePackageMoveIsNewPlusResolved(t *testing.T) {
	baselineSet := []Fingerprint{
		{ID: "x", PackageName: "pkg1", Severity: scan.SeverityYellow, DetailsHash: "h1"},
	}
	current := []Fingerprint{
		{ID: "x", PackageName: "pkg2", Severity: scan.SeverityYellow, DetailsHash: "h1"},
	}

	comparison := Compare(baselineSet, current)
	require.Len(t, comparison.NewFindings, 1)
	assert.Equal(t, "pkg2", comparison.NewFindings[0].PackageName)
	require.Len(t, comparison.ResolvedFindings, 1)
	assert.Equal(t, "pkg1", comparison.ResolvedFindings[0].PackageName)
	assert.Empty(t, comparison.SeverityChanges)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	data := NewData("/repo", "0.3.0", []Fingerprint{
		{ID: "x", PackageName: "root", Severity: scan.SeverityYellow, DetailsHash: "h1"},
		{ID: "y", PackageName: "api", Severity: scan.SeverityRed, DetailsHash: "h2"},
	}, scan.Metrics{TotalFindings: 2, RedFindings: 1, YellowFindings: 1, Severity: scan.SeverityRed})

	require.NoError(t, Save(data, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, data.Version, loaded.Version)
	assert.Equal(t, data.Findings, loaded.Findings)
	assert.Equal(t, data.Metrics, loaded.Metrics)
	assert.Equal(t, data.Timestamp, loaded.Timestamp)
}

func TestSaveOverwritesWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	first := NewData("/repo", "", []Fingerprint{
		{ID: "x", PackageName: "root", Severity: scan.SeverityRed, DetailsHash: "h1"},
	}, scan.Metrics{})
	require.NoError(t, Save(first, path))

	second := NewData("/repo", "", []Fingerprint{
		{ID: "y", PackageName: "root", Severity: scan.SeverityGreen, DetailsHash: "h2"},
	}, scan.Metrics{})
	require.NoError(t, Save(second, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Findings, 1)
	assert.Equal(t, "y", loaded.Findings[0].ID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()

	garbled := filepath.Join(dir, "garbled.json")
	require.NoError(t, os.WriteFile(garbled, []byte("{not json"), 0o644))
	_, err := Load(garbled)
	assert.ErrorIs(t, err, ErrInvalid)

	// Valid JSON but missing the required shape.
	hollow := filepath.Join(dir, "hollow.json")
	require.NoError(t, os.WriteFile(hollow, []byte(`{"version":"0.3"}`), 0o644))
	_, err = Load(hollow)
	assert.ErrorIs(t, err, ErrInvalid)
}
