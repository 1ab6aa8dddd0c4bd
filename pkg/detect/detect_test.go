package detect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bun-ready/bun-ready/pkg/imports"
	"github.com/bun-ready/bun-ready/pkg/project"
	"github.com/bun-ready/bun-ready/pkg/scan"
)

func contextWithManifest(m *project.Manifest) *Context {
	// A directory that does not exist, so filesystem detectors stay quiet.
	return &Context{Dir: filepath.Join(os.TempDir(), "bun-ready-detect-none"), Manifest: m}
}

func findByID(findings []scan.Finding, id string) *scan.Finding {
	for i := range findings {
		if findings[i].ID == id {
			return &findings[i]
		}
	}
	return nil
}

func TestNativeAddonsDetector(t *testing.T) {
	ctx := contextWithManifest(&project.Manifest{
		Dependencies:    map[string]string{"sharp": "^0.33.0", "express": "^4.18.0"},
		DevDependencies: map[string]string{"node-gyp": "^10.0.0"},
	})

	findings := nativeAddonsDetector.Run(ctx)
	require.Len(t, findings, 1)
	assert.Equal(t, "deps.native_addons", findings[0].ID)
	assert.Equal(t, scan.SeverityRed, findings[0].Severity)
	// Details are sorted for stable fingerprints.
	assert.Equal(t, []string{"node-gyp (^10.0.0)", "sharp (^0.33.0)"}, findings[0].Details)

	assert.Empty(t, nativeAddonsDetector.Run(contextWithManifest(&project.Manifest{
		Dependencies: map[string]string{"express": "^4.18.0"},
	})))
	assert.Empty(t, nativeAddonsDetector.Run(&Context{}))
}

func TestNativeAddonsDetectorGypfile(t *testing.T) {
	// Declared through the manifest field.
	findings := nativeAddonsDetector.Run(contextWithManifest(&project.Manifest{Gypfile: true}))
	require.Len(t, findings, 1)
	assert.Equal(t, scan.SeverityRed, findings[0].Severity)
	assert.Contains(t, findings[0].Details[0], "binding.gyp")

	// Or by shipping a binding.gyp next to the manifest.
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "binding.gyp"), []byte("{}"), 0o644))
	findings = nativeAddonsDetector.Run(&Context{Dir: dir, Manifest: &project.Manifest{}})
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Details[0], "binding.gyp")
}

func TestInstallScriptsDetectorRespectsTrusted(t *testing.T) {
	ctx := contextWithManifest(&project.Manifest{
		Dependencies: map[string]string{"puppeteer": "^22.0.0", "husky": "^9.0.0"},
	})
	findings := installScriptsDetector.Run(ctx)
	require.Len(t, findings, 1)
	assert.Equal(t, scan.SeverityYellow, findings[0].Severity)
	assert.Len(t, findings[0].Details, 2)

	ctx.Manifest.TrustedDependencies = []string{"puppeteer", "husky"}
	assert.Empty(t, installScriptsDetector.Run(ctx))
}

func TestBunReplaceableDetector(t *testing.T) {
	ctx := contextWithManifest(&project.Manifest{
		Dependencies: map[string]string{"node-fetch": "^3.0.0", "dotenv": "^16.0.0"},
	})
	findings := bunReplaceableDetector.Run(ctx)
	require.Len(t, findings, 1)
	assert.Equal(t, scan.SeverityGreen, findings[0].Severity)
	assert.Len(t, findings[0].Details, 2)
}

func TestEnginesNodeDetector(t *testing.T) {
	// Modern range: no finding.
	assert.Empty(t, enginesNodeDetector.Run(contextWithManifest(&project.Manifest{
		Engines: project.Engines{Node: ">=18"},
	})))

	// Range that excludes every supported LTS.
	findings := enginesNodeDetector.Run(contextWithManifest(&project.Manifest{
		Engines: project.Engines{Node: "^14.0.0"},
	}))
	require.Len(t, findings, 1)
	assert.Equal(t, scan.SeverityYellow, findings[0].Severity)
	assert.Contains(t, findings[0].Details[0], "excludes Node 18, 20 and 22")

	// Unparseable range.
	findings = enginesNodeDetector.Run(contextWithManifest(&project.Manifest{
		Engines: project.Engines{Node: "latest-and-greatest"},
	}))
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Details[0], "not a valid semver range")

	// No engines block at all.
	assert.Empty(t, enginesNodeDetector.Run(contextWithManifest(&project.Manifest{})))
}

func TestEnginesBunDetector(t *testing.T) {
	findings := enginesBunDetector.Run(contextWithManifest(&project.Manifest{
		Engines: project.Engines{Bun: ">=1.0.0"},
	}))
	require.Len(t, findings, 1)
	assert.Equal(t, scan.SeverityGreen, findings[0].Severity)
}

func TestLockfilesDetector(t *testing.T) {
	dir := t.TempDir()
	ctx := &Context{Dir: dir}

	// No lockfiles at all: nothing to say.
	assert.Empty(t, lockfilesDetector.Run(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "yarn.lock"), []byte("#"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pnpm-lock.yaml"), []byte("{}"), 0o644))
	findings := lockfilesDetector.Run(ctx)
	require.Len(t, findings, 1)
	assert.Equal(t, scan.SeverityYellow, findings[0].Severity)
	assert.Equal(t, []string{"yarn.lock", "pnpm-lock.yaml"}, findings[0].Details)

	// A Bun lockfile flips the verdict regardless of leftovers.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bun.lock"), []byte("{}"), 0o644))
	findings = lockfilesDetector.Run(ctx)
	require.Len(t, findings, 1)
	assert.Equal(t, scan.SeverityGreen, findings[0].Severity)
}

func TestPackageManagerDetector(t *testing.T) {
	findings := packageManagerDetector.Run(contextWithManifest(&project.Manifest{
		PackageManager: "pnpm@9.1.0",
	}))
	require.Len(t, findings, 1)
	assert.Equal(t, scan.SeverityYellow, findings[0].Severity)

	findings = packageManagerDetector.Run(contextWithManifest(&project.Manifest{
		PackageManager: "bun@1.1.0",
	}))
	require.Len(t, findings, 1)
	assert.Equal(t, scan.SeverityGreen, findings[0].Severity)

	// A pin corepack cannot resolve earns an extra detail.
	findings = packageManagerDetector.Run(contextWithManifest(&project.Manifest{
		PackageManager: "yarn@berry",
	}))
	require.Len(t, findings, 1)
	require.Len(t, findings[0].Details, 2)
	assert.Contains(t, findings[0].Details[1], "not valid semver")
}

func TestScriptNodeFlagsDetector(t *testing.T) {
	ctx := contextWithManifest(&project.Manifest{
		Scripts: map[string]string{
			"debug": "node --inspect server.js",
			"start": "node server.js",
			"heavy": "NODE_OPTIONS=--max-old-space-size=4096 next build",
		},
	})
	findings := scriptNodeFlagsDetector.Run(ctx)
	require.Len(t, findings, 1)
	assert.Equal(t, scan.SeverityYellow, findings[0].Severity)
	// debug < heavy < start; start has no flagged content.
	require.Len(t, findings[0].Details, 3)
	assert.Contains(t, findings[0].Details[0], `script "debug"`)
}

func TestScriptLifecycleDetector(t *testing.T) {
	ctx := contextWithManifest(&project.Manifest{
		Scripts: map[string]string{
			"postinstall": "husky install",
			"build":       "tsc",
		},
	})
	findings := scriptLifecycleDetector.Run(ctx)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Details[0], "postinstall")
}

func TestScriptTestRunnerDetector(t *testing.T) {
	jest := contextWithManifest(&project.Manifest{Scripts: map[string]string{"test": "jest --ci"}})
	findings := scriptTestRunnerDetector.Run(jest)
	require.Len(t, findings, 1)
	assert.Equal(t, scan.SeverityYellow, findings[0].Severity)

	native := contextWithManifest(&project.Manifest{Scripts: map[string]string{"test": "bun test"}})
	findings = scriptTestRunnerDetector.Run(native)
	require.Len(t, findings, 1)
	assert.Equal(t, scan.SeverityGreen, findings[0].Severity)

	vitest := contextWithManifest(&project.Manifest{Scripts: map[string]string{"test": "vitest run"}})
	assert.Empty(t, scriptTestRunnerDetector.Run(vitest))
}

func TestNodeBuiltinsDetector(t *testing.T) {
	ctx := &Context{Imports: []imports.Record{
		{Module: "node:fs", File: "src/a.ts", Line: 1},
		{Module: "http2", File: "src/b.ts", Line: 2},
		{Module: "node:http2", File: "src/c.ts", Line: 9},
	}}
	findings := nodeBuiltinsDetector.Run(ctx)
	require.Len(t, findings, 1)
	assert.Equal(t, scan.SeverityYellow, findings[0].Severity)
	require.Len(t, findings[0].Details, 1)
	assert.Contains(t, findings[0].Details[0], "http2: partial")
	assert.Contains(t, findings[0].Details[0], "2 reference(s)")
	assert.Contains(t, findings[0].Details[0], "src/b.ts:2")

	// A missing builtin raises the finding to red.
	ctx.Imports = append(ctx.Imports, imports.Record{Module: "inspector", File: "src/d.ts", Line: 4})
	findings = nodeBuiltinsDetector.Run(ctx)
	require.Len(t, findings, 1)
	assert.Equal(t, scan.SeverityRed, findings[0].Severity)

	// Fully supported builtins alone produce nothing.
	clean := &Context{Imports: []imports.Record{
		{Module: "node:path", File: "src/a.ts", Line: 1},
		{Module: "fs/promises", File: "src/a.ts", Line: 2},
	}}
	assert.Empty(t, nodeBuiltinsDetector.Run(clean))
}

func TestBuiltinName(t *testing.T) {
	assert.Equal(t, "fs", builtinName("node:fs"))
	assert.Equal(t, "fs", builtinName("fs/promises"))
	assert.Equal(t, "stream", builtinName("node:stream/web"))
	assert.Equal(t, "", builtinName("lodash"))
	assert.Equal(t, "", builtinName("./fs"))
}

func TestStepFindings(t *testing.T) {
	assert.Empty(t, StepFindings(nil, nil))
	assert.Empty(t, StepFindings(&scan.StepResult{Ok: true}, &scan.StepResult{Ok: true}))

	failed := &scan.StepResult{Ok: false, Logs: []string{"a", "b", "c", "d", "e", "error: boom"}}
	findings := StepFindings(failed, nil)
	require.Len(t, findings, 1)
	assert.Equal(t, "install.log_errors", findings[0].ID)
	assert.Equal(t, scan.SeverityRed, findings[0].Severity)
	// Only an excerpt of the log is carried.
	assert.Len(t, findings[0].Details, stepLogExcerpt)
	assert.Contains(t, findings[0].Details, "error: boom")

	timedOut := &scan.StepResult{Ok: false, TimedOut: true}
	findings = StepFindings(nil, timedOut)
	require.Len(t, findings, 1)
	assert.Equal(t, "test.log_errors", findings[0].ID)
	assert.Contains(t, findings[0].Details, "the run timed out")
}

func TestStepFindingsHoistBuriedErrors(t *testing.T) {
	logs := []string{"error: cannot find module 'left-pad'", "1", "2", "3", "4", "5", "6"}
	findings := StepFindings(&scan.StepResult{Ok: false, Logs: logs}, nil)
	require.Len(t, findings, 1)
	assert.Len(t, findings[0].Details, stepLogExcerpt)
	assert.Contains(t, findings[0].Details, "error: cannot find module 'left-pad'")
	assert.NotContains(t, findings[0].Details, "2")
}

func TestNoManifest(t *testing.T) {
	finding := NoManifest("/repo/packages/ghost")
	assert.Equal(t, "repo.no_package_json", finding.ID)
	assert.Equal(t, scan.SeverityRed, finding.Severity)
}

func TestRunAllOrderIsStable(t *testing.T) {
	ctx := contextWithManifest(&project.Manifest{
		Dependencies: map[string]string{"sharp": "^0.33.0", "node-fetch": "^3.0.0"},
		Scripts:      map[string]string{"test": "jest"},
	})
	first := RunAll(ctx)
	second := RunAll(ctx)
	assert.Equal(t, first, second)

	// Battery order, not severity order.
	require.NotEmpty(t, first)
	assert.Equal(t, "deps.native_addons", first[0].ID)
}

func TestCatalogCoversSyntheticFindings(t *testing.T) {
	ids := map[string]bool{}
	for _, info := range Catalog() {
		ids[info.ID] = true
	}
	for _, id := range []string{
		"deps.native_addons", "imports.node_builtins", "repo.no_package_json",
		"install.log_errors", "test.log_errors", "pm.lockfiles",
	} {
		assert.True(t, ids[id], "catalog should list %s", id)
	}
}
