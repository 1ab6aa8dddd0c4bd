package detect

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/bun-ready/bun-ready/pkg/scan"
)

// Packages that compile or download native code at install time. Native
// addons are the most common hard blocker when switching runtimes.
var nativeAddonPackages = map[string]bool{
	"node-gyp":                true,
	"node-pre-gyp":            true,
	"@mapbox/node-pre-gyp":    true,
	"node-addon-api":          true,
	"nan":                     true,
	"prebuild":                true,
	"prebuild-install":        true,
	"node-sass":               true,
	"sharp":                   true,
	"canvas":                  true,
	"bcrypt":                  true,
	"argon2":                  true,
	"sqlite3":                 true,
	"better-sqlite3":          true,
	"grpc":                    true,
	"re2":                     true,
	"serialport":              true,
	"fsevents":                true,
	"leveldown":               true,
	"bufferutil":              true,
	"utf-8-validate":          true,
	"cpu-features":            true,
	"ssh2":                    true,
	"robotjs":                 true,
	"@tensorflow/tfjs-node":   true,
	"couchbase":               true,
	"zeromq":                  true,
	"msgpackr-extract":        true,
	"@parcel/watcher":         true,
	"unix-dgram":              true,
	"nodegit":                 true,
	"@datadog/native-metrics": true,
}

// Packages that rely on install-time lifecycle scripts. Bun skips
// dependency lifecycle scripts unless the package is listed in
// trustedDependencies, so these silently lose their setup step.
var installScriptPackages = map[string]bool{
	"husky":              true,
	"puppeteer":          true,
	"playwright":         true,
	"electron":           true,
	"cypress":            true,
	"prisma":             true,
	"@prisma/client":     true,
	"@sentry/cli":        true,
	"esbuild":            true,
	"@swc/core":          true,
	"core-js":            true,
	"protobufjs":         true,
	"nx":                 true,
	"msw":                true,
	"phantomjs-prebuilt": true,
	"chromedriver":       true,
	"geckodriver":        true,
}

// Packages whose job Bun already does natively.
var bunReplaceablePackages = map[string]string{
	"node-fetch":  "fetch is built in",
	"dotenv":      ".env files load automatically",
	"ws":          "WebSocket server and client are built in",
	"nodemon":     "bun --watch restarts on change",
	"ts-node":     "TypeScript runs directly",
	"tsx":         "TypeScript runs directly",
	"cross-env":   "environment variables work cross-platform in bun run",
	"npm-run-all": "bun run supports script chaining",
	"rimraf":      "Bun's shell runs rm -rf cross-platform",
}

var nativeAddonsDetector = Detector{
	ID:       "deps.native_addons",
	Title:    "Native addon dependencies",
	Severity: scan.SeverityRed,
	Summary:  "Dependencies that compile or ship native code and may not load under Bun",
	Run: func(ctx *Context) []scan.Finding {
		if ctx.Manifest == nil {
			return nil
		}
		details := matchDependencies(ctx, nativeAddonPackages)
		if ctx.Manifest.Gypfile || fileExists(filepath.Join(ctx.Dir, "binding.gyp")) {
			details = append(details, "the package builds its own addon (binding.gyp)")
		}
		if len(details) == 0 {
			return nil
		}
		return []scan.Finding{{
			ID:       "deps.native_addons",
			Title:    "Native addon dependencies",
			Severity: scan.SeverityRed,
			Details:  details,
			Hints: []string{
				"verify each addon loads under Bun's N-API implementation",
				"run the scan with --install --test to probe them directly",
			},
		}}
	},
}

var installScriptsDetector = Detector{
	ID:       "deps.install_scripts",
	Title:    "Dependencies with install-time scripts",
	Severity: scan.SeverityYellow,
	Summary:  "Dependencies whose postinstall step Bun skips unless trusted",
	Run: func(ctx *Context) []scan.Finding {
		if ctx.Manifest == nil {
			return nil
		}
		trusted := map[string]bool{}
		for _, name := range ctx.Manifest.TrustedDependencies {
			trusted[name] = true
		}

		details := []string{}
		for name, version := range ctx.Manifest.AllDependencies() {
			if installScriptPackages[name] && !trusted[name] {
				details = append(details, fmt.Sprintf("%s (%s)", name, version))
			}
		}
		sort.Strings(details)
		if len(details) == 0 {
			return nil
		}
		return []scan.Finding{{
			ID:       "deps.install_scripts",
			Title:    "Dependencies with install-time scripts",
			Severity: scan.SeverityYellow,
			Details:  details,
			Hints:    []string{"add the packages you rely on to trustedDependencies in package.json"},
		}}
	},
}

var bunReplaceableDetector = Detector{
	ID:       "deps.bun_replaceable",
	Title:    "Dependencies Bun provides natively",
	Severity: scan.SeverityGreen,
	Summary:  "Dependencies that become unnecessary after the migration",
	Run: func(ctx *Context) []scan.Finding {
		if ctx.Manifest == nil {
			return nil
		}
		details := []string{}
		for name := range ctx.Manifest.AllDependencies() {
			if why, ok := bunReplaceablePackages[name]; ok {
				details = append(details, fmt.Sprintf("%s: %s", name, why))
			}
		}
		sort.Strings(details)
		if len(details) == 0 {
			return nil
		}
		return []scan.Finding{{
			ID:       "deps.bun_replaceable",
			Title:    "Dependencies Bun provides natively",
			Severity: scan.SeverityGreen,
			Details:  details,
			Hints:    []string{"these can usually be dropped once the migration lands"},
		}}
	},
}

func matchDependencies(ctx *Context, set map[string]bool) []string {
	details := []string{}
	for name, version := range ctx.Manifest.AllDependencies() {
		if set[name] {
			details = append(details, fmt.Sprintf("%s (%s)", name, version))
		}
	}
	sort.Strings(details)
	return details
}
