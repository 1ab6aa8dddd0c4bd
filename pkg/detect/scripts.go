package detect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bun-ready/bun-ready/pkg/scan"
)

// Node flags with no Bun equivalent or with different semantics.
var nodeOnlyFlags = []string{
	"--inspect",
	"--experimental-",
	"--loader",
	"--require",
	"--max-old-space-size",
	"--openssl-legacy-provider",
	"--trace-warnings",
	"NODE_OPTIONS",
}

var lifecycleScripts = []string{"preinstall", "install", "postinstall", "prepare", "prepack", "postpack"}

var foreignTestRunners = []string{"jest", "mocha", "ava ", "karma", "jasmine", "node --test", "tap "}

func sortedScriptNames(scripts map[string]string) []string {
	names := make([]string, 0, len(scripts))
	for name := range scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var scriptNodeFlagsDetector = Detector{
	ID:       "scripts.node_flags",
	Title:    "Scripts pass Node-specific flags",
	Severity: scan.SeverityYellow,
	Summary:  "npm scripts use Node flags Bun does not understand",
	Run: func(ctx *Context) []scan.Finding {
		if ctx.Manifest == nil {
			return nil
		}
		details := []string{}
		for _, name := range sortedScriptNames(ctx.Manifest.Scripts) {
			body := ctx.Manifest.Scripts[name]
			for _, flag := range nodeOnlyFlags {
				if strings.Contains(body, flag) {
					details = append(details, fmt.Sprintf("script %q uses %s", name, flag))
				}
			}
		}
		if len(details) == 0 {
			return nil
		}
		return []scan.Finding{{
			ID:       "scripts.node_flags",
			Title:    "Scripts pass Node-specific flags",
			Severity: scan.SeverityYellow,
			Details:  details,
			Hints:    []string{"check bun run --help for the matching Bun flag before switching"},
		}}
	},
}

var scriptLifecycleDetector = Detector{
	ID:       "scripts.lifecycle",
	Title:    "Lifecycle scripts present",
	Severity: scan.SeverityYellow,
	Summary:  "Install lifecycle scripts whose timing differs under Bun",
	Run: func(ctx *Context) []scan.Finding {
		if ctx.Manifest == nil {
			return nil
		}
		details := []string{}
		for _, name := range lifecycleScripts {
			if body, ok := ctx.Manifest.Scripts[name]; ok {
				details = append(details, fmt.Sprintf("%s: %q", name, body))
			}
		}
		if len(details) == 0 {
			return nil
		}
		return []scan.Finding{{
			ID:       "scripts.lifecycle",
			Title:    "Lifecycle scripts present",
			Severity: scan.SeverityYellow,
			Details:  details,
			Hints:    []string{"run bun install once and verify each lifecycle step still fires"},
		}}
	},
}

var scriptTestRunnerDetector = Detector{
	ID:       "scripts.test_runner",
	Title:    "Test script uses another runner",
	Severity: scan.SeverityYellow,
	Summary:  "The test script invokes a runner with partial Bun support",
	Run: func(ctx *Context) []scan.Finding {
		if ctx.Manifest == nil {
			return nil
		}
		body, ok := ctx.Manifest.Scripts["test"]
		if !ok || strings.TrimSpace(body) == "" {
			return nil
		}

		if strings.Contains(body, "bun test") {
			return []scan.Finding{{
				ID:       "scripts.test_runner",
				Title:    "Test script already uses bun test",
				Severity: scan.SeverityGreen,
				Details:  []string{fmt.Sprintf("test: %q", body)},
			}}
		}
		for _, runner := range foreignTestRunners {
			if strings.Contains(body, runner) {
				return []scan.Finding{{
					ID:       "scripts.test_runner",
					Title:    "Test script uses another runner",
					Severity: scan.SeverityYellow,
					Details:  []string{fmt.Sprintf("test: %q", body)},
					Hints:    []string{"bun test implements most of the jest API; try it before porting the suite"},
				}}
			}
		}
		return nil
	},
}
