package detect

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/bun-ready/bun-ready/pkg/scan"
)

var bunLockfiles = []string{"bun.lock", "bun.lockb"}

var foreignLockfiles = []string{"package-lock.json", "yarn.lock", "pnpm-lock.yaml", "npm-shrinkwrap.json"}

var lockfilesDetector = Detector{
	ID:       "pm.lockfiles",
	Title:    "Lockfile migration needed",
	Severity: scan.SeverityYellow,
	Summary:  "Lockfiles from another package manager without a Bun lockfile",
	Run: func(ctx *Context) []scan.Finding {
		hasBunLock := false
		for _, name := range bunLockfiles {
			if fileExists(filepath.Join(ctx.Dir, name)) {
				hasBunLock = true
				break
			}
		}

		foreign := []string{}
		for _, name := range foreignLockfiles {
			if fileExists(filepath.Join(ctx.Dir, name)) {
				foreign = append(foreign, name)
			}
		}

		if hasBunLock {
			return []scan.Finding{{
				ID:       "pm.lockfiles",
				Title:    "Bun lockfile present",
				Severity: scan.SeverityGreen,
				Details:  []string{"a Bun lockfile already exists"},
			}}
		}
		if len(foreign) == 0 {
			return nil
		}
		return []scan.Finding{{
			ID:       "pm.lockfiles",
			Title:    "Lockfile migration needed",
			Severity: scan.SeverityYellow,
			Details:  foreign,
			Hints:    []string{"bun install migrates package-lock.json and yarn.lock automatically"},
		}}
	},
}

var packageManagerDetector = Detector{
	ID:       "pm.package_manager",
	Title:    "packageManager pins another tool",
	Severity: scan.SeverityYellow,
	Summary:  "The corepack packageManager field pins npm, yarn or pnpm",
	Run: func(ctx *Context) []scan.Finding {
		if ctx.Manifest == nil || ctx.Manifest.PackageManager == "" {
			return nil
		}
		raw := ctx.Manifest.PackageManager
		tool, version, pinned := strings.Cut(raw, "@")

		if tool == "bun" {
			return []scan.Finding{{
				ID:       "pm.package_manager",
				Title:    "packageManager already pins Bun",
				Severity: scan.SeverityGreen,
				Details:  []string{fmt.Sprintf("packageManager is %q", raw)},
			}}
		}

		details := []string{fmt.Sprintf("packageManager is %q", raw)}
		if !pinned {
			details = append(details, "no version is pinned, corepack would reject this field")
		} else if _, err := semver.NewVersion(version); err != nil {
			details = append(details, fmt.Sprintf("the pinned version %q is not valid semver", version))
		}
		return []scan.Finding{{
			ID:       "pm.package_manager",
			Title:    "packageManager pins another tool",
			Severity: scan.SeverityYellow,
			Details:  details,
			Hints:    []string{"update the field or remove it so corepack and bun do not disagree"},
		}}
	},
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
