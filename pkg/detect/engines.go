package detect

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/bun-ready/bun-ready/pkg/scan"
)

// Node versions Bun tracks API compatibility against. engines.node is
// compatible when it admits at least one of these.
var nodeProbeVersions = []*semver.Version{
	semver.MustParse("22.0.0"),
	semver.MustParse("20.0.0"),
	semver.MustParse("18.0.0"),
}

var enginesNodeDetector = Detector{
	ID:       "engines.node_range",
	Title:    "Restrictive engines.node range",
	Severity: scan.SeverityYellow,
	Summary:  "engines.node pins versions whose APIs Bun does not target",
	Run: func(ctx *Context) []scan.Finding {
		if ctx.Manifest == nil || ctx.Manifest.Engines.Node == "" {
			return nil
		}
		raw := ctx.Manifest.Engines.Node

		constraint, err := semver.NewConstraint(raw)
		if err != nil {
			return []scan.Finding{{
				ID:       "engines.node_range",
				Title:    "Restrictive engines.node range",
				Severity: scan.SeverityYellow,
				Details:  []string{fmt.Sprintf("engines.node %q is not a valid semver range", raw)},
				Hints:    []string{"fix the range so tooling can reason about it"},
			}}
		}

		for _, version := range nodeProbeVersions {
			if constraint.Check(version) {
				return nil
			}
		}
		return []scan.Finding{{
			ID:       "engines.node_range",
			Title:    "Restrictive engines.node range",
			Severity: scan.SeverityYellow,
			Details:  []string{fmt.Sprintf("engines.node %q excludes Node 18, 20 and 22", raw)},
			Hints:    []string{"Bun implements modern Node APIs; code held to older Node may rely on removed behavior"},
		}}
	},
}

var enginesBunDetector = Detector{
	ID:       "engines.bun_declared",
	Title:    "Bun support already declared",
	Severity: scan.SeverityGreen,
	Summary:  "engines.bun is present, the package already targets Bun",
	Run: func(ctx *Context) []scan.Finding {
		if ctx.Manifest == nil || ctx.Manifest.Engines.Bun == "" {
			return nil
		}
		return []scan.Finding{{
			ID:       "engines.bun_declared",
			Title:    "Bun support already declared",
			Severity: scan.SeverityGreen,
			Details:  []string{fmt.Sprintf("engines.bun is %q", ctx.Manifest.Engines.Bun)},
		}}
	},
}
