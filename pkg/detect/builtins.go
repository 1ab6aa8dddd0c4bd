package detect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bun-ready/bun-ready/pkg/imports"
	"github.com/bun-ready/bun-ready/pkg/scan"
)

// Bun support tiers for Node builtin modules. Builtins absent from both
// maps are treated as fully supported.
var missingBuiltins = map[string]bool{
	"inspector":    true,
	"trace_events": true,
}

var partialBuiltins = map[string]bool{
	"async_hooks":    true,
	"cluster":        true,
	"domain":         true,
	"http2":          true,
	"perf_hooks":     true,
	"repl":           true,
	"v8":             true,
	"vm":             true,
	"wasi":           true,
	"worker_threads": true,
}

var nodeBuiltins = map[string]bool{
	"assert": true, "async_hooks": true, "buffer": true, "child_process": true,
	"cluster": true, "console": true, "constants": true, "crypto": true,
	"dgram": true, "diagnostics_channel": true, "dns": true, "domain": true,
	"events": true, "fs": true, "http": true, "http2": true, "https": true,
	"inspector": true, "module": true, "net": true, "os": true, "path": true,
	"perf_hooks": true, "process": true, "punycode": true, "querystring": true,
	"readline": true, "repl": true, "stream": true, "string_decoder": true,
	"sys": true, "timers": true, "tls": true, "trace_events": true, "tty": true,
	"url": true, "util": true, "v8": true, "vm": true, "wasi": true,
	"worker_threads": true, "zlib": true,
}

// builtinName maps a module specifier to the Node builtin it refers to,
// or "" when it is not a builtin. Handles the node: prefix and subpaths
// like fs/promises.
func builtinName(module string) string {
	name := strings.TrimPrefix(module, "node:")
	if root, _, found := strings.Cut(name, "/"); found {
		name = root
	}
	if nodeBuiltins[name] {
		return name
	}
	return ""
}

var nodeBuiltinsDetector = Detector{
	ID:       "imports.node_builtins",
	Title:    "Node builtins with limited Bun support",
	Severity: scan.SeverityRed,
	Summary:  "Source imports Node builtin modules Bun implements partially or not at all",
	Run: func(ctx *Context) []scan.Finding {
		firstUse := map[string]imports.Record{}
		counts := map[string]int{}
		for _, record := range ctx.Imports {
			name := builtinName(record.Module)
			if name == "" {
				continue
			}
			if missingBuiltins[name] || partialBuiltins[name] {
				if _, seen := firstUse[name]; !seen {
					firstUse[name] = record
				}
				counts[name]++
			}
		}
		if len(firstUse) == 0 {
			return nil
		}

		names := make([]string, 0, len(firstUse))
		for name := range firstUse {
			names = append(names, name)
		}
		sort.Strings(names)

		severity := scan.SeverityYellow
		details := make([]string, 0, len(names))
		for _, name := range names {
			tier := "partial"
			if missingBuiltins[name] {
				tier = "missing"
				severity = scan.SeverityRed
			}
			record := firstUse[name]
			details = append(details, fmt.Sprintf("%s: %s in Bun, %d reference(s), first at %s:%d",
				name, tier, counts[name], record.File, record.Line))
		}

		return []scan.Finding{{
			ID:       "imports.node_builtins",
			Title:    "Node builtins with limited Bun support",
			Severity: severity,
			Details:  details,
			Hints:    []string{"check the Bun Node.js compatibility table for each module"},
		}}
	},
}
