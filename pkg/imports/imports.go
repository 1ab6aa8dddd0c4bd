package imports

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bun-ready/bun-ready/pkg/logger"
)

// Kind classifies how a module reference appears in source.
type Kind string

const (
	KindImport     Kind = "import"
	KindRequire    Kind = "require"
	KindDynamic    Kind = "dynamic-import"
	KindExportFrom Kind = "export-from"
)

// Record is one module reference found in a source file. File is
// relative to the scanned directory.
type Record struct {
	Module string `json:"module"`
	File   string `json:"file"`
	Line   int    `json:"line"`
	Kind   Kind   `json:"kind"`
}

// Scanning caps. Files beyond either limit are skipped; this is a
// heuristic scan, not a bundler.
const (
	maxFileSize = 1 << 20
	maxFiles    = 4000
)

var sourceExtensions = map[string]bool{
	".js":  true,
	".jsx": true,
	".ts":  true,
	".tsx": true,
	".mjs": true,
	".cjs": true,
	".mts": true,
	".cts": true,
}

var skippedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"build":        true,
	"coverage":     true,
}

var (
	importPattern     = regexp.MustCompile(`(?m)^\s*import\s+(?:type\s+)?(?:[\w${},*\s]+from\s+)?["']([^"']+)["']`)
	exportFromPattern = regexp.MustCompile(`(?m)^\s*export\s+(?:type\s+)?[\w${},*\s]*from\s+["']([^"']+)["']`)
	requirePattern    = regexp.MustCompile(`require\s*\(\s*["']([^"']+)["']\s*\)`)
	dynamicPattern    = regexp.MustCompile(`\bimport\s*\(\s*["']([^"']+)["']\s*\)`)
)

// ScanDir walks dir for JavaScript/TypeScript sources and extracts
// every module reference it can see. Directories listed in exclude are
// skipped, so a monorepo root scan does not re-read its workspace
// packages. Unreadable files are skipped, not fatal. Output order
// follows the lexical directory walk, so results are stable across
// runs.
func ScanDir(dir string, exclude ...string) []Record {
	records := []Record{}
	files, skipped := 0, 0

	excluded := map[string]bool{}
	for _, path := range exclude {
		excluded[path] = true
	}

	_ = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			if skippedDirs[entry.Name()] || excluded[path] {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExtensions[filepath.Ext(entry.Name())] {
			return nil
		}
		if files >= maxFiles {
			return filepath.SkipAll
		}
		files++

		info, err := entry.Info()
		if err != nil || info.Size() > maxFileSize {
			skipped++
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			skipped++
			logger.Debugf("Skipping unreadable source file %s: %v", path, err)
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		records = append(records, scanSource(string(raw), rel)...)
		return nil
	})

	if skipped > 0 {
		logger.Debugf("Skipped %d oversized or unreadable source files under %s", skipped, dir)
	}
	return records
}

func scanSource(source, file string) []Record {
	records := []Record{}
	collect := func(pattern *regexp.Regexp, kind Kind) {
		for _, match := range pattern.FindAllStringSubmatchIndex(source, -1) {
			module := source[match[2]:match[3]]
			records = append(records, Record{
				Module: module,
				File:   file,
				Line:   1 + strings.Count(source[:match[0]], "\n"),
				Kind:   kind,
			})
		}
	}
	collect(importPattern, KindImport)
	collect(exportFromPattern, KindExportFrom)
	collect(requirePattern, KindRequire)
	collect(dynamicPattern, KindDynamic)
	return records
}

// Modules returns the distinct referenced module specifiers in first-seen
// order.
func Modules(records []Record) []string {
	seen := map[string]bool{}
	modules := []string{}
	for _, r := range records {
		if !seen[r.Module] {
			seen[r.Module] = true
			modules = append(modules, r.Module)
		}
	}
	return modules
}
