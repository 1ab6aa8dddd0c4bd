package project

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bun-ready/bun-ready/pkg/logger"
)

// Workspace is one monorepo member package.
type Workspace struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

var skippedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	"build":        true,
	"coverage":     true,
}

// DiscoverWorkspaces expands the workspace patterns from package.json
// plus pnpm-workspace.yaml into concrete member packages. Wildcard
// matches must contain a package.json to count; explicitly listed
// directories are kept either way so a missing manifest can surface in
// the scan instead of vanishing. The result is deduplicated by path and
// sorted by name so the scan order is stable run to run.
func DiscoverWorkspaces(root string, manifest *Manifest) []Workspace {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	patterns := []string{}
	if manifest != nil {
		patterns = append(patterns, manifest.Workspaces.Patterns...)
	}
	patterns = append(patterns, pnpmPatterns(root)...)

	seen := map[string]bool{}
	workspaces := []Workspace{}
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" || strings.HasPrefix(pattern, "!") {
			continue
		}
		for _, dir := range expandPattern(root, pattern) {
			abs, err := filepath.Abs(dir)
			if err != nil {
				continue
			}
			if abs == root || seen[abs] {
				continue
			}
			seen[abs] = true
			workspaces = append(workspaces, Workspace{Name: workspaceName(abs), Path: abs})
		}
	}

	sort.Slice(workspaces, func(i, j int) bool {
		if workspaces[i].Name != workspaces[j].Name {
			return workspaces[i].Name < workspaces[j].Name
		}
		return workspaces[i].Path < workspaces[j].Path
	})
	return workspaces
}

func expandPattern(root, pattern string) []string {
	if strings.Contains(pattern, "**") {
		return walkForPackages(filepath.Join(root, staticPrefix(pattern)))
	}
	if !strings.ContainsAny(pattern, "*?[") {
		dir := filepath.Join(root, pattern)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return []string{dir}
		}
		return nil
	}

	matches, err := filepath.Glob(filepath.Join(root, pattern))
	if err != nil {
		logger.Debugf("Skipping workspace pattern %q: %v", pattern, err)
		return nil
	}
	dirs := []string{}
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || !info.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(match, "package.json")); err != nil {
			continue
		}
		dirs = append(dirs, match)
	}
	return dirs
}

// staticPrefix returns the pattern segments before the first wildcard.
func staticPrefix(pattern string) string {
	parts := strings.Split(filepath.ToSlash(pattern), "/")
	prefix := []string{}
	for _, part := range parts {
		if strings.ContainsAny(part, "*?[") {
			break
		}
		prefix = append(prefix, part)
	}
	return filepath.Join(prefix...)
}

func walkForPackages(base string) []string {
	dirs := []string{}
	_ = filepath.WalkDir(base, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if skippedDirs[entry.Name()] {
			return filepath.SkipDir
		}
		if path == base {
			return nil
		}
		if _, err := os.Stat(filepath.Join(path, "package.json")); err == nil {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs
}

func workspaceName(dir string) string {
	manifest, err := Load(dir)
	if err != nil {
		return filepath.Base(dir)
	}
	return manifest.DisplayName(dir)
}

type pnpmWorkspaceFile struct {
	Packages []string `yaml:"packages"`
}

// pnpmPatterns reads pnpm-workspace.yaml when present. A malformed file
// contributes no patterns; it never aborts discovery.
func pnpmPatterns(root string) []string {
	raw, err := os.ReadFile(filepath.Join(root, "pnpm-workspace.yaml"))
	if err != nil {
		return nil
	}
	var parsed pnpmWorkspaceFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		logger.Debugf("Ignoring malformed pnpm-workspace.yaml: %v", err)
		return nil
	}
	return parsed.Packages
}
