package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bun-ready/bun-ready/pkg/logger"
	"github.com/bun-ready/bun-ready/pkg/policy"
	"github.com/bun-ready/bun-ready/pkg/scan"
)

// DefaultFileName is looked up in the scanned repository root when no
// --config flag is given.
const DefaultFileName = "bun-ready.config.json"

// File is the optional project-level configuration. Every field is
// optional; a missing or unusable file behaves exactly like an empty
// one.
type File struct {
	Rules      []policy.Rule     `json:"rules,omitempty"`
	Thresholds policy.Thresholds `json:"thresholds,omitempty"`
	FailOn     scan.Severity     `json:"failOn,omitempty"`
	Format     string            `json:"format,omitempty"`
	Baseline   string            `json:"baseline,omitempty"`
	Install    *bool             `json:"install,omitempty"`
	Test       *bool             `json:"test,omitempty"`
	Workspaces *bool             `json:"workspaces,omitempty"`
	Exclude    []string          `json:"exclude,omitempty"`
}

// Load reads the default config file from root. Absent means empty;
// malformed means a warning plus empty, never a failed scan.
func Load(root string) File {
	return load(filepath.Join(root, DefaultFileName), false)
}

// LoadPath reads an explicitly chosen config file. Since the user asked
// for this exact file, a missing one is worth a warning too.
func LoadPath(path string) File {
	return load(path, true)
}

func load(path string, explicit bool) File {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if explicit {
				logger.Warnf("Config file %s not found, using defaults", path)
			}
			return File{}
		}
		logger.Warnf("Cannot read config file %s: %v", path, err)
		return File{}
	}

	var file File
	if err := json.Unmarshal(raw, &file); err != nil {
		logger.Warnf("Ignoring malformed config file %s: %v", path, err)
		return File{}
	}

	file.Rules = validRules(file.Rules, path)
	if file.FailOn != "" && !file.FailOn.Valid() {
		logger.Warnf("Ignoring invalid failOn %q in %s", file.FailOn, path)
		file.FailOn = ""
	}
	return file
}

// validRules drops unusable rules so a single typo does not abort the
// scan. Partial policy application beats no scan at all.
func validRules(rules []policy.Rule, source string) []policy.Rule {
	kept := make([]policy.Rule, 0, len(rules))
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			logger.Debugf("Dropping invalid rule from %s: %v", source, err)
			continue
		}
		kept = append(kept, rule)
	}
	return kept
}

// Flags carries the policy-relevant CLI values into the merge. The
// Given booleans record whether the user touched the flag at all, since
// CLI values replace config values wholesale rather than per field.
type Flags struct {
	Rules             []policy.Rule
	RulesGiven        bool
	MaxWarnings       *int
	MaxPackagesRed    *int
	MaxPackagesYellow *int
	FailOn            scan.Severity
}

func (f Flags) thresholdsGiven() bool {
	return f.MaxWarnings != nil || f.MaxPackagesRed != nil || f.MaxPackagesYellow != nil
}

// MergePolicy resolves the effective policy: CLI rules replace config
// rules as a whole, CLI thresholds replace config thresholds as a
// whole, and a CLI failOn overrides the config one.
func MergePolicy(file File, flags Flags) policy.Config {
	merged := policy.Config{
		Rules:      file.Rules,
		Thresholds: file.Thresholds,
		FailOn:     file.FailOn,
	}
	if flags.RulesGiven {
		merged.Rules = flags.Rules
	}
	if flags.thresholdsGiven() {
		merged.Thresholds = policy.Thresholds{
			MaxWarnings:       flags.MaxWarnings,
			MaxPackagesRed:    flags.MaxPackagesRed,
			MaxPackagesYellow: flags.MaxPackagesYellow,
		}
	}
	if flags.FailOn != "" {
		merged.FailOn = flags.FailOn
	}
	return merged
}
