package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNoManifest is returned by Load when the directory has no
// package.json at all, as opposed to one that fails to parse.
var ErrNoManifest = errors.New("no package.json found")

// Engines mirrors the package.json engines block.
type Engines struct {
	Node string `json:"node,omitempty"`
	Bun  string `json:"bun,omitempty"`
}

// WorkspacesField accepts both shapes of the workspaces key: a plain
// pattern array (npm) or an object with a packages array (yarn). Any
// other shape degrades to no patterns rather than failing the whole
// manifest parse.
type WorkspacesField struct {
	Patterns []string
}

func (w *WorkspacesField) UnmarshalJSON(raw []byte) error {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		w.Patterns = list
		return nil
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		w.Patterns = obj.Packages
	}
	return nil
}

// Manifest is the subset of package.json the detectors care about.
type Manifest struct {
	Name                 string            `json:"name,omitempty"`
	Version              string            `json:"version,omitempty"`
	PackageManager       string            `json:"packageManager,omitempty"`
	Engines              Engines           `json:"engines,omitempty"`
	Dependencies         map[string]string `json:"dependencies,omitempty"`
	DevDependencies      map[string]string `json:"devDependencies,omitempty"`
	PeerDependencies     map[string]string `json:"peerDependencies,omitempty"`
	OptionalDependencies map[string]string `json:"optionalDependencies,omitempty"`
	Scripts              map[string]string `json:"scripts,omitempty"`
	Workspaces           WorkspacesField   `json:"workspaces,omitempty"`
	TrustedDependencies  []string          `json:"trustedDependencies,omitempty"`
	Gypfile              bool              `json:"gypfile,omitempty"`
}

// Load reads and parses dir/package.json. A missing file returns
// ErrNoManifest so callers can distinguish "not a package" from a
// malformed manifest.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "package.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrNoManifest, dir)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &manifest, nil
}

// AllDependencies merges every dependency section into one map. When a
// package appears in several sections the runtime dependency wins.
func (m *Manifest) AllDependencies() map[string]string {
	merged := make(map[string]string)
	for _, section := range []map[string]string{
		m.DevDependencies,
		m.PeerDependencies,
		m.OptionalDependencies,
		m.Dependencies,
	} {
		for name, version := range section {
			merged[name] = version
		}
	}
	return merged
}

// HasDependency reports whether name appears in any dependency section.
func (m *Manifest) HasDependency(name string) bool {
	_, ok := m.AllDependencies()[name]
	return ok
}

// DisplayName returns the manifest name, falling back to the directory
// base name for anonymous packages.
func (m *Manifest) DisplayName(dir string) string {
	if m != nil && m.Name != "" {
		return m.Name
	}
	return filepath.Base(dir)
}
