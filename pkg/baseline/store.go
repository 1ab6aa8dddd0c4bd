package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bun-ready/bun-ready/pkg/scan"
)

// Load failure modes. Callers that can bootstrap (e.g. --update-baseline)
// treat both as "start fresh"; callers that need an existing baseline
// treat ErrNotFound as fatal and ErrInvalid as a warning.
var (
	ErrNotFound = errors.New("baseline file not found")
	ErrInvalid  = errors.New("baseline file invalid")
)

// Data is the persisted baseline snapshot. Save always writes the whole
// snapshot; baselines are replaced, never merged.
type Data struct {
	Version     string        `json:"version"`
	ScanVersion string        `json:"scanVersion,omitempty"`
	Timestamp   string        `json:"timestamp"`
	RepoPath    string        `json:"repoPath"`
	Findings    []Fingerprint `json:"findings"`
	Metrics     scan.Metrics  `json:"metrics"`
}

// NewData assembles a snapshot of the current scan, stamped with the
// current time.
func NewData(repoPath, scanVersion string, fingerprints []Fingerprint, metrics scan.Metrics) Data {
	if fingerprints == nil {
		fingerprints = []Fingerprint{}
	}
	return Data{
		Version:     Version,
		ScanVersion: scanVersion,
		Timestamp:   Timestamp(),
		RepoPath:    repoPath,
		Findings:    fingerprints,
		Metrics:     metrics,
	}
}

// Save writes the snapshot to path, overwriting any previous baseline.
func Save(data Data, path string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode baseline: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create baseline directory: %w", err)
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write baseline: %w", err)
	}
	return nil
}

// Load reads and validates a baseline file. A missing file returns
// ErrNotFound; an unreadable, unparseable or structurally incomplete
// file returns ErrInvalid. The two are distinct so the CLI can hard-fail
// on a missing --baseline while shrugging off a corrupt one.
func Load(path string) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Data{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Data{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return Data{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if data.Version == "" || data.Timestamp == "" || data.Findings == nil {
		return Data{}, fmt.Errorf("%w: missing version, timestamp or findings", ErrInvalid)
	}
	return data, nil
}
