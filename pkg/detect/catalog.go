package detect

import "github.com/bun-ready/bun-ready/pkg/scan"

// RuleInfo describes one finding ID users can target with policy rules.
type RuleInfo struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Severity scan.Severity `json:"severity"`
	Summary  string        `json:"summary"`
}

// Catalog lists every finding ID the scanner can emit, including the
// synthetic ones that do not come from the battery.
func Catalog() []RuleInfo {
	catalog := []RuleInfo{}
	for _, detector := range All() {
		catalog = append(catalog, RuleInfo{
			ID:       detector.ID,
			Title:    detector.Title,
			Severity: detector.Severity,
			Summary:  detector.Summary,
		})
	}
	catalog = append(catalog,
		RuleInfo{
			ID:       "repo.no_package_json",
			Title:    "No package.json found",
			Severity: scan.SeverityRed,
			Summary:  "A scanned package directory has no package.json",
		},
		RuleInfo{
			ID:       "install.log_errors",
			Title:    "Install failed under Bun",
			Severity: scan.SeverityRed,
			Summary:  "bun install --dry-run exited non-zero",
		},
		RuleInfo{
			ID:       "test.log_errors",
			Title:    "Tests failed under Bun",
			Severity: scan.SeverityRed,
			Summary:  "bun run test exited non-zero",
		},
	)
	return catalog
}
