package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/bun-ready/bun-ready/pkg/analyzer"
	"github.com/bun-ready/bun-ready/pkg/detect"
	"github.com/bun-ready/bun-ready/pkg/scan"
)

// SARIF format specification: https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-v2.1.0.html

// SarifReport is the top-level SARIF document.
type SarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SarifRun `json:"runs"`
}

// SarifRun is a single run of the tool.
type SarifRun struct {
	Tool        SarifTool         `json:"tool"`
	Results     []SarifResult     `json:"results"`
	Invocations []SarifInvocation `json:"invocations"`
}

// SarifTool wraps the driver description.
type SarifTool struct {
	Driver SarifDriver `json:"driver"`
}

// SarifDriver identifies the tool and the rules it can report.
type SarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []SarifRule `json:"rules"`
}

// SarifRule is the static description of one finding ID.
type SarifRule struct {
	ID               string       `json:"id"`
	ShortDescription SarifMessage `json:"shortDescription"`
	FullDescription  SarifMessage `json:"fullDescription"`
}

// SarifResult is one reported finding occurrence.
type SarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   SarifMessage    `json:"message"`
	Locations []SarifLocation `json:"locations"`
}

// SarifMessage is a plain-text message.
type SarifMessage struct {
	Text string `json:"text"`
}

// SarifLocation points at the artifact a result belongs to.
type SarifLocation struct {
	PhysicalLocation SarifPhysicalLocation `json:"physicalLocation"`
}

// SarifPhysicalLocation is the artifact reference inside a location.
type SarifPhysicalLocation struct {
	ArtifactLocation SarifArtifactLocation `json:"artifactLocation"`
}

// SarifArtifactLocation holds the artifact URI.
type SarifArtifactLocation struct {
	URI string `json:"uri"`
}

// SarifInvocation records run metadata.
type SarifInvocation struct {
	ExecutionSuccessful bool   `json:"executionSuccessful"`
	EndTimeUtc          string `json:"endTimeUtc"`
}

func sarifLevel(s scan.Severity) string {
	switch s {
	case scan.SeverityRed:
		return "error"
	case scan.SeverityYellow:
		return "warning"
	default:
		return "note"
	}
}

// RenderSARIF writes the findings in SARIF 2.1.0 for code-scanning
// integrations.
func RenderSARIF(w io.Writer, result analyzer.Result) error {
	rules := []SarifRule{}
	for _, info := range detect.Catalog() {
		rules = append(rules, SarifRule{
			ID:               info.ID,
			ShortDescription: SarifMessage{Text: info.Title},
			FullDescription:  SarifMessage{Text: info.Summary},
		})
	}

	results := []SarifResult{}
	appendFindings := func(pkg scan.PackageAnalysis) {
		for _, f := range pkg.Findings {
			message := f.Title
			if len(f.Details) > 0 {
				message = fmt.Sprintf("%s: %s", f.Title, strings.Join(f.Details, "; "))
			}
			results = append(results, SarifResult{
				RuleID:  f.ID,
				Level:   sarifLevel(f.Severity),
				Message: SarifMessage{Text: message},
				Locations: []SarifLocation{{
					PhysicalLocation: SarifPhysicalLocation{
						ArtifactLocation: SarifArtifactLocation{URI: pkg.Path + "/package.json"},
					},
				}},
			})
		}
	}
	appendFindings(result.Root)
	for _, pkg := range result.Packages {
		appendFindings(pkg)
	}

	report := SarifReport{
		Schema:  "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json",
		Version: "2.1.0",
		Runs: []SarifRun{{
			Tool: SarifTool{
				Driver: SarifDriver{
					Name:           "bun-ready",
					Version:        result.ScanVersion,
					InformationURI: "https://github.com/bun-ready/bun-ready",
					Rules:          rules,
				},
			},
			Results: results,
			Invocations: []SarifInvocation{{
				ExecutionSuccessful: true,
				EndTimeUtc:          result.GeneratedAt,
			}},
		}},
	}

	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sarif report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}
