package policy

import (
	"fmt"
	"strings"

	"github.com/bun-ready/bun-ready/pkg/scan"
)

// Wildcard matches any finding ID that has no exact rule of its own.
const Wildcard = "*"

// Action is what a rule does to a matched finding before any severity
// change is applied.
type Action string

const (
	ActionFail   Action = "fail"   // force red
	ActionWarn   Action = "warn"   // force yellow
	ActionOff    Action = "off"    // suppress the finding
	ActionIgnore Action = "ignore" // alias of off
)

// SeverityChange shifts a finding's severity one step along the
// green < yellow < red order, after the action has been applied.
type SeverityChange string

const (
	ChangeUpgrade   SeverityChange = "upgrade"
	ChangeDowngrade SeverityChange = "downgrade"
	ChangeSame      SeverityChange = "same"
)

// Rule is a single user-authored policy directive. ID is an exact
// finding ID or the wildcard "*". Action and SeverityChange are both
// optional; a rule with neither is a no-op that still counts as
// applied.
type Rule struct {
	ID             string         `json:"id"`
	Action         Action         `json:"action,omitempty"`
	SeverityChange SeverityChange `json:"severityChange,omitempty"`
	Reason         string         `json:"reason,omitempty"`
}

// Thresholds are numeric gates checked after aggregation. Nil means
// the gate is disabled; zero is a real limit.
type Thresholds struct {
	MaxWarnings       *int `json:"maxWarnings,omitempty"`
	MaxPackagesRed    *int `json:"maxPackagesRed,omitempty"`
	MaxPackagesYellow *int `json:"maxPackagesYellow,omitempty"`
}

// Config is the fully merged policy for one run.
type Config struct {
	Rules      []Rule        `json:"rules,omitempty"`
	Thresholds Thresholds    `json:"thresholds,omitempty"`
	FailOn     scan.Severity `json:"failOn,omitempty"`
}

// AppliedRule is one audit-trail entry. Suppressed findings are
// recorded too; for those After equals Before since the finding was
// removed rather than remapped.
type AppliedRule struct {
	RuleID     string         `json:"ruleId"`
	FindingID  string         `json:"findingId"`
	Package    string         `json:"package,omitempty"`
	Action     Action         `json:"action,omitempty"`
	Change     SeverityChange `json:"severityChange,omitempty"`
	Before     scan.Severity  `json:"before"`
	After      scan.Severity  `json:"after"`
	Suppressed bool           `json:"suppressed,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

// Summary is the audit trail of one policy application. It reports
// what happened; it never feeds back into severity computation except
// through the already-modified findings.
type Summary struct {
	RulesApplied       int           `json:"rulesApplied"`
	FindingsModified   int           `json:"findingsModified"`
	FindingsDisabled   int           `json:"findingsDisabled"`
	SeverityUpgraded   int           `json:"severityUpgraded"`
	SeverityDowngraded int           `json:"severityDowngraded"`
	Rules              []AppliedRule `json:"rules,omitempty"`
}

// Merge folds another summary into s, keeping audit entries in the
// order the packages were processed.
func (s *Summary) Merge(other Summary) {
	s.RulesApplied += other.RulesApplied
	s.FindingsModified += other.FindingsModified
	s.FindingsDisabled += other.FindingsDisabled
	s.SeverityUpgraded += other.SeverityUpgraded
	s.SeverityDowngraded += other.SeverityDowngraded
	s.Rules = append(s.Rules, other.Rules...)
}

// Apply runs the rule set over findings and returns the modified list
// plus the audit summary. Inputs are never mutated; every surviving
// finding is a copy. Output order matches input order minus suppressed
// entries, and summary.Rules lists applications in finding order, not
// rule-definition order.
//
// Rule matching: the first rule with an exactly equal ID wins; if none
// matches, the first wildcard rule applies; at most one rule applies
// per finding.
func Apply(findings []scan.Finding, cfg Config) ([]scan.Finding, Summary) {
	return apply(findings, cfg, "")
}

// ApplyForPackage is Apply with the owning package name recorded on
// each audit entry, so monorepo reports can attribute rule hits.
func ApplyForPackage(findings []scan.Finding, cfg Config, packageName string) ([]scan.Finding, Summary) {
	return apply(findings, cfg, packageName)
}

func apply(findings []scan.Finding, cfg Config, packageName string) ([]scan.Finding, Summary) {
	modified := make([]scan.Finding, 0, len(findings))
	summary := Summary{}

	for _, f := range findings {
		rule := match(cfg.Rules, f.ID)
		if rule == nil {
			modified = append(modified, f)
			continue
		}

		summary.RulesApplied++
		entry := AppliedRule{
			RuleID:    rule.ID,
			FindingID: f.ID,
			Package:   packageName,
			Action:    rule.Action,
			Change:    rule.SeverityChange,
			Before:    f.Severity,
			Reason:    rule.Reason,
		}

		if rule.Action == ActionOff || rule.Action == ActionIgnore {
			summary.FindingsDisabled++
			entry.After = f.Severity
			entry.Suppressed = true
			summary.Rules = append(summary.Rules, entry)
			continue
		}

		// Action first, then the one-step shift. A fail+downgrade rule
		// therefore lands on yellow, not red.
		severity := f.Severity
		switch rule.Action {
		case ActionFail:
			severity = scan.SeverityRed
		case ActionWarn:
			severity = scan.SeverityYellow
		}
		severity = shift(severity, rule.SeverityChange)

		switch {
		case severity.Rank() > f.Severity.Rank():
			summary.SeverityUpgraded++
			summary.FindingsModified++
		case severity.Rank() < f.Severity.Rank():
			summary.SeverityDowngraded++
			summary.FindingsModified++
		}

		out := f
		out.Severity = severity
		entry.After = severity
		summary.Rules = append(summary.Rules, entry)
		modified = append(modified, out)
	}

	return modified, summary
}

func match(rules []Rule, findingID string) *Rule {
	for i := range rules {
		if rules[i].ID == findingID {
			return &rules[i]
		}
	}
	for i := range rules {
		if rules[i].ID == Wildcard {
			return &rules[i]
		}
	}
	return nil
}

func shift(s scan.Severity, change SeverityChange) scan.Severity {
	switch change {
	case ChangeUpgrade:
		switch s {
		case scan.SeverityGreen:
			return scan.SeverityYellow
		default:
			return scan.SeverityRed
		}
	case ChangeDowngrade:
		switch s {
		case scan.SeverityRed:
			return scan.SeverityYellow
		default:
			return scan.SeverityGreen
		}
	}
	return s
}

// Validate checks a rule that arrived from a config file, where action
// and severityChange are both optional.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("rule has no id")
	}
	switch r.Action {
	case "", ActionFail, ActionWarn, ActionOff, ActionIgnore:
	default:
		return fmt.Errorf("rule %q: unknown action %q", r.ID, r.Action)
	}
	switch r.SeverityChange {
	case "", ChangeUpgrade, ChangeDowngrade, ChangeSame:
	default:
		return fmt.Errorf("rule %q: unknown severity change %q", r.ID, r.SeverityChange)
	}
	return nil
}

// ParseRule parses a --rule flag value of the form id=action or
// id=action:severityChange. Callers drop invalid rules instead of
// aborting the scan.
func ParseRule(raw string) (Rule, error) {
	name, value, found := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if !found || name == "" {
		return Rule{}, fmt.Errorf("invalid rule %q: expected id=action[:severityChange]", raw)
	}

	actionPart, changePart, hasChange := strings.Cut(value, ":")
	rule := Rule{ID: name, Action: Action(strings.TrimSpace(actionPart))}
	switch rule.Action {
	case ActionFail, ActionWarn, ActionOff, ActionIgnore:
	default:
		return Rule{}, fmt.Errorf("invalid rule %q: unknown action %q", raw, actionPart)
	}

	if hasChange {
		rule.SeverityChange = SeverityChange(strings.TrimSpace(changePart))
		switch rule.SeverityChange {
		case ChangeUpgrade, ChangeDowngrade, ChangeSame:
		default:
			return Rule{}, fmt.Errorf("invalid rule %q: unknown severity change %q", raw, changePart)
		}
	}

	return rule, nil
}
