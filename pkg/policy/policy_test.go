package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bun-ready/bun-ready/pkg/scan"
)

func findingIDs(findings []scan.Finding) []string {
	ids := make([]string, 0, len(findings))
	for _, f := range findings {
		ids = append(ids, f.ID)
	}
	return ids
}

func TestApplyNoRulesPassesThrough(t *testing.T) {
	findings := []scan.Finding{
		{ID: "deps.native_addons", Severity: scan.SeverityRed},
		{ID: "pm.lockfiles", Severity: scan.SeverityYellow},
	}

	modified, summary := Apply(findings, Config{})
	assert.Equal(t, findings, modified)
	assert.Equal(t, 0, summary.RulesApplied)
	assert.Empty(t, summary.Rules)
}

func TestApplySuppressionIsTotal(t *testing.T) {
	findings := []scan.Finding{
		{ID: "deps.native_addons", Severity: scan.SeverityRed},
		{ID: "scripts.lifecycle", Severity: scan.SeverityYellow},
		{ID: "pm.lockfiles", Severity: scan.SeverityGreen},
	}
	cfg := Config{Rules: []Rule{
		{ID: "deps.native_addons", Action: ActionOff},
		{ID: "scripts.lifecycle", Action: ActionIgnore},
	}}

	modified, summary := Apply(findings, cfg)
	assert.Equal(t, []string{"pm.lockfiles"}, findingIDs(modified))
	assert.Equal(t, 2, summary.FindingsDisabled)
	assert.Equal(t, 2, summary.RulesApplied)

	// Suppressed findings still show up in the audit trail.
	require.Len(t, summary.Rules, 2)
	assert.True(t, summary.Rules[0].Suppressed)
	assert.Equal(t, "deps.native_addons", summary.Rules[0].FindingID)
	assert.True(t, summary.Rules[1].Suppressed)
}

func TestApplyActionsForceSeverity(t *testing.T) {
	findings := []scan.Finding{
		{ID: "a", Severity: scan.SeverityGreen},
		{ID: "b", Severity: scan.SeverityRed},
	}
	cfg := Config{Rules: []Rule{
		{ID: "a", Action: ActionFail},
		{ID: "b", Action: ActionWarn},
	}}

	modified, summary := Apply(findings, cfg)
	require.Len(t, modified, 2)
	assert.Equal(t, scan.SeverityRed, modified[0].Severity)
	assert.Equal(t, scan.SeverityYellow, modified[1].Severity)
	assert.Equal(t, 1, summary.SeverityUpgraded)
	assert.Equal(t, 1, summary.SeverityDowngraded)
	assert.Equal(t, 2, summary.FindingsModified)
}

func TestApplyActionThenSeverityChange(t *testing.T) {
	// fail forces red first, then downgrade steps back to yellow. The
	// net effect of fail+downgrade is a warn.
	findings := []scan.Finding{{ID: "x", Severity: scan.SeverityGreen}}
	cfg := Config{Rules: []Rule{
		{ID: "x", Action: ActionFail, SeverityChange: ChangeDowngrade},
	}}

	modified, summary := Apply(findings, cfg)
	require.Len(t, modified, 1)
	assert.Equal(t, scan.SeverityYellow, modified[0].Severity)
	assert.Equal(t, 1, summary.SeverityUpgraded)
	assert.Equal(t, 0, summary.SeverityDowngraded)
}

func TestApplySeverityChangeOnly(t *testing.T) {
	findings := []scan.Finding{
		{ID: "up", Severity: scan.SeverityYellow},
		{ID: "down", Severity: scan.SeverityYellow},
		{ID: "same", Severity: scan.SeverityRed},
	}
	cfg := Config{Rules: []Rule{
		{ID: "up", SeverityChange: ChangeUpgrade},
		{ID: "down", SeverityChange: ChangeDowngrade},
		{ID: "same", SeverityChange: ChangeSame},
	}}

	modified, summary := Apply(findings, cfg)
	require.Len(t, modified, 3)
	assert.Equal(t, scan.SeverityRed, modified[0].Severity)
	assert.Equal(t, scan.SeverityGreen, modified[1].Severity)
	assert.Equal(t, scan.SeverityRed, modified[2].Severity)
	assert.Equal(t, 3, summary.RulesApplied)
	assert.Equal(t, 2, summary.FindingsModified)
}

func TestApplySeverityChangeSaturates(t *testing.T) {
	findings := []scan.Finding{
		{ID: "top", Severity: scan.SeverityRed},
		{ID: "bottom", Severity: scan.SeverityGreen},
	}
	cfg := Config{Rules: []Rule{
		{ID: "top", SeverityChange: ChangeUpgrade},
		{ID: "bottom", SeverityChange: ChangeDowngrade},
	}}

	modified, summary := Apply(findings, cfg)
	assert.Equal(t, scan.SeverityRed, modified[0].Severity)
	assert.Equal(t, scan.SeverityGreen, modified[1].Severity)
	assert.Equal(t, 0, summary.FindingsModified)
}

func TestApplyExactRuleBeatsWildcard(t *testing.T) {
	findings := []scan.Finding{
		{ID: "deps.native_addons", Severity: scan.SeverityRed},
		{ID: "pm.lockfiles", Severity: scan.SeverityYellow},
	}
	cfg := Config{Rules: []Rule{
		{ID: Wildcard, Action: ActionOff},
		{ID: "deps.native_addons", Action: ActionWarn},
	}}

	modified, summary := Apply(findings, cfg)
	require.Len(t, modified, 1)
	assert.Equal(t, "deps.native_addons", modified[0].ID)
	assert.Equal(t, scan.SeverityYellow, modified[0].Severity)
	assert.Equal(t, 1, summary.FindingsDisabled)
}

func TestApplyFirstWildcardWins(t *testing.T) {
	findings := []scan.Finding{{ID: "anything", Severity: scan.SeverityGreen}}
	cfg := Config{Rules: []Rule{
		{ID: Wildcard, Action: ActionWarn},
		{ID: Wildcard, Action: ActionFail},
	}}

	modified, _ := Apply(findings, cfg)
	require.Len(t, modified, 1)
	assert.Equal(t, scan.SeverityYellow, modified[0].Severity)
}

func TestApplyRuleOrderIrrelevantWithoutOverlap(t *testing.T) {
	findings := []scan.Finding{
		{ID: "a", Severity: scan.SeverityGreen},
		{ID: "b", Severity: scan.SeverityGreen},
		{ID: "c", Severity: scan.SeverityGreen},
	}
	forward := Config{Rules: []Rule{
		{ID: "a", Action: ActionFail},
		{ID: "b", Action: ActionWarn},
	}}
	reversed := Config{Rules: []Rule{
		{ID: "b", Action: ActionWarn},
		{ID: "a", Action: ActionFail},
	}}

	gotForward, _ := Apply(findings, forward)
	gotReversed, _ := Apply(findings, reversed)
	assert.Equal(t, gotForward, gotReversed)
}

func TestApplyPreservesInputOrderAndInputs(t *testing.T) {
	findings := []scan.Finding{
		{ID: "one", Severity: scan.SeverityGreen},
		{ID: "two", Severity: scan.SeverityGreen},
		{ID: "three", Severity: scan.SeverityGreen},
	}
	cfg := Config{Rules: []Rule{
		{ID: "three", Action: ActionFail},
		{ID: "two", Action: ActionOff},
	}}

	modified, summary := Apply(findings, cfg)
	assert.Equal(t, []string{"one", "three"}, findingIDs(modified))

	// Audit entries follow finding order, not rule-definition order.
	require.Len(t, summary.Rules, 2)
	assert.Equal(t, "two", summary.Rules[0].FindingID)
	assert.Equal(t, "three", summary.Rules[1].FindingID)

	// The input slice is never mutated.
	assert.Equal(t, scan.SeverityGreen, findings[2].Severity)
}

func TestApplyRecordsPackageName(t *testing.T) {
	findings := []scan.Finding{{ID: "x", Severity: scan.SeverityGreen}}
	cfg := Config{Rules: []Rule{{ID: "x", Action: ActionWarn, Reason: "tracked in #42"}}}

	_, summary := ApplyForPackage(findings, cfg, "packages/api")
	require.Len(t, summary.Rules, 1)
	assert.Equal(t, "packages/api", summary.Rules[0].Package)
	assert.Equal(t, "tracked in #42", summary.Rules[0].Reason)
}

func TestParseRule(t *testing.T) {
	rule, err := ParseRule("deps.native_addons=warn")
	require.NoError(t, err)
	assert.Equal(t, Rule{ID: "deps.native_addons", Action: ActionWarn}, rule)

	rule, err = ParseRule("scripts.lifecycle=fail:downgrade")
	require.NoError(t, err)
	assert.Equal(t, ActionFail, rule.Action)
	assert.Equal(t, ChangeDowngrade, rule.SeverityChange)

	rule, err = ParseRule("*=off")
	require.NoError(t, err)
	assert.Equal(t, Wildcard, rule.ID)

	for _, raw := range []string{"", "noequals", "=fail", "id=explode", "id=warn:sideways"} {
		_, err := ParseRule(raw)
		assert.Error(t, err, "rule %q should not parse", raw)
	}
}
