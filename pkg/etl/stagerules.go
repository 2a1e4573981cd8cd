package etl

import "strings"

// Deal age status values.
const (
	StatusGreen   = "Green"
	StatusYellow  = "Yellow"
	StatusRed     = "Red"
	StatusUnknown = "Unknown"
)

// StageRule maps stage-label keywords to aging thresholds. A deal is Green
// while its stage tenure is at or under GreenDays, Yellow at or under
// YellowDays, and Red beyond that. GreenDays below zero means the stage has
// no healthy tenure at all.
type StageRule struct {
	Keywords   []string
	GreenDays  int
	YellowDays int
}

// Matches reports whether any keyword appears in the lowercased stage label.
func (r StageRule) Matches(stageLower string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(stageLower, kw) {
			return true
		}
	}
	return false
}

// StageRules classifies deal stage tenure into a traffic-light status.
// Rules are checked in order; the first match wins, and unmatched stages
// fall back to the default thresholds.
type StageRules struct {
	Rules       []StageRule
	DefaultRule StageRule
}

// DefaultStageRules returns the standard aging thresholds. Stalled stages
// are concerning at any tenure; early stages are expected to move fast,
// mid and late stages get progressively more slack.
func DefaultStageRules() StageRules {
	return StageRules{
		Rules: []StageRule{
			{Keywords: []string{"stalled", "delayed"}, GreenDays: -1, YellowDays: 14},
			{Keywords: []string{"nbm", "discovery", "qualification", "prospecting", "lead", "scheduled"}, GreenDays: 14, YellowDays: 30},
			{Keywords: []string{"technical", "evaluation", "demo", "proposal"}, GreenDays: 30, YellowDays: 45},
			{Keywords: []string{"negotiation", "contract", "closing", "final"}, GreenDays: 45, YellowDays: 60},
		},
		DefaultRule: StageRule{GreenDays: 21, YellowDays: 45},
	}
}

// Classify returns the traffic-light status for a deal that has spent
// daysInStage days in the stage with the given label. Unknown tenure is
// never guessed at.
func (sr StageRules) Classify(daysInStage *int64, stageLabel string) string {
	if daysInStage == nil {
		return StatusUnknown
	}

	days := *daysInStage
	stageLower := strings.ToLower(stageLabel)

	rule := sr.DefaultRule
	for _, r := range sr.Rules {
		if r.Matches(stageLower) {
			rule = r
			break
		}
	}

	if rule.GreenDays >= 0 && days <= int64(rule.GreenDays) {
		return StatusGreen
	}
	if days <= int64(rule.YellowDays) {
		return StatusYellow
	}
	return StatusRed
}

// dealOutcome derives the open/won/lost flags from a stage label. Won and
// lost are independent substring matches on the label; anything matching
// neither is open. A label containing both words sets both flags, keeping
// the stored flags in step with the historical snapshots.
func dealOutcome(stageLabel string) (isOpen, isWon, isLost bool) {
	stageLower := strings.ToLower(stageLabel)
	isWon = strings.Contains(stageLower, "won")
	isLost = strings.Contains(stageLower, "lost")
	isOpen = !isWon && !isLost
	return isOpen, isWon, isLost
}
