// Package classify maps swap statistics to a behavioral label.
package classify

import (
	"fmt"
	"math"

	"github.com/SprengerV/volume-analyzer/internal/domain"
)

// Rule is one entry of the ordered decision list.
type Rule struct {
	Name      string
	Condition string // human readable form of Match
	Label     domain.Label
	Match     func(s domain.Stats) bool
}

// RuleResult is the outcome of one rule for a given Stats.
type RuleResult struct {
	Name      string       `json:"name"`
	Condition string       `json:"condition"`
	Label     domain.Label `json:"label"`
	Actual    string       `json:"actual"`
	Matched   bool         `json:"matched"`
}

// DefaultRules returns the decision list in evaluation order.
// Conditions overlap; the first match wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:      "exit_liquidity",
			Condition: "dominance > 0.5 AND net < -0.05",
			Label:     domain.LabelExitLiquidity,
			Match: func(s domain.Stats) bool {
				return s.Dominance > 0.5 && s.Net < -0.05
			},
		},
		{
			Name:      "fake_volume",
			Condition: "wash > 0.7 AND rotation > 0.6",
			Label:     domain.LabelFakeVolume,
			Match: func(s domain.Stats) bool {
				return s.Wash > 0.7 && s.Rotation > 0.6
			},
		},
		{
			Name:      "price_anchor",
			Condition: "rotation < 0.25 AND dominance > 0.4 AND |net| < 0.02",
			Label:     domain.LabelPriceAnchor,
			Match: func(s domain.Stats) bool {
				return s.Rotation < 0.25 && s.Dominance > 0.4 && math.Abs(s.Net) < 0.02
			},
		},
		{
			Name:      "ignition",
			Condition: "dominance > 0.3 AND net > 0.05 AND unique_wallets_ratio > 0.2",
			Label:     domain.LabelIgnition,
			Match: func(s domain.Stats) bool {
				return s.Dominance > 0.3 && s.Net > 0.05 && s.UniqueWalletsRatio > 0.2
			},
		},
		{
			Name:      "organic",
			Condition: "unique_wallets_ratio > 0.5 AND dominance < 0.2",
			Label:     domain.LabelOrganic,
			Match: func(s domain.Stats) bool {
				return s.UniqueWalletsRatio > 0.5 && s.Dominance < 0.2
			},
		},
	}
}

// Classifier evaluates an ordered rule list.
type Classifier struct {
	rules    []Rule
	fallback domain.Label
}

// New creates a Classifier over rules. Nil rules means DefaultRules.
func New(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules, fallback: domain.LabelMixed}
}

// Classify returns the label of the first matching rule, or Mixed / Unknown.
func (c *Classifier) Classify(s domain.Stats) domain.Label {
	for _, r := range c.rules {
		if r.Match(s) {
			return r.Label
		}
	}
	return c.fallback
}

// Explain evaluates every rule in order. Unlike Classify it does not stop
// at the first match; Matched is true only for the rule that decided.
func (c *Classifier) Explain(s domain.Stats) []RuleResult {
	actual := fmt.Sprintf("dominance=%.3f wash=%.3f rotation=%.3f net=%.3f uwr=%.3f",
		s.Dominance, s.Wash, s.Rotation, s.Net, s.UniqueWalletsRatio)

	results := make([]RuleResult, len(c.rules))
	decided := false
	for i, r := range c.rules {
		matched := !decided && r.Match(s)
		if matched {
			decided = true
		}
		results[i] = RuleResult{
			Name:      r.Name,
			Condition: r.Condition,
			Label:     r.Label,
			Actual:    actual,
			Matched:   matched,
		}
	}
	return results
}

var defaultClassifier = New(nil)

// Classify labels s with the default rules.
func Classify(s domain.Stats) domain.Label {
	return defaultClassifier.Classify(s)
}

// Explain evaluates the default rules against s.
func Explain(s domain.Stats) []RuleResult {
	return defaultClassifier.Explain(s)
}
