// internal/nlu/classifier.go
package nlu

import (
	"fmt"
	"regexp"
)

// RuleSpec is the uncompiled form of a classification rule.
type RuleSpec struct {
	Intent     Intent
	Pattern    string
	Confidence float64
}

// Rule pairs a predicate with the outcome it produces.
type Rule struct {
	Intent     Intent
	Pattern    *regexp.Regexp
	Confidence float64
}

// Classifier evaluates rules in order and stops at the first match.
// Overlapping vocabulary is resolved by position in the list only.
type Classifier struct {
	rules    []Rule
	fallback Rule
}

// DefaultRuleSpecs are listed in priority order.
var DefaultRuleSpecs = []RuleSpec{
	{Intent: IntentDashboardRequest, Pattern: `dashboard|metrics|analytics|kpis`, Confidence: 0.95},
	{Intent: IntentLeadGeneration, Pattern: `leads|prospects|find people`, Confidence: 0.92},
	{Intent: IntentMarketingAutomation, Pattern: `campaigns|marketing`, Confidence: 0.88},
}

// NewClassifier compiles specs, keeping their order.
func NewClassifier(specs []RuleSpec) (*Classifier, error) {
	rules := make([]Rule, 0, len(specs))
	for i, spec := range specs {
		if spec.Intent == "" {
			return nil, fmt.Errorf("%w: rule %d has no intent", ErrInvalidRule, i)
		}
		if spec.Confidence < 0 || spec.Confidence > 1 {
			return nil, fmt.Errorf("%w: rule %d (%s) confidence %.2f out of [0,1]", ErrInvalidRule, i, spec.Intent, spec.Confidence)
		}
		re, err := regexp.Compile("(?i)" + spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %d (%s): %v", ErrInvalidRule, i, spec.Intent, err)
		}
		rules = append(rules, Rule{Intent: spec.Intent, Pattern: re, Confidence: spec.Confidence})
	}

	return &Classifier{
		rules:    rules,
		fallback: Rule{Intent: IntentUnknown, Confidence: UnknownConfidence},
	}, nil
}

// Classify returns the intent and confidence of the first matching rule.
func (c *Classifier) Classify(text string) (Intent, float64) {
	for _, r := range c.rules {
		if r.Pattern.MatchString(text) {
			return r.Intent, r.Confidence
		}
	}
	return c.fallback.Intent, c.fallback.Confidence
}

// Intents lists the intents the classifier can produce, in rule order,
// followed by the fallback intent.
func (c *Classifier) Intents() []Intent {
	out := make([]Intent, 0, len(c.rules)+1)
	seen := make(map[Intent]bool, len(c.rules)+1)
	for _, r := range c.rules {
		if !seen[r.Intent] {
			seen[r.Intent] = true
			out = append(out, r.Intent)
		}
	}
	if !seen[c.fallback.Intent] {
		out = append(out, c.fallback.Intent)
	}
	return out
}
