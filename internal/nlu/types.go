// internal/nlu/types.go
package nlu

import "errors"

// Intent identifies the user's high-level goal for a single utterance.
type Intent string

const (
	IntentDashboardRequest    Intent = "dashboard_request"
	IntentLeadGeneration      Intent = "lead_generation"
	IntentMarketingAutomation Intent = "marketing_automation"
	IntentUnknown             Intent = "unknown"
)

// UnknownConfidence is the sentinel score reported when no rule matches.
const UnknownConfidence = 0.40

var (
	ErrInvalidRule = errors.New("INVALID_RULE")
)

// Span is a half-open [Start, End) offset counted in runes of the source text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Slice returns the part of text covered by the span, or false when the
// span does not fit inside text.
func (s Span) Slice(text string) (string, bool) {
	r := []rune(text)
	if s.Start < 0 || s.Start > s.End || s.End > len(r) {
		return "", false
	}
	return string(r[s.Start:s.End]), true
}

// Entity is a named value extracted from (or generated into) an utterance.
// Span is only set by the offline generator.
type Entity struct {
	Name  string `json:"entity"`
	Value string `json:"value"`
	Span  *Span  `json:"span,omitempty"`
}

// ParseResult is the output of the NLU engine for one utterance.
//
// Confidence is a static score attached to the rule that matched. It ranks
// nothing and must not be compared across intents.
type ParseResult struct {
	Intent     Intent   `json:"intent"`
	Entities   []Entity `json:"entities"`
	Confidence float64  `json:"confidence"`
}
