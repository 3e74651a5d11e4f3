// internal/dialog/script.go
package dialog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	StateGreeting           State = "GREETING"
	StateElaboration        State = "ELABORATION"
	StateDashboardConfirmed State = "DASHBOARD_CONFIRMED"
	StateLeadSearch         State = "LEAD_SEARCH"
	StateFarewell           State = "FAREWELL"
	StateFallback           State = "FALLBACK"
)

// DefaultScript is the discovery conversation used when no graph file is
// configured.
var DefaultScript = GraphSpec{
	Initial:  StateGreeting,
	Fallback: StateFallback,
	Nodes: []NodeSpec{
		{
			ID:         StateGreeting,
			Response:   "Hi, I'm your growth assistant. What matters most to your business right now: sales, marketing, or reporting?",
			Expression: ExpressionSpeaking,
			Transitions: []TransitionSpec{
				{Pattern: `\b(no thanks|bye|goodbye|nothing)\b`, Next: StateFarewell},
				{Pattern: `sales|revenue|pipeline|deals|marketing|campaign|growth|customers`, Next: StateElaboration},
				{Pattern: `dashboard|report|metrics|analytics|kpis`, Next: StateDashboardConfirmed},
				{Pattern: `leads|prospects`, Next: StateLeadSearch},
			},
		},
		{
			ID:         StateElaboration,
			Response:   "Got it. Would you like me to build a dashboard to track that, or find new leads for you?",
			Expression: ExpressionListening,
			Transitions: []TransitionSpec{
				{Pattern: `\b(no|nope|not now|bye|goodbye)\b`, Next: StateFarewell},
				{Pattern: `dashboard|report|track|metrics|\byes\b|\bsure\b`, Next: StateDashboardConfirmed},
				{Pattern: `leads|prospects|find`, Next: StateLeadSearch},
			},
		},
		{
			ID:         StateDashboardConfirmed,
			Response:   "Great. Generating your dashboard now.",
			Expression: ExpressionSpeaking,
			Terminal:   true,
		},
		{
			ID:         StateLeadSearch,
			Response:   "Perfect. I'll start looking for new prospects for you.",
			Expression: ExpressionSpeaking,
			Terminal:   true,
		},
		{
			ID:         StateFarewell,
			Response:   "No problem. I'm here whenever you need me.",
			Expression: ExpressionNeutral,
			Terminal:   true,
		},
		{
			ID:         StateFallback,
			Response:   "Sorry, I didn't quite catch that. Could you say it another way?",
			Expression: ExpressionThinking,
		},
	},
}

// NewDefaultMachine builds a machine over DefaultScript.
func NewDefaultMachine() (*Machine, error) {
	g, err := NewGraph(DefaultScript)
	if err != nil {
		return nil, err
	}
	return NewMachine(g), nil
}

// ParseGraphYAML decodes and validates a YAML graph definition.
func ParseGraphYAML(data []byte) (*Graph, error) {
	var spec GraphSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidGraph, err)
	}
	return NewGraph(spec)
}

// LoadGraphFile reads a YAML graph definition from path.
func LoadGraphFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dialog graph %s: %w", path, err)
	}
	return ParseGraphYAML(data)
}
