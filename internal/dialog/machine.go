// internal/dialog/machine.go
package dialog

import "strings"

// Turn is the outcome of feeding one transcript to the machine.
type Turn struct {
	ResponseText string `json:"response_text"`
	Expression   string `json:"particle_expression"`
	NextState    State  `json:"next_state"`
	IsFinal      bool   `json:"is_final"`
	// Fallback is set when no transition matched.
	Fallback bool `json:"-"`
}

// Machine steps through a Graph. It keeps no per-conversation state; the
// caller passes the current state on every turn.
type Machine struct {
	graph *Graph
}

func NewMachine(graph *Graph) *Machine {
	return &Machine{graph: graph}
}

// Graph exposes the underlying graph.
func (m *Machine) Graph() *Graph { return m.graph }

// Resolve maps an unknown or empty state to the initial state. The fallback
// node is never a conversation position, so it resolves the same way.
func (m *Machine) Resolve(current State) State {
	if _, ok := m.graph.nodes[current]; !ok || current == m.graph.fallback {
		return m.graph.initial
	}
	return current
}

// Step computes the reply and next state for transcript.
func (m *Machine) Step(transcript string, current State) Turn {
	state := m.Resolve(current)
	node := m.graph.nodes[state]

	if state == m.graph.initial && strings.TrimSpace(transcript) == "" {
		return turnFor(node)
	}

	for _, t := range node.Transitions {
		if t.Pattern.MatchString(transcript) {
			return turnFor(m.graph.nodes[t.Next])
		}
	}

	fallback := m.graph.nodes[m.graph.fallback]
	return Turn{
		ResponseText: fallback.Response,
		Expression:   fallback.Expression,
		NextState:    state,
		IsFinal:      false,
		Fallback:     true,
	}
}

func turnFor(n *Node) Turn {
	return Turn{
		ResponseText: n.Response,
		Expression:   n.Expression,
		NextState:    n.ID,
		IsFinal:      n.Terminal,
	}
}
