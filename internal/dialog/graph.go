// Package dialog implements the scripted conversation state machine.
//
// The conversation is a fixed directed graph of named nodes. Every node
// carries the reply spoken on entering it and an ordered list of outgoing
// edges, each guarded by a case-insensitive pattern. The graph is validated
// when it is built and never mutated afterwards.
package dialog

import (
	"errors"
	"fmt"
	"regexp"
)

// State names a node of the dialog graph.
type State string

// Expression cues understood by the particle face.
const (
	ExpressionNeutral   = "neutral"
	ExpressionListening = "listening"
	ExpressionThinking  = "thinking"
	ExpressionSpeaking  = "speaking"
)

var (
	ErrInvalidGraph = errors.New("INVALID_GRAPH")
)

// TransitionSpec is an uncompiled edge.
type TransitionSpec struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	Next    State  `yaml:"next" json:"next"`
}

// NodeSpec is an uncompiled node.
type NodeSpec struct {
	ID          State            `yaml:"id" json:"id"`
	Response    string           `yaml:"response" json:"response"`
	Expression  string           `yaml:"expression" json:"expression"`
	Terminal    bool             `yaml:"terminal" json:"terminal"`
	Transitions []TransitionSpec `yaml:"transitions" json:"transitions"`
}

// GraphSpec describes a whole dialog.
type GraphSpec struct {
	Initial  State      `yaml:"initial" json:"initial"`
	Fallback State      `yaml:"fallback" json:"fallback"`
	Nodes    []NodeSpec `yaml:"nodes" json:"nodes"`
}

// Transition is a compiled edge.
type Transition struct {
	Pattern *regexp.Regexp
	Next    State
}

// Node is a compiled node.
type Node struct {
	ID          State
	Response    string
	Expression  string
	Terminal    bool
	Transitions []Transition
}

// Graph is a validated dialog graph.
type Graph struct {
	initial  State
	fallback State
	nodes    map[State]*Node
	order    []State
}

var validExpressions = map[string]bool{
	ExpressionNeutral:   true,
	ExpressionListening: true,
	ExpressionThinking:  true,
	ExpressionSpeaking:  true,
}

// NewGraph compiles and validates spec. Every edge must point at a declared
// node, the fallback node must have no edges and terminal nodes must have no
// edges.
func NewGraph(spec GraphSpec) (*Graph, error) {
	g := &Graph{
		initial:  spec.Initial,
		fallback: spec.Fallback,
		nodes:    make(map[State]*Node, len(spec.Nodes)),
	}

	for _, ns := range spec.Nodes {
		if ns.ID == "" {
			return nil, fmt.Errorf("%w: node without id", ErrInvalidGraph)
		}
		if _, dup := g.nodes[ns.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node %s", ErrInvalidGraph, ns.ID)
		}
		if !validExpressions[ns.Expression] {
			return nil, fmt.Errorf("%w: node %s has unknown expression %q", ErrInvalidGraph, ns.ID, ns.Expression)
		}
		if ns.Terminal && len(ns.Transitions) > 0 {
			return nil, fmt.Errorf("%w: terminal node %s has transitions", ErrInvalidGraph, ns.ID)
		}

		node := &Node{
			ID:         ns.ID,
			Response:   ns.Response,
			Expression: ns.Expression,
			Terminal:   ns.Terminal,
		}
		for i, ts := range ns.Transitions {
			if ts.Pattern == "" {
				return nil, fmt.Errorf("%w: node %s transition %d has an empty pattern", ErrInvalidGraph, ns.ID, i)
			}
			re, err := regexp.Compile("(?i)" + ts.Pattern)
			if err != nil {
				return nil, fmt.Errorf("%w: node %s transition %d: %v", ErrInvalidGraph, ns.ID, i, err)
			}
			node.Transitions = append(node.Transitions, Transition{Pattern: re, Next: ts.Next})
		}
		g.nodes[ns.ID] = node
		g.order = append(g.order, ns.ID)
	}

	initial, ok := g.nodes[g.initial]
	if !ok {
		return nil, fmt.Errorf("%w: initial state %q is not declared", ErrInvalidGraph, g.initial)
	}
	if initial.ID == g.fallback {
		return nil, fmt.Errorf("%w: initial and fallback state are the same", ErrInvalidGraph)
	}
	fallback, ok := g.nodes[g.fallback]
	if !ok {
		return nil, fmt.Errorf("%w: fallback state %q is not declared", ErrInvalidGraph, g.fallback)
	}
	if len(fallback.Transitions) > 0 {
		return nil, fmt.Errorf("%w: fallback state %s has transitions", ErrInvalidGraph, fallback.ID)
	}
	if fallback.Terminal {
		return nil, fmt.Errorf("%w: fallback state %s is terminal", ErrInvalidGraph, fallback.ID)
	}

	for _, id := range g.order {
		for i, t := range g.nodes[id].Transitions {
			if _, ok := g.nodes[t.Next]; !ok {
				return nil, fmt.Errorf("%w: node %s transition %d targets undeclared state %q", ErrInvalidGraph, id, i, t.Next)
			}
			if t.Next == g.fallback {
				return nil, fmt.Errorf("%w: node %s transition %d targets the fallback state", ErrInvalidGraph, id, i)
			}
		}
	}

	hasTerminal := false
	for _, n := range g.nodes {
		if n.Terminal {
			hasTerminal = true
			break
		}
	}
	if !hasTerminal {
		return nil, fmt.Errorf("%w: no terminal state", ErrInvalidGraph)
	}

	return g, nil
}

// Initial returns the entry state.
func (g *Graph) Initial() State { return g.initial }

// Fallback returns the no-match state.
func (g *Graph) Fallback() State { return g.fallback }

// Node returns the node for id.
func (g *Graph) Node(id State) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// States returns every declared state in declaration order.
func (g *Graph) States() []State {
	out := make([]State, len(g.order))
	copy(out, g.order)
	return out
}
