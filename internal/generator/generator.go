// Package generator produces labeled training sentences from templates.
//
// It shares the intent and entity vocabulary of the nlu package and is only
// used offline; nothing in the request path depends on it.
package generator

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"voice-assistant/internal/nlu"
)

var (
	ErrUnknownPlaceholder = errors.New("UNKNOWN_PLACEHOLDER")
	ErrMalformedTemplate  = errors.New("MALFORMED_TEMPLATE")
	ErrUnknownIntent      = errors.New("UNKNOWN_INTENT")
	ErrNoTemplates        = errors.New("NO_TEMPLATES")
)

const (
	openDelim  = '{'
	closeDelim = '}'
)

// TemplateSet lists the sentence templates of one intent.
type TemplateSet struct {
	Intent    nlu.Intent
	Templates []string
}

// DefaultTemplates are the sentence templates per intent.
var DefaultTemplates = []TemplateSet{
	{
		Intent: nlu.IntentDashboardRequest,
		Templates: []string{
			"show me my {dashboard_type} dashboard",
			"can I see my {dashboard_type} metrics",
			"pull up the {dashboard_type} dashboard",
			"I want to see my {dashboard_type} analytics",
		},
	},
	{
		Intent: nlu.IntentLeadGeneration,
		Templates: []string{
			"find more leads",
			"I need new leads for {industry}",
			"get me a list of {role} in {location}",
			"can you find some new prospects",
		},
	},
	{
		Intent: nlu.IntentMarketingAutomation,
		Templates: []string{
			"how are my campaigns doing",
			"show me the performance of the {campaign_name} campaign",
			"I want to check on my marketing campaigns",
		},
	},
}

// segment is either literal text or a placeholder naming an entity pool.
type segment struct {
	literal string
	entity  string
}

type compiledTemplate []segment

type intentTemplates struct {
	intent    nlu.Intent
	templates []compiledTemplate
}

// Generator fills templates with random pool values and records where each
// value landed in the produced sentence.
type Generator struct {
	sets  []intentTemplates
	pools map[string][]string
	rng   *rand.Rand
}

// New parses every template up front. A placeholder that names no pool is a
// configuration error.
func New(sets []TemplateSet, pools []nlu.Pool, rng *rand.Rand) (*Generator, error) {
	if len(sets) == 0 {
		return nil, ErrNoTemplates
	}
	g := &Generator{
		pools: make(map[string][]string, len(pools)),
		rng:   rng,
	}
	for _, p := range pools {
		if len(p.Values) == 0 {
			return nil, fmt.Errorf("%w: pool %q is empty", ErrUnknownPlaceholder, p.Entity)
		}
		g.pools[p.Entity] = p.Values
	}

	for _, set := range sets {
		if len(set.Templates) == 0 {
			return nil, fmt.Errorf("%w: intent %q", ErrNoTemplates, set.Intent)
		}
		it := intentTemplates{intent: set.Intent}
		for _, tmpl := range set.Templates {
			compiled, err := parseTemplate(tmpl)
			if err != nil {
				return nil, err
			}
			for _, seg := range compiled {
				if seg.entity == "" {
					continue
				}
				if _, ok := g.pools[seg.entity]; !ok {
					return nil, fmt.Errorf("%w: %q in template %q", ErrUnknownPlaceholder, seg.entity, tmpl)
				}
			}
			it.templates = append(it.templates, compiled)
		}
		g.sets = append(g.sets, it)
	}
	return g, nil
}

// NewDefault builds a generator over the default templates and pools.
func NewDefault(rng *rand.Rand) (*Generator, error) {
	return New(DefaultTemplates, nlu.DefaultPools, rng)
}

func parseTemplate(tmpl string) (compiledTemplate, error) {
	var out compiledTemplate
	rest := tmpl
	for rest != "" {
		open := strings.IndexRune(rest, openDelim)
		if open < 0 {
			out = append(out, segment{literal: rest})
			break
		}
		if open > 0 {
			out = append(out, segment{literal: rest[:open]})
		}
		end := strings.IndexRune(rest[open+1:], closeDelim)
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated placeholder in %q", ErrMalformedTemplate, tmpl)
		}
		name := rest[open+1 : open+1+end]
		if name == "" || strings.ContainsRune(name, openDelim) {
			return nil, fmt.Errorf("%w: bad placeholder %q in %q", ErrMalformedTemplate, name, tmpl)
		}
		out = append(out, segment{entity: name})
		rest = rest[open+end+2:]
	}
	return out, nil
}

// Intents returns the intents the generator can produce, in table order.
func (g *Generator) Intents() []nlu.Intent {
	out := make([]nlu.Intent, len(g.sets))
	for i, s := range g.sets {
		out[i] = s.intent
	}
	return out
}

// Sentence fills one randomly chosen template of intent.
func (g *Generator) Sentence(intent nlu.Intent) (Sample, error) {
	for _, set := range g.sets {
		if set.intent == intent {
			return g.fill(intent, set.templates[g.rng.IntN(len(set.templates))]), nil
		}
	}
	return Sample{}, fmt.Errorf("%w: %q", ErrUnknownIntent, intent)
}

// fill substitutes placeholders left to right. Offsets are taken from the
// sentence built so far, so earlier substitutions are already accounted for.
func (g *Generator) fill(intent nlu.Intent, tmpl compiledTemplate) Sample {
	var b strings.Builder
	runes := 0
	entities := []nlu.Entity{}
	for _, seg := range tmpl {
		if seg.entity == "" {
			b.WriteString(seg.literal)
			runes += utf8.RuneCountInString(seg.literal)
			continue
		}
		pool := g.pools[seg.entity]
		value := pool[g.rng.IntN(len(pool))]
		start := runes
		b.WriteString(value)
		runes += utf8.RuneCountInString(value)
		entities = append(entities, nlu.Entity{
			Name:  seg.entity,
			Value: value,
			Span:  &nlu.Span{Start: start, End: runes},
		})
	}
	return Sample{Text: b.String(), Intent: intent, Entities: entities}
}

// Generate produces n samples with intents drawn uniformly.
func (g *Generator) Generate(n int) ([]Sample, error) {
	if n < 0 {
		return nil, fmt.Errorf("sample count must not be negative, got %d", n)
	}
	samples := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		set := g.sets[g.rng.IntN(len(g.sets))]
		samples = append(samples, g.fill(set.intent, set.templates[g.rng.IntN(len(set.templates))]))
	}
	return samples, nil
}
