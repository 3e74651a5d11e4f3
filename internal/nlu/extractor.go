// internal/nlu/extractor.go
package nlu

import (
	"fmt"
	"regexp"
)

// SlotRuleSpec maps a pattern to the value emitted when it matches.
// An empty Value emits the matched surface text.
type SlotRuleSpec struct {
	Pattern string
	Value   string
}

// SlotSpec configures one entity slot of an intent. Default is emitted when
// no rule matches; an empty Default omits the slot instead.
type SlotSpec struct {
	Entity  string
	Rules   []SlotRuleSpec
	Default string
}

type slotRule struct {
	pattern *regexp.Regexp
	value   string
}

type slot struct {
	entity   string
	rules    []slotRule
	fallback string
}

// Extractor populates entities for text that already has an intent.
type Extractor struct {
	slots map[Intent][]slot
}

// DefaultSlotSpecs holds the extraction rules per intent.
var DefaultSlotSpecs = map[Intent][]SlotSpec{
	IntentDashboardRequest: {
		{
			Entity: EntityDashboardType,
			Rules: []SlotRuleSpec{
				{Pattern: `marketing`, Value: "marketing"},
				{Pattern: `sales`, Value: "sales"},
			},
			Default: "business_intelligence",
		},
	},
	IntentLeadGeneration: {
		poolSlot(EntityIndustry),
		poolSlot(EntityRole),
		poolSlot(EntityLocation),
	},
	IntentMarketingAutomation: {
		poolSlot(EntityCampaignName),
	},
}

// poolSlot builds a slot whose rules are the literal values of a vocabulary
// pool, emitted in their canonical spelling.
func poolSlot(entity string) SlotSpec {
	values, _ := PoolValues(DefaultPools, entity)
	rules := make([]SlotRuleSpec, 0, len(values))
	for _, v := range values {
		rules = append(rules, SlotRuleSpec{Pattern: `\b` + regexp.QuoteMeta(v) + `\b`, Value: v})
	}
	return SlotSpec{Entity: entity, Rules: rules}
}

// NewExtractor compiles slot specs.
func NewExtractor(specs map[Intent][]SlotSpec) (*Extractor, error) {
	e := &Extractor{slots: make(map[Intent][]slot, len(specs))}
	for intent, slotSpecs := range specs {
		compiled := make([]slot, 0, len(slotSpecs))
		for _, ss := range slotSpecs {
			s := slot{entity: ss.Entity, fallback: ss.Default}
			for _, rs := range ss.Rules {
				re, err := regexp.Compile("(?i)" + rs.Pattern)
				if err != nil {
					return nil, fmt.Errorf("%w: slot %s.%s: %v", ErrInvalidRule, intent, ss.Entity, err)
				}
				s.rules = append(s.rules, slotRule{pattern: re, value: rs.Value})
			}
			compiled = append(compiled, s)
		}
		e.slots[intent] = compiled
	}
	return e, nil
}

// Extract returns the entities configured for intent that can be found in
// text. Slots are reported in configuration order.
func (e *Extractor) Extract(text string, intent Intent) []Entity {
	entities := []Entity{}
	for _, s := range e.slots[intent] {
		if value, ok := s.match(text); ok {
			entities = append(entities, Entity{Name: s.entity, Value: value})
		}
	}
	return entities
}

func (s slot) match(text string) (string, bool) {
	for _, r := range s.rules {
		loc := r.pattern.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if r.value != "" {
			return r.value, true
		}
		return text[loc[0]:loc[1]], true
	}
	if s.fallback != "" {
		return s.fallback, true
	}
	return "", false
}
