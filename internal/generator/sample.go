// internal/generator/sample.go
package generator

import (
	"encoding/json"
	"strings"

	"voice-assistant/internal/nlu"
)

// Sample is one labeled sentence.
type Sample struct {
	Text     string
	Intent   nlu.Intent
	Entities []nlu.Entity
}

// sampleRecord is the on-disk shape of a sample: entities become
// [start, end, "UPPER_NAME"] triples.
type sampleRecord struct {
	Text     string           `json:"text"`
	Intent   string           `json:"intent"`
	Entities [][3]interface{} `json:"entities"`
}

// MarshalJSON encodes the sample in the training file format.
func (s Sample) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.record())
}

func (s Sample) record() sampleRecord {
	rec := sampleRecord{
		Text:     s.Text,
		Intent:   string(s.Intent),
		Entities: make([][3]interface{}, 0, len(s.Entities)),
	}
	for _, e := range s.Entities {
		if e.Span == nil {
			continue
		}
		rec.Entities = append(rec.Entities, [3]interface{}{e.Span.Start, e.Span.End, strings.ToUpper(e.Name)})
	}
	return rec
}
