// internal/workers/nlu/parse-transcript/models.go
package parsetranscript

import "voice-assistant/internal/nlu"

type Input struct {
	Transcript string `json:"transcript"`
	SessionID  string `json:"sessionId"`
}

type Output struct {
	Intent     nlu.Intent   `json:"intent"`
	Entities   []nlu.Entity `json:"entities"`
	Confidence float64      `json:"confidence"`
}
