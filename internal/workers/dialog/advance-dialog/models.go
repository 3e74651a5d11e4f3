// internal/workers/dialog/advance-dialog/models.go
package advancedialog

import "voice-assistant/internal/dialog"

// Input carries the user's transcript and the state stored on the process
// instance by the previous turn. An empty DialogState starts a conversation.
type Input struct {
	Transcript  string       `json:"transcript"`
	DialogState dialog.State `json:"dialogState"`
}

type Output struct {
	ResponseText       string       `json:"responseText"`
	ParticleExpression string       `json:"particleExpression"`
	DialogState        dialog.State `json:"dialogState"`
	IsFinal            bool         `json:"isFinal"`
	Fallback           bool         `json:"fallback"`
}
