// internal/workers/voice/converse-turn/models.go
package converseturn

type Input struct {
	Transcript string `json:"transcript"`
	SessionID  string `json:"sessionId"`
}

type Output struct {
	ResponseText       string `json:"responseText"`
	ParticleExpression string `json:"particleExpression"`
	IsFinal            bool   `json:"isFinal"`
}
