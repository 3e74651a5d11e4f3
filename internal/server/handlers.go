// internal/server/handlers.go
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"voice-assistant/internal/common/metrics"
	"voice-assistant/internal/common/validation"
	"voice-assistant/internal/dialog"
)

type ParseRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
}

type ConverseRequest struct {
	Transcript string `json:"transcript"`
	SessionID  string `json:"session_id"`
}

type ScriptRequest struct {
	Transcript   string `json:"transcript"`
	CurrentState string `json:"current_state"`
}

// ErrorResponse is returned for rejected requests.
type ErrorResponse struct {
	Code    int                          `json:"code"`
	Message string                       `json:"message"`
	Errors  []validation.ValidationError `json:"errors,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failures := map[string]string{}
	for _, check := range s.deps.Readiness {
		if err := check.Check(ctx); err != nil {
			failures[check.Name] = err.Error()
		}
	}
	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "failures": failures})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) parse(c *gin.Context) {
	var req ParseRequest
	if !s.bind(c, validation.SchemaParseRequest, &req) {
		return
	}

	result := s.deps.Engine.Parse(req.Text)
	metrics.IntentsClassified.WithLabelValues(string(result.Intent)).Inc()
	c.JSON(http.StatusOK, result)
}

func (s *Server) converse(c *gin.Context) {
	var req ConverseRequest
	if !s.bind(c, validation.SchemaConverseRequest, &req) {
		return
	}

	reply := s.deps.Orchestrator.Converse(c.Request.Context(), req.Transcript, req.SessionID)
	c.JSON(http.StatusOK, reply)
}

func (s *Server) script(c *gin.Context) {
	var req ScriptRequest
	if !s.bind(c, validation.SchemaScriptRequest, &req) {
		return
	}

	start := time.Now()
	turn := s.deps.Machine.Step(req.Transcript, dialog.State(req.CurrentState))

	outcome := string(turn.NextState)
	if turn.Fallback {
		outcome = "fallback"
	}
	elapsed := time.Since(start)
	metrics.TurnsTotal.WithLabelValues("script", outcome).Inc()
	metrics.TurnDuration.WithLabelValues("script").Observe(elapsed.Seconds())
	s.deps.Observability.RecordTurn(c.Request.Context(), "script", outcome, elapsed)

	c.JSON(http.StatusOK, turn)
}

// bind validates the raw body against schema and decodes it into dst. It
// writes the 400 response itself and returns false on failure.
func (s *Server) bind(c *gin.Context, schema string, dst interface{}) bool {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: http.StatusBadRequest, Message: "unreadable request body"})
		return false
	}

	result, err := validation.ValidateBytes(schema, body)
	if err != nil {
		s.deps.Logger.Error("schema validation unavailable", map[string]interface{}{"schema": schema, "error": err.Error()})
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: http.StatusInternalServerError, Message: "validation unavailable"})
		return false
	}
	if !result.Valid {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid request",
			Errors:  result.Errors,
		})
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: http.StatusBadRequest, Message: "invalid request"})
		return false
	}
	return true
}
