// Package orchestrator turns one transcript into one spoken reply by asking
// an intent classifier and, for dashboard requests, pre-warming the
// dashboard generator.
//
// A turn never fails: collaborator errors select the apology reply. Each
// collaborator is called at most once per turn and is never retried.
package orchestrator

import (
	"context"
	"strings"
	"time"

	apperrors "voice-assistant/internal/common/errors"
	"voice-assistant/internal/common/logger"
	"voice-assistant/internal/common/metrics"
	"voice-assistant/internal/common/observability"
	"voice-assistant/internal/dialog"
	"voice-assistant/internal/nlu"
)

// Replies spoken by the orchestrator.
const (
	ReplyDashboard = "Of course. Generating your dashboard now."
	ReplyUnknown   = "I'm sorry, I'm not sure how to help with that yet. You could try asking about a dashboard."
	ReplyFailure   = "I'm having trouble understanding right now. Please try again in a moment."
)

// Reply is the outcome of one turn.
type Reply struct {
	ResponseText string `json:"response_text"`
	Expression   string `json:"particle_expression"`
	IsFinal      bool   `json:"is_final"`
}

type classifyResult struct {
	classification *Classification
	err            error
}

type prewarmResult struct {
	attempted bool
	err       error
}

type Orchestrator struct {
	classifier IntentClassifier
	prewarmer  Prewarmer
	logger     logger.Logger
	obs        *observability.Observability
}

type Option func(*Orchestrator)

// WithObservability records every turn on o.
func WithObservability(o *observability.Observability) Option {
	return func(orc *Orchestrator) { orc.obs = o }
}

func New(classifier IntentClassifier, prewarmer Prewarmer, log logger.Logger, opts ...Option) *Orchestrator {
	if prewarmer == nil {
		prewarmer = NopPrewarmer{}
	}
	o := &Orchestrator{classifier: classifier, prewarmer: prewarmer, logger: log}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Converse handles one turn. Pre-warm runs before the reply is returned and
// is bounded by the prewarmer's own timeout; its outcome never changes the
// reply.
func (o *Orchestrator) Converse(ctx context.Context, transcript, sessionID string) Reply {
	start := time.Now()

	cr := o.classify(ctx, transcript, sessionID)

	var pr prewarmResult
	if shouldPrewarm(cr) {
		pr = o.prewarm(ctx)
	}

	reply := decide(cr)
	o.record(ctx, sessionID, cr, pr, time.Since(start))
	return reply
}

func (o *Orchestrator) classify(ctx context.Context, transcript, sessionID string) classifyResult {
	c, err := o.classifier.Classify(ctx, transcript, sessionID)
	if err == nil && c == nil {
		err = apperrors.NewIntentParsingFailedError(errNilClassification)
	}

	switch {
	case err == nil:
		metrics.CollaboratorCalls.WithLabelValues("classifier", "ok").Inc()
		metrics.IntentsClassified.WithLabelValues(intentLabel(c.Intent)).Inc()
	case apperrors.Normalize(err).Code == apperrors.ErrCodeClassifierTimeout:
		metrics.CollaboratorCalls.WithLabelValues("classifier", "timeout").Inc()
	default:
		metrics.CollaboratorCalls.WithLabelValues("classifier", "error").Inc()
	}
	return classifyResult{classification: c, err: err}
}

func (o *Orchestrator) prewarm(ctx context.Context) prewarmResult {
	err := o.prewarmer.Prewarm(ctx)
	if err != nil {
		metrics.CollaboratorCalls.WithLabelValues("dashboard", "error").Inc()
	} else {
		metrics.CollaboratorCalls.WithLabelValues("dashboard", "ok").Inc()
	}
	return prewarmResult{attempted: true, err: err}
}

func shouldPrewarm(cr classifyResult) bool {
	return cr.err == nil && cr.classification.Intent == nlu.IntentDashboardRequest
}

// decide maps a classification outcome to the reply.
func decide(cr classifyResult) Reply {
	if cr.err != nil {
		return Reply{ResponseText: ReplyFailure, Expression: dialog.ExpressionThinking}
	}

	switch intent := cr.classification.Intent; intent {
	case nlu.IntentDashboardRequest:
		return Reply{ResponseText: ReplyDashboard, Expression: dialog.ExpressionSpeaking, IsFinal: true}
	case nlu.IntentLeadGeneration, nlu.IntentMarketingAutomation:
		return Reply{ResponseText: AcknowledgeIntent(intent), Expression: dialog.ExpressionSpeaking}
	default:
		return Reply{ResponseText: ReplyUnknown, Expression: dialog.ExpressionThinking}
	}
}

// AcknowledgeIntent builds the holding reply for intents without a handler yet.
func AcknowledgeIntent(intent nlu.Intent) string {
	return "I understand you're interested in " + strings.ReplaceAll(string(intent), "_", " ") +
		". I'll be able to help with that soon."
}

// otherIntentLabel stands in for intents outside the known vocabulary so a
// remote classifier cannot grow metric label sets without bound.
const otherIntentLabel = "other"

func intentLabel(intent nlu.Intent) string {
	switch intent {
	case nlu.IntentDashboardRequest, nlu.IntentLeadGeneration, nlu.IntentMarketingAutomation, nlu.IntentUnknown:
		return string(intent)
	default:
		return otherIntentLabel
	}
}

func outcomeOf(cr classifyResult) string {
	if cr.err != nil {
		return "failure"
	}
	return intentLabel(cr.classification.Intent)
}

func (o *Orchestrator) record(ctx context.Context, sessionID string, cr classifyResult, pr prewarmResult, elapsed time.Duration) {
	outcome := outcomeOf(cr)
	metrics.TurnsTotal.WithLabelValues("intent", outcome).Inc()
	metrics.TurnDuration.WithLabelValues("intent").Observe(elapsed.Seconds())
	o.obs.RecordTurn(ctx, "intent", outcome, elapsed)

	fields := map[string]interface{}{
		"sessionId": sessionID,
		"outcome":   outcome,
		"elapsedMs": elapsed.Milliseconds(),
	}
	if cr.err != nil {
		stdErr := apperrors.Normalize(cr.err)
		fields["errorCode"] = string(stdErr.Code)
		fields["details"] = stdErr.Details
		o.logger.Warn("intent classification failed", fields)
		return
	}
	fields["confidence"] = cr.classification.Confidence
	if pr.attempted && pr.err != nil {
		fields["prewarmError"] = pr.err.Error()
		o.logger.Warn("dashboard pre-warm failed", fields)
		return
	}
	o.logger.Info("turn handled", fields)
}
