// internal/orchestrator/collaborators.go
package orchestrator

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	apperrors "voice-assistant/internal/common/errors"
	commonhttp "voice-assistant/internal/common/http"
	"voice-assistant/internal/nlu"
)

// Remote paths.
const (
	ParsePath           = "/nlu/parse"
	DashboardConfigPath = "/api/v1/dashboard/config"
)

var errNilClassification = errors.New("classifier returned no result")

// Classification is the classifier's verdict for one utterance.
type Classification struct {
	Intent     nlu.Intent   `json:"intent"`
	Entities   []nlu.Entity `json:"entities"`
	Confidence float64      `json:"confidence"`
}

// IntentClassifier maps an utterance to an intent.
type IntentClassifier interface {
	Classify(ctx context.Context, text, sessionID string) (*Classification, error)
}

// Prewarmer asks the dashboard generator to prepare a configuration.
type Prewarmer interface {
	Prewarm(ctx context.Context) error
}

type parseRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id,omitempty"`
}

// HTTPClassifier calls a remote parse endpoint.
type HTTPClassifier struct {
	client  *commonhttp.Client
	baseURL string
	timeout time.Duration
}

func NewHTTPClassifier(baseURL string, timeout time.Duration) *HTTPClassifier {
	return &HTTPClassifier{
		client:  commonhttp.NewClient(timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
	}
}

func (c *HTTPClassifier) Classify(ctx context.Context, text, sessionID string) (*Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out Classification
	err := c.client.PostJSON(ctx, c.baseURL+ParsePath, parseRequest{Text: text, SessionID: sessionID}, &out)
	switch {
	case err == nil:
	case isTimeout(err):
		return nil, apperrors.NewClassifierTimeoutError(c.timeout)
	case errors.Is(err, commonhttp.ErrDecodeResponse):
		return nil, apperrors.NewIntentParsingFailedError(err)
	default:
		return nil, apperrors.NewClassifierUnavailableError(err)
	}

	// A response without an intent is treated as an unrecognised utterance.
	if out.Intent == "" {
		out.Intent = nlu.IntentUnknown
	}
	if out.Entities == nil {
		out.Entities = []nlu.Entity{}
	}
	return &out, nil
}

// HTTPPrewarmer fetches the dashboard configuration and discards it.
type HTTPPrewarmer struct {
	client  *commonhttp.Client
	baseURL string
	timeout time.Duration
}

func NewHTTPPrewarmer(baseURL string, timeout time.Duration) *HTTPPrewarmer {
	return &HTTPPrewarmer{
		client:  commonhttp.NewClient(timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
	}
}

func (p *HTTPPrewarmer) Prewarm(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.GetJSON(ctx, p.baseURL+DashboardConfigPath, nil); err != nil {
		return apperrors.NewPrewarmFailedError(err)
	}
	return nil
}

// NopPrewarmer is used when no dashboard service is configured.
type NopPrewarmer struct{}

func (NopPrewarmer) Prewarm(context.Context) error { return nil }

// LocalClassifier runs the rule engine in process.
type LocalClassifier struct {
	engine *nlu.Engine
}

func NewLocalClassifier(engine *nlu.Engine) *LocalClassifier {
	return &LocalClassifier{engine: engine}
}

func (c *LocalClassifier) Classify(ctx context.Context, text, _ string) (*Classification, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewClassifierUnavailableError(err)
	}
	result := c.engine.Parse(text)
	return &Classification{
		Intent:     result.Intent,
		Entities:   result.Entities,
		Confidence: result.Confidence,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
