// internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "voice-assistant/internal/common/errors"
	"voice-assistant/internal/common/logger"
	"voice-assistant/internal/common/metrics"
	"voice-assistant/internal/dialog"
	"voice-assistant/internal/nlu"
)

// ==========================
// Test Helper Functions
// ==========================

type stubClassifier struct {
	result *Classification
	err    error
	calls  int32
}

func (s *stubClassifier) Classify(context.Context, string, string) (*Classification, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.result, s.err
}

type stubPrewarmer struct {
	err   error
	calls int32
}

func (s *stubPrewarmer) Prewarm(context.Context) error {
	atomic.AddInt32(&s.calls, 1)
	return s.err
}

func classified(intent nlu.Intent) *stubClassifier {
	return &stubClassifier{result: &Classification{Intent: intent, Entities: []nlu.Entity{}, Confidence: 0.9}}
}

// ==========================
// Decision Table Tests
// ==========================

func TestOrchestrator_Converse_DecisionTable(t *testing.T) {
	tests := []struct {
		name            string
		classifier      *stubClassifier
		prewarmErr      error
		expectedReply   Reply
		expectedPrewarm int32
	}{
		{
			name:            "dashboard request",
			classifier:      classified(nlu.IntentDashboardRequest),
			expectedReply:   Reply{ResponseText: ReplyDashboard, Expression: dialog.ExpressionSpeaking, IsFinal: true},
			expectedPrewarm: 1,
		},
		{
			name:            "dashboard request with failed pre-warm",
			classifier:      classified(nlu.IntentDashboardRequest),
			prewarmErr:      apperrors.NewPrewarmFailedError(assert.AnError),
			expectedReply:   Reply{ResponseText: ReplyDashboard, Expression: dialog.ExpressionSpeaking, IsFinal: true},
			expectedPrewarm: 1,
		},
		{
			name:       "lead generation",
			classifier: classified(nlu.IntentLeadGeneration),
			expectedReply: Reply{
				ResponseText: "I understand you're interested in lead generation. I'll be able to help with that soon.",
				Expression:   dialog.ExpressionSpeaking,
			},
		},
		{
			name:       "marketing automation",
			classifier: classified(nlu.IntentMarketingAutomation),
			expectedReply: Reply{
				ResponseText: "I understand you're interested in marketing automation. I'll be able to help with that soon.",
				Expression:   dialog.ExpressionSpeaking,
			},
		},
		{
			name:          "unknown",
			classifier:    classified(nlu.IntentUnknown),
			expectedReply: Reply{ResponseText: ReplyUnknown, Expression: dialog.ExpressionThinking},
		},
		{
			name:          "intent the orchestrator has never heard of",
			classifier:    classified("weather_report"),
			expectedReply: Reply{ResponseText: ReplyUnknown, Expression: dialog.ExpressionThinking},
		},
		{
			name:          "classifier unavailable",
			classifier:    &stubClassifier{err: apperrors.NewClassifierUnavailableError(assert.AnError)},
			expectedReply: Reply{ResponseText: ReplyFailure, Expression: dialog.ExpressionThinking},
		},
		{
			name:          "classifier returns nothing",
			classifier:    &stubClassifier{},
			expectedReply: Reply{ResponseText: ReplyFailure, Expression: dialog.ExpressionThinking},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prewarmer := &stubPrewarmer{err: tt.prewarmErr}
			o := New(tt.classifier, prewarmer, logger.NewTestLogger(t))

			reply := o.Converse(context.Background(), "anything", "session-1")

			assert.Equal(t, tt.expectedReply, reply)
			assert.Equal(t, int32(1), atomic.LoadInt32(&tt.classifier.calls), "classifier is called exactly once")
			assert.Equal(t, tt.expectedPrewarm, atomic.LoadInt32(&prewarmer.calls))
		})
	}
}

func TestOrchestrator_Converse_NilPrewarmer(t *testing.T) {
	o := New(classified(nlu.IntentDashboardRequest), nil, logger.NewNoOpLogger())
	reply := o.Converse(context.Background(), "show me my dashboard", "")
	assert.True(t, reply.IsFinal)
}

// ==========================
// End-to-End Tests With HTTP Collaborators
// ==========================

func TestOrchestrator_Converse_ClassifierTimeoutSkipsPrewarm(t *testing.T) {
	release := make(chan struct{})
	nluServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer nluServer.Close()
	defer close(release)

	var prewarmCalls int32
	dashboardServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&prewarmCalls, 1)
	}))
	defer dashboardServer.Close()

	o := New(
		NewHTTPClassifier(nluServer.URL, 50*time.Millisecond),
		NewHTTPPrewarmer(dashboardServer.URL, time.Second),
		logger.NewTestLogger(t),
	)

	start := time.Now()
	reply := o.Converse(context.Background(), "show me my dashboard", "s-42")

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, Reply{ResponseText: ReplyFailure, Expression: dialog.ExpressionThinking}, reply)
	assert.Equal(t, int32(0), atomic.LoadInt32(&prewarmCalls))
}

func TestOrchestrator_Converse_RemoteDashboardRequest(t *testing.T) {
	nluServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req parseRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Show me my sales dashboard", req.Text)
		assert.Equal(t, "s-7", req.SessionID)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"intent":"dashboard_request","entities":[{"entity":"dashboard_type","value":"sales"}],"confidence":0.95}`))
	}))
	defer nluServer.Close()

	var prewarmCalls int32
	dashboardServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DashboardConfigPath, r.URL.Path)
		atomic.AddInt32(&prewarmCalls, 1)
		http.Error(w, "generator offline", http.StatusBadGateway)
	}))
	defer dashboardServer.Close()

	o := New(
		NewHTTPClassifier(nluServer.URL, time.Second),
		NewHTTPPrewarmer(dashboardServer.URL, time.Second),
		logger.NewTestLogger(t),
	)

	reply := o.Converse(context.Background(), "Show me my sales dashboard", "s-7")
	assert.Equal(t, ReplyDashboard, reply.ResponseText)
	assert.Equal(t, dialog.ExpressionSpeaking, reply.Expression)
	assert.True(t, reply.IsFinal)
	assert.Equal(t, int32(1), atomic.LoadInt32(&prewarmCalls))
}

func TestOrchestrator_Converse_LocalEngine(t *testing.T) {
	engine, err := nlu.NewDefaultEngine()
	require.NoError(t, err)
	o := New(NewLocalClassifier(engine), &stubPrewarmer{}, logger.NewNoOpLogger())

	tests := map[string]Reply{
		"Show me my marketing KPIs": {ResponseText: ReplyDashboard, Expression: dialog.ExpressionSpeaking, IsFinal: true},
		"find people in fintech":    {ResponseText: AcknowledgeIntent(nlu.IntentLeadGeneration), Expression: dialog.ExpressionSpeaking},
		"launch new campaigns":      {ResponseText: AcknowledgeIntent(nlu.IntentMarketingAutomation), Expression: dialog.ExpressionSpeaking},
		"what's the weather":        {ResponseText: ReplyUnknown, Expression: dialog.ExpressionThinking},
		"":                          {ResponseText: ReplyUnknown, Expression: dialog.ExpressionThinking},
	}
	for transcript, expected := range tests {
		assert.Equal(t, expected, o.Converse(context.Background(), transcript, ""), transcript)
	}
}

func TestOrchestrator_Converse_HungPrewarmIsCutOff(t *testing.T) {
	release := make(chan struct{})
	dashboardServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer dashboardServer.Close()
	defer close(release)

	o := New(
		classified(nlu.IntentDashboardRequest),
		NewHTTPPrewarmer(dashboardServer.URL, 100*time.Millisecond),
		logger.NewTestLogger(t),
	)

	start := time.Now()
	reply := o.Converse(context.Background(), "show me my dashboard", "s-9")
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, Reply{ResponseText: ReplyDashboard, Expression: dialog.ExpressionSpeaking, IsFinal: true}, reply)
}

// ==========================
// Metric Label Tests
// ==========================

func TestIntentLabel(t *testing.T) {
	tests := map[nlu.Intent]string{
		nlu.IntentDashboardRequest:    "dashboard_request",
		nlu.IntentLeadGeneration:      "lead_generation",
		nlu.IntentMarketingAutomation: "marketing_automation",
		nlu.IntentUnknown:             "unknown",
		"greeting":                    "other",
		"":                            "other",
	}
	for intent, expected := range tests {
		assert.Equal(t, expected, intentLabel(intent), string(intent))
	}
}

func TestOrchestrator_Converse_ForeignIntentUsesOtherLabel(t *testing.T) {
	classifiedBefore := testutil.ToFloat64(metrics.IntentsClassified.WithLabelValues("other"))
	turnsBefore := testutil.ToFloat64(metrics.TurnsTotal.WithLabelValues("intent", "other"))

	o := New(classified("order_pizza"), nil, logger.NewNoOpLogger())
	reply := o.Converse(context.Background(), "one margherita please", "")

	assert.Equal(t, ReplyUnknown, reply.ResponseText)
	assert.Equal(t, classifiedBefore+1, testutil.ToFloat64(metrics.IntentsClassified.WithLabelValues("other")))
	assert.Equal(t, turnsBefore+1, testutil.ToFloat64(metrics.TurnsTotal.WithLabelValues("intent", "other")))
	assert.False(t, metrics.IntentsClassified.DeleteLabelValues("order_pizza"), "raw intent must not become a label")
	assert.False(t, metrics.TurnsTotal.DeleteLabelValues("intent", "order_pizza"), "raw intent must not become a label")
}
