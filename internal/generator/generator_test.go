// internal/generator/generator_test.go
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-assistant/internal/nlu"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func createTestGenerator(t *testing.T, seed uint64) *Generator {
	t.Helper()
	g, err := NewDefault(newTestRand(seed))
	require.NoError(t, err)
	return g
}

var placeholderRe = regexp.MustCompile(`\{[a-z_]+\}`)

// ==========================
// Core Functionality Tests
// ==========================

func TestGenerator_SpansMatchValues(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		g := createTestGenerator(t, seed)
		samples, err := g.Generate(200)
		require.NoError(t, err)
		require.Len(t, samples, 200)

		for _, s := range samples {
			assert.NotContains(t, s.Text, "{", "placeholder left in %q", s.Text)
			textLen := len([]rune(s.Text))
			for _, e := range s.Entities {
				require.NotNil(t, e.Span)
				assert.True(t, e.Span.Start >= 0 && e.Span.Start <= e.Span.End && e.Span.End <= textLen)
				got, ok := e.Span.Slice(s.Text)
				assert.True(t, ok)
				assert.Equal(t, e.Value, got, "sentence %q", s.Text)
			}
		}
	}
}

func TestGenerator_EveryPlaceholderOccurrenceRecorded(t *testing.T) {
	sets := []TemplateSet{
		{Intent: "compare", Templates: []string{"{city} vs {city} vs {size} {city}"}},
	}
	pools := []nlu.Pool{
		{Entity: "city", Values: []string{"Paris", "São Paulo", "NYC"}},
		{Entity: "size", Values: []string{"big", "tiny"}},
	}
	g, err := New(sets, pools, newTestRand(7))
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		s, err := g.Sentence("compare")
		require.NoError(t, err)
		require.Len(t, s.Entities, 4)
		assert.Equal(t, []string{"city", "city", "size", "city"}, entityNames(s.Entities))

		prevEnd := 0
		for _, e := range s.Entities {
			got, ok := e.Span.Slice(s.Text)
			require.True(t, ok)
			assert.Equal(t, e.Value, got)
			assert.GreaterOrEqual(t, e.Span.Start, prevEnd, "spans are left to right")
			prevEnd = e.Span.End
		}
	}
}

func TestGenerator_DefaultTemplatesSubstituteAllPlaceholders(t *testing.T) {
	g := createTestGenerator(t, 42)
	for _, set := range DefaultTemplates {
		for i := 0; i < 40; i++ {
			s, err := g.Sentence(set.Intent)
			require.NoError(t, err)
			assert.Equal(t, set.Intent, s.Intent)
			assert.False(t, placeholderRe.MatchString(s.Text))
		}
	}
}

func TestGenerator_TemplateWithoutPlaceholders(t *testing.T) {
	g, err := New([]TemplateSet{{Intent: "x", Templates: []string{"find more leads"}}}, nil, newTestRand(1))
	require.NoError(t, err)

	s, err := g.Sentence("x")
	require.NoError(t, err)
	assert.Equal(t, "find more leads", s.Text)
	assert.Empty(t, s.Entities)
}

func TestGenerator_Deterministic(t *testing.T) {
	a, err := createTestGenerator(t, 99).Generate(30)
	require.NoError(t, err)
	b, err := createTestGenerator(t, 99).Generate(30)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerator_CoversAllIntents(t *testing.T) {
	g := createTestGenerator(t, 3)
	samples, err := g.Generate(300)
	require.NoError(t, err)

	seen := map[nlu.Intent]bool{}
	for _, s := range samples {
		seen[s.Intent] = true
	}
	for _, intent := range g.Intents() {
		assert.True(t, seen[intent], "intent %s never generated", intent)
	}
}

// ==========================
// Configuration Error Tests
// ==========================

func TestNew_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name        string
		sets        []TemplateSet
		pools       []nlu.Pool
		expectedErr error
	}{
		{
			name:        "unknown placeholder",
			sets:        []TemplateSet{{Intent: "x", Templates: []string{"hello {planet}"}}},
			pools:       nlu.DefaultPools,
			expectedErr: ErrUnknownPlaceholder,
		},
		{
			name:        "unterminated placeholder",
			sets:        []TemplateSet{{Intent: "x", Templates: []string{"hello {industry"}}},
			pools:       nlu.DefaultPools,
			expectedErr: ErrMalformedTemplate,
		},
		{
			name:        "empty placeholder",
			sets:        []TemplateSet{{Intent: "x", Templates: []string{"hello {}"}}},
			pools:       nlu.DefaultPools,
			expectedErr: ErrMalformedTemplate,
		},
		{
			name:        "empty pool",
			sets:        []TemplateSet{{Intent: "x", Templates: []string{"{a}"}}},
			pools:       []nlu.Pool{{Entity: "a"}},
			expectedErr: ErrUnknownPlaceholder,
		},
		{
			name:        "intent without templates",
			sets:        []TemplateSet{{Intent: "x"}},
			pools:       nlu.DefaultPools,
			expectedErr: ErrNoTemplates,
		},
		{
			name:        "no template sets",
			pools:       nlu.DefaultPools,
			expectedErr: ErrNoTemplates,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.sets, tt.pools, newTestRand(1))
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestGenerator_UnknownIntent(t *testing.T) {
	g := createTestGenerator(t, 1)
	_, err := g.Sentence("weather_report")
	assert.ErrorIs(t, err, ErrUnknownIntent)

	_, err = g.Generate(-1)
	assert.Error(t, err)
}

// ==========================
// Output Format Tests
// ==========================

func TestSample_MarshalJSON(t *testing.T) {
	s := Sample{
		Text:   "get me a list of CTOs in Europe",
		Intent: nlu.IntentLeadGeneration,
		Entities: []nlu.Entity{
			{Name: "role", Value: "CTOs", Span: &nlu.Span{Start: 17, End: 21}},
			{Name: "location", Value: "Europe", Span: &nlu.Span{Start: 25, End: 31}},
		},
	}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"text": "get me a list of CTOs in Europe",
		"intent": "lead_generation",
		"entities": [[17, 21, "ROLE"], [25, 31, "LOCATION"]]
	}`, string(data))

	data, err = json.Marshal(Sample{Text: "find more leads", Intent: nlu.IntentLeadGeneration})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text": "find more leads", "intent": "lead_generation", "entities": []}`, string(data))
}

func TestJSONLSink_Write(t *testing.T) {
	g := createTestGenerator(t, 5)
	samples, err := g.Generate(25)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewJSONLSink(&buf).Write(context.Background(), samples))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 25)
	for i, line := range lines {
		var rec struct {
			Text     string          `json:"text"`
			Intent   string          `json:"intent"`
			Entities [][]interface{} `json:"entities"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		assert.Equal(t, samples[i].Text, rec.Text)
		assert.Equal(t, string(samples[i].Intent), rec.Intent)
		require.Len(t, rec.Entities, len(samples[i].Entities))
		for j, triple := range rec.Entities {
			require.Len(t, triple, 3)
			start, end := int(triple[0].(float64)), int(triple[1].(float64))
			assert.Equal(t, strings.ToUpper(samples[i].Entities[j].Name), triple[2])
			assert.Equal(t, samples[i].Entities[j].Value, string([]rune(rec.Text)[start:end]))
		}
	}
}

func TestJSONLSink_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := NewJSONLSink(&buf).Write(ctx, []Sample{{Text: "x", Intent: "y"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPostgresSink_Write(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	samples := []Sample{
		{Text: "find more leads", Intent: nlu.IntentLeadGeneration},
		{
			Text:     "show me my sales dashboard",
			Intent:   nlu.IntentDashboardRequest,
			Entities: []nlu.Entity{{Name: "dashboard_type", Value: "sales", Span: &nlu.Span{Start: 11, End: 16}}},
		},
	}

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(insertSampleQuery))
	prep.ExpectExec().
		WithArgs(sqlmock.AnyArg(), "find more leads", "lead_generation", []byte(`[]`), fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs(sqlmock.AnyArg(), "show me my sales dashboard", "dashboard_request", []byte(`[[11,16,"DASHBOARD_TYPE"]]`), fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sink := NewPostgresSink(db)
	sink.now = func() time.Time { return fixed }
	require.NoError(t, sink.Write(context.Background(), samples))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSink_InsertFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(insertSampleQuery))
	prep.ExpectExec().WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = NewPostgresSink(db).Write(context.Background(), []Sample{{Text: "x", Intent: "y"}})
	assert.ErrorIs(t, err, ErrSinkWriteFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMultiSink_StopsAtFirstFailure(t *testing.T) {
	var buf bytes.Buffer
	failing := sinkFunc(func(context.Context, []Sample) error { return assert.AnError })
	calls := 0
	counting := sinkFunc(func(context.Context, []Sample) error { calls++; return nil })

	err := MultiSink{NewJSONLSink(&buf), failing, counting}.Write(context.Background(), []Sample{{Text: "a", Intent: "b"}})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, calls)
	assert.NotEmpty(t, buf.String())
}

type sinkFunc func(context.Context, []Sample) error

func (f sinkFunc) Write(ctx context.Context, s []Sample) error { return f(ctx, s) }

func entityNames(entities []nlu.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Name
	}
	return out
}
