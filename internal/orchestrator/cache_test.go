package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-assistant/internal/common/logger"
	"voice-assistant/internal/nlu"
)

// ==========================
// Test Helper Functions
// ==========================

func leadClassification() *Classification {
	return &Classification{
		Intent:     nlu.IntentLeadGeneration,
		Entities:   []nlu.Entity{{Name: "industry", Value: "fintech"}},
		Confidence: 0.92,
	}
}

// ==========================
// redismock Tests
// ==========================

func TestCachedClassifier_MissStoresResult(t *testing.T) {
	db, mock := redismock.NewClientMock()
	next := &stubClassifier{result: leadClassification()}
	c := NewCachedClassifier(next, db, time.Minute, "", logger.NewTestLogger(t))

	key := c.CacheKey("find leads in fintech")
	payload, err := json.Marshal(leadClassification())
	require.NoError(t, err)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, payload, time.Minute).SetVal("OK")

	got, err := c.Classify(context.Background(), "find leads in fintech", "s")
	require.NoError(t, err)
	assert.Equal(t, leadClassification(), got)
	assert.Equal(t, int32(1), next.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedClassifier_HitSkipsClassifier(t *testing.T) {
	db, mock := redismock.NewClientMock()
	next := &stubClassifier{err: errors.New("must not be called")}
	c := NewCachedClassifier(next, db, time.Minute, "", logger.NewTestLogger(t))

	payload, err := json.Marshal(leadClassification())
	require.NoError(t, err)
	mock.ExpectGet(c.CacheKey("find leads in fintech")).SetVal(string(payload))

	got, err := c.Classify(context.Background(), "find leads in fintech", "s")
	require.NoError(t, err)
	assert.Equal(t, leadClassification(), got)
	assert.Equal(t, int32(0), next.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedClassifier_RedisDownFallsThrough(t *testing.T) {
	db, mock := redismock.NewClientMock()
	next := &stubClassifier{result: leadClassification()}
	c := NewCachedClassifier(next, db, time.Minute, "", logger.NewTestLogger(t))

	key := c.CacheKey("find leads")
	payload, err := json.Marshal(leadClassification())
	require.NoError(t, err)
	mock.ExpectGet(key).SetErr(errors.New("connection refused"))
	mock.ExpectSet(key, payload, time.Minute).SetErr(errors.New("connection refused"))

	got, err := c.Classify(context.Background(), "find leads", "s")
	require.NoError(t, err)
	assert.Equal(t, leadClassification(), got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedClassifier_ErrorsAreNotCached(t *testing.T) {
	db, mock := redismock.NewClientMock()
	next := &stubClassifier{err: assert.AnError}
	c := NewCachedClassifier(next, db, time.Minute, "", logger.NewTestLogger(t))

	mock.ExpectGet(c.CacheKey("hello")).RedisNil()

	_, err := c.Classify(context.Background(), "hello", "s")
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedClassifier_CacheKey(t *testing.T) {
	c := NewCachedClassifier(nil, nil, time.Minute, "", logger.NewNoOpLogger())

	a := c.CacheKey("Show me my  dashboard")
	b := c.CacheKey("  show ME my dashboard ")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c.CacheKey("show me my leads"))
	assert.Regexp(t, `^nlu:intent:[0-9a-f]{64}$`, a)

	custom := NewCachedClassifier(nil, nil, time.Minute, "test:", logger.NewNoOpLogger())
	assert.Regexp(t, `^test:`, custom.CacheKey("x"))
}

// ==========================
// miniredis Tests
// ==========================

func TestCachedClassifier_TTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	next := &stubClassifier{result: leadClassification()}
	c := NewCachedClassifier(next, rdb, 10*time.Second, "", logger.NewTestLogger(t))
	ctx := context.Background()

	_, err := c.Classify(ctx, "find leads in fintech", "")
	require.NoError(t, err)
	_, err = c.Classify(ctx, "Find leads in FINTECH", "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), next.calls)

	key := c.CacheKey("find leads in fintech")
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 10*time.Second, mr.TTL(key))

	mr.FastForward(11 * time.Second)
	_, err = c.Classify(ctx, "find leads in fintech", "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls)
}

func TestCachedClassifier_CorruptEntryIsReplaced(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	next := &stubClassifier{result: leadClassification()}
	c := NewCachedClassifier(next, rdb, time.Minute, "", logger.NewTestLogger(t))
	key := c.CacheKey("find leads")
	require.NoError(t, mr.Set(key, "not json"))

	got, err := c.Classify(context.Background(), "find leads", "")
	require.NoError(t, err)
	assert.Equal(t, nlu.IntentLeadGeneration, got.Intent)

	stored, err := mr.Get(key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"intent":"lead_generation","entities":[{"entity":"industry","value":"fintech"}],"confidence":0.92}`, stored)
}
