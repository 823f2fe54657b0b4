package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/edutest/internal/config"
	"github.com/stemsi/edutest/internal/session"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, ttl), mr
}

var t1 = session.AttemptKey{UserID: "stu-1", TestID: "t1"}

func stores(t *testing.T) map[string]session.Checkpointer {
	rs, _ := newRedisStore(t, time.Hour)
	return map[string]session.Checkpointer{
		"redis":  rs,
		"memory": NewMemoryStore(),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	end := time.Date(2026, 5, 4, 11, 0, 0, 0, time.UTC)

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			cp, err := store.Load(ctx, t1)
			require.NoError(t, err)
			assert.Nil(t, cp)

			require.NoError(t, store.SaveAttempt(ctx, t1, session.Checkpoint{SubmissionID: "sub-1", EndTime: end}))
			require.NoError(t, store.SaveAnswer(ctx, t1, "q1", "Paris"))
			require.NoError(t, store.SaveAnswer(ctx, t1, "q2", true))
			require.NoError(t, store.SaveAnswer(ctx, t1, "q1", "Lyon"))

			cp, err = store.Load(ctx, t1)
			require.NoError(t, err)
			require.NotNil(t, cp)
			assert.Equal(t, "sub-1", cp.SubmissionID)
			assert.True(t, end.Equal(cp.EndTime))
			assert.Equal(t, map[string]any{"q1": "Lyon", "q2": true}, cp.Answers)

			require.NoError(t, store.Clear(ctx, t1))
			cp, err = store.Load(ctx, t1)
			require.NoError(t, err)
			assert.Nil(t, cp)
		})
	}
}

func TestStore_KeyedByStudent(t *testing.T) {
	ctx := context.Background()
	other := session.AttemptKey{UserID: "stu-2", TestID: "t1"}

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.SaveAttempt(ctx, t1, session.Checkpoint{SubmissionID: "sub-1", EndTime: time.Now()}))
			require.NoError(t, store.SaveAnswer(ctx, t1, "q1", "A"))

			cp, err := store.Load(ctx, other)
			require.NoError(t, err)
			assert.Nil(t, cp)

			require.NoError(t, store.Clear(ctx, other))
			cp, err = store.Load(ctx, t1)
			require.NoError(t, err)
			require.NotNil(t, cp)
			assert.Equal(t, "A", cp.Answers["q1"])
		})
	}
}

func TestRedisStore_NewAttemptDropsStaleAnswers(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Hour)

	require.NoError(t, store.SaveAnswer(ctx, t1, "q1", "old"))
	require.NoError(t, store.SaveAttempt(ctx, t1, session.Checkpoint{SubmissionID: "sub-2", EndTime: time.Now()}))

	assert.False(t, mr.Exists(config.CacheKey.AttemptAnswersKey("stu-1", "t1")))
	cp, err := store.Load(ctx, t1)
	require.NoError(t, err)
	assert.Empty(t, cp.Answers)
}

func TestRedisStore_Expires(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Minute)

	require.NoError(t, store.SaveAttempt(ctx, t1, session.Checkpoint{SubmissionID: "sub-1", EndTime: time.Now()}))
	require.NoError(t, store.SaveAnswer(ctx, t1, "q1", []string{"a", "b"}))

	mr.FastForward(2 * time.Minute)

	cp, err := store.Load(ctx, t1)
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestRedisStore_DecodesListAnswers(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t, time.Hour)

	require.NoError(t, store.SaveAttempt(ctx, t1, session.Checkpoint{SubmissionID: "s", EndTime: time.Now()}))
	require.NoError(t, store.SaveAnswer(ctx, t1, "q1", []string{"a", "b"}))

	cp, err := store.Load(ctx, t1)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, cp.Answers["q1"])
}
