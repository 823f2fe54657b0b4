// Package checkpoint persists in-progress attempts so the agent can resume
// them after a restart.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stemsi/edutest/internal/config"
	"github.com/stemsi/edutest/internal/session"
)

const (
	fieldSubmissionID = "submission_id"
	fieldEndTime      = "end_time"
)

// RedisStore keeps each attempt in two keys: a meta hash and an answers hash
// whose values are JSON encoded.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore creates a RedisStore. Keys expire ttl after the last write.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// SaveAttempt records a freshly started attempt and drops any stale answers.
func (s *RedisStore) SaveAttempt(ctx context.Context, key session.AttemptKey, cp session.Checkpoint) error {
	metaKey := config.CacheKey.AttemptMetaKey(key.UserID, key.TestID)
	answersKey := config.CacheKey.AttemptAnswersKey(key.UserID, key.TestID)

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, answersKey)
		pipe.HSet(ctx, metaKey,
			fieldSubmissionID, cp.SubmissionID,
			fieldEndTime, cp.EndTime.UnixMilli(),
		)
		pipe.Expire(ctx, metaKey, s.ttl)
		for qid, v := range cp.Answers {
			raw, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode answer %s: %w", qid, err)
			}
			pipe.HSet(ctx, answersKey, qid, raw)
		}
		if len(cp.Answers) > 0 {
			pipe.Expire(ctx, answersKey, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}

// SaveAnswer stores one answer.
func (s *RedisStore) SaveAnswer(ctx context.Context, key session.AttemptKey, questionID string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode answer: %w", err)
	}
	answersKey := config.CacheKey.AttemptAnswersKey(key.UserID, key.TestID)

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, answersKey, questionID, raw)
		pipe.Expire(ctx, answersKey, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save answer: %w", err)
	}
	return nil
}

// Load returns the checkpoint for key, or nil when none exists.
func (s *RedisStore) Load(ctx context.Context, key session.AttemptKey) (*session.Checkpoint, error) {
	meta, err := s.rdb.HGetAll(ctx, config.CacheKey.AttemptMetaKey(key.UserID, key.TestID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get attempt meta: %w", err)
	}
	if len(meta) == 0 {
		return nil, nil
	}

	endMs, err := strconv.ParseInt(meta[fieldEndTime], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid end time in cache: %w", err)
	}

	raw, err := s.rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(key.UserID, key.TestID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get attempt answers: %w", err)
	}

	answers := make(map[string]any, len(raw))
	for qid, v := range raw {
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			return nil, fmt.Errorf("decode answer %s: %w", qid, err)
		}
		answers[qid] = decoded
	}

	return &session.Checkpoint{
		SubmissionID: meta[fieldSubmissionID],
		EndTime:      time.UnixMilli(endMs),
		Answers:      answers,
	}, nil
}

// Clear removes the checkpoint for key.
func (s *RedisStore) Clear(ctx context.Context, key session.AttemptKey) error {
	err := s.rdb.Del(ctx,
		config.CacheKey.AttemptMetaKey(key.UserID, key.TestID),
		config.CacheKey.AttemptAnswersKey(key.UserID, key.TestID),
	).Err()
	if err != nil {
		return fmt.Errorf("clear attempt: %w", err)
	}
	return nil
}
