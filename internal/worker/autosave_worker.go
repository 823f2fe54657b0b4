package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/edutest/internal/config"
	"github.com/stemsi/edutest/internal/session"
)

// AutosaveWorker takes answer checkpoints off the request path. It wraps a
// session.Checkpointer: SaveAnswer is queued, every other call waits for the
// queue ahead of it so writes for one attempt stay ordered.
type AutosaveWorker struct {
	store   session.Checkpointer
	queue   chan job
	mu      sync.RWMutex
	closed  bool
	retries int
	backoff time.Duration
	log     zerolog.Logger
}

type job struct {
	key        session.AttemptKey
	questionID string
	run        func(ctx context.Context) error
	done       chan error
}

// NewAutosaveWorker creates a new AutosaveWorker in front of store.
func NewAutosaveWorker(store session.Checkpointer, log zerolog.Logger) *AutosaveWorker {
	return &AutosaveWorker{
		store:   store,
		queue:   make(chan job, config.WorkerKey.AutosaveQueueSize),
		retries: config.WorkerKey.AutosaveRetries,
		backoff: 200 * time.Millisecond,
		log:     log.With().Str("component", "autosave_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *AutosaveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.mu.Lock()
			w.closed = true
			w.mu.Unlock()
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		case j := <-w.queue:
			w.process(ctx, j)
		}
	}
}

func (w *AutosaveWorker) process(ctx context.Context, j job) {
	if j.done != nil {
		j.done <- j.run(ctx)
		return
	}

	var err error
	for attempt := 0; attempt <= w.retries; attempt++ {
		if err = j.run(ctx); err == nil {
			return
		}
		w.log.Warn().Err(err).
			Str("user_id", j.key.UserID).
			Str("test_id", j.key.TestID).
			Str("question_id", j.questionID).
			Int("attempt", attempt+1).
			Msg("Autosave failed")
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.backoff * time.Duration(attempt+1)):
		}
	}
	w.log.Error().Err(err).
		Str("user_id", j.key.UserID).
		Str("test_id", j.key.TestID).
		Str("question_id", j.questionID).
		Msg("Autosave dropped")
}

// drain processes all remaining items in the queue before shutdown.
func (w *AutosaveWorker) drain(ctx context.Context) {
	drained := 0
	for {
		select {
		case j := <-w.queue:
			if j.done != nil {
				j.done <- j.run(ctx)
			} else if err := j.run(ctx); err != nil {
				w.log.Error().Err(err).Str("test_id", j.key.TestID).Msg("Drain autosave error")
			}
			drained++
		default:
			if drained > 0 {
				w.log.Info().Int("count", drained).Msg("Drained remaining items")
			}
			return
		}
	}
}

// SaveAnswer queues the write and returns immediately. It writes inline once
// the worker has stopped or the queue is full.
func (w *AutosaveWorker) SaveAnswer(ctx context.Context, key session.AttemptKey, questionID string, value any) error {
	j := job{
		key:        key,
		questionID: questionID,
		run: func(ctx context.Context) error {
			return w.store.SaveAnswer(ctx, key, questionID, value)
		},
	}
	if w.enqueue(j) {
		return nil
	}
	return j.run(ctx)
}

func (w *AutosaveWorker) SaveAttempt(ctx context.Context, key session.AttemptKey, cp session.Checkpoint) error {
	return w.await(ctx, key, func(ctx context.Context) error {
		return w.store.SaveAttempt(ctx, key, cp)
	})
}

func (w *AutosaveWorker) Load(ctx context.Context, key session.AttemptKey) (*session.Checkpoint, error) {
	var cp *session.Checkpoint
	err := w.await(ctx, key, func(ctx context.Context) error {
		var err error
		cp, err = w.store.Load(ctx, key)
		return err
	})
	return cp, err
}

func (w *AutosaveWorker) Clear(ctx context.Context, key session.AttemptKey) error {
	return w.await(ctx, key, func(ctx context.Context) error {
		return w.store.Clear(ctx, key)
	})
}

func (w *AutosaveWorker) enqueue(j job) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	select {
	case w.queue <- j:
		return true
	default:
		return false
	}
}

// await runs fn behind everything already queued.
func (w *AutosaveWorker) await(ctx context.Context, key session.AttemptKey, fn func(ctx context.Context) error) error {
	j := job{key: key, run: fn, done: make(chan error, 1)}
	if !w.enqueue(j) {
		return fn(ctx)
	}
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
