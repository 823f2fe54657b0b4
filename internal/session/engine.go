// Package session implements the timed test-taking engine: one student's
// attempt at one test from start to submission.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/edutest/internal/grading"
	"github.com/stemsi/edutest/internal/ledger"
	"github.com/stemsi/edutest/internal/model"
)

// Status is the lifecycle state of an attempt.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusSubmitting Status = "submitting"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// TestService is the remote collaborator the engine drives.
type TestService interface {
	GetTest(ctx context.Context, testID string) (*model.TestDefinition, error)
	StartTest(ctx context.Context, testID, password string) (*model.StartedAttempt, error)
	SubmitTest(ctx context.Context, testID string, answers []model.SubmitAnswer) (*model.SubmissionResult, error)
}

// Checkpoint is the persisted part of an in-progress attempt.
type Checkpoint struct {
	SubmissionID string
	EndTime      time.Time
	Answers      map[string]any
}

// AttemptKey names one student's attempt at one test.
type AttemptKey struct {
	UserID string
	TestID string
}

// Checkpointer mirrors an attempt so that it survives an agent restart.
type Checkpointer interface {
	SaveAttempt(ctx context.Context, key AttemptKey, cp Checkpoint) error
	SaveAnswer(ctx context.Context, key AttemptKey, questionID string, value any) error
	Load(ctx context.Context, key AttemptKey) (*Checkpoint, error)
	Clear(ctx context.Context, key AttemptKey) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithNotifier registers the event sink.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notify = n }
}

// WithCheckpointer enables attempt checkpointing.
func WithCheckpointer(cp Checkpointer) Option {
	return func(e *Engine) { e.cp = cp }
}

// WithOwner sets the student the attempt belongs to. Checkpoints are keyed by it.
func WithOwner(userID string) Option {
	return func(e *Engine) { e.owner = userID }
}

// WithTickInterval makes the engine run its own countdown after a successful
// start. Zero leaves ticking to the caller.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) { e.tickInterval = d }
}

// Engine owns one attempt. All methods are safe for concurrent use; state
// transitions are guarded under mu and network calls run outside it.
type Engine struct {
	mu sync.Mutex

	svc          TestService
	def          *model.TestDefinition
	owner        string
	ids          []string
	now          func() time.Time
	log          zerolog.Logger
	notify       Notifier
	cp           Checkpointer
	tickInterval time.Duration
	stopTicker   context.CancelFunc

	status       Status
	starting     bool
	submissionID string
	endTime      time.Time
	cursor       int
	answers      *ledger.Ledger
	spent        map[string]time.Duration
	visitStart   time.Time
	result       *model.SubmissionResult
	lastErr      error
	closed       bool
}

// New creates a not-started engine for def.
func New(def *model.TestDefinition, svc TestService, opts ...Option) *Engine {
	e := &Engine{
		svc:    svc,
		def:    def,
		ids:    def.QuestionIDs(),
		now:    time.Now,
		log:    zerolog.Nop(),
		status: StatusNotStarted,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With().
		Str("component", "session").
		Str("test_id", def.ID).
		Str("user_id", e.owner).
		Logger()
	e.resetAttempt()
	return e
}

func (e *Engine) resetAttempt() {
	e.status = StatusNotStarted
	e.submissionID = ""
	e.endTime = time.Time{}
	e.cursor = 0
	e.answers = ledger.New()
	e.spent = make(map[string]time.Duration, len(e.ids))
	e.result = nil
	e.lastErr = nil
}

// Key identifies the attempt in the checkpoint store.
func (e *Engine) Key() AttemptKey {
	return AttemptKey{UserID: e.owner, TestID: e.def.ID}
}

// Test returns the definition the engine was built for.
func (e *Engine) Test() *model.TestDefinition {
	return e.def
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Status returns the current status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Start begins the attempt. The password is forwarded to the service, never checked here.
func (e *Engine) Start(ctx context.Context, password string) error {
	e.mu.Lock()
	if err := e.checkStartLocked(password); err != nil {
		se, ok := err.(*StartError)
		if ok {
			e.lastErr = se
		}
		e.mu.Unlock()
		if ok {
			e.publish(e.event(EventStartFailed, false, se.Message))
		}
		return err
	}
	e.starting = true
	e.mu.Unlock()

	attempt, err := e.svc.StartTest(ctx, e.def.ID, password)

	e.mu.Lock()
	e.starting = false
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		se := newStartError(err)
		e.lastErr = se
		e.mu.Unlock()
		e.log.Warn().Err(err).Msg("Start rejected")
		e.publish(e.event(EventStartFailed, false, se.Message))
		return se
	}

	now := e.now()
	limit := attempt.TimeLimitMinutes
	if limit <= 0 {
		limit = e.def.TimeLimitMinutes
	}
	e.submissionID = attempt.SubmissionID
	e.endTime = now.Add(time.Duration(limit) * time.Minute)
	e.status = StatusInProgress
	e.visitStart = now
	e.lastErr = nil
	cp := Checkpoint{SubmissionID: e.submissionID, EndTime: e.endTime}
	e.mu.Unlock()

	e.log.Info().
		Str("submission_id", cp.SubmissionID).
		Time("end_time", cp.EndTime).
		Msg("Test started")

	if e.cp != nil {
		if err := e.cp.SaveAttempt(ctx, e.Key(), cp); err != nil {
			e.log.Warn().Err(err).Msg("Checkpoint save failed")
		}
	}
	e.publish(e.event(EventStarted, false, MsgStarted))
	e.startTicker()
	return nil
}

func (e *Engine) checkStartLocked(password string) error {
	if e.closed {
		return ErrClosed
	}
	if e.status != StatusNotStarted || e.starting {
		return ErrInvalidTransition
	}
	if !e.def.ActiveAt(e.now()) {
		return &StartError{Kind: ErrTestNotActive, Message: "This test is not currently available"}
	}
	if e.def.Settings.RequirePassword && password == "" {
		return &StartError{Kind: ErrInvalidPassword, Message: "This test requires a password"}
	}
	return nil
}

// Resume restores an in-progress attempt from a checkpoint. EndTime is taken
// as-is; it is never recomputed.
func (e *Engine) Resume(cp *Checkpoint) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.status != StatusNotStarted || e.starting {
		e.mu.Unlock()
		return ErrInvalidTransition
	}
	e.submissionID = cp.SubmissionID
	e.endTime = cp.EndTime
	e.answers = ledger.FromMap(cp.Answers)
	e.status = StatusInProgress
	e.visitStart = e.now()
	e.mu.Unlock()

	e.log.Info().
		Str("submission_id", cp.SubmissionID).
		Int("answers", len(cp.Answers)).
		Msg("Attempt resumed from checkpoint")
	e.startTicker()
	return nil
}

// Tick advances the countdown. When time has run out while in progress it
// submits automatically; every later tick is a no-op.
func (e *Engine) Tick(ctx context.Context, now time.Time) (Remaining, error) {
	e.mu.Lock()
	if e.closed || e.status != StatusInProgress {
		rem := e.remainingLocked(now)
		e.mu.Unlock()
		return rem, nil
	}
	rem := remaining(e.endTime, now)
	if !rem.Expired {
		e.mu.Unlock()
		ev := e.event(EventTick, false, "")
		ev.Remaining = &rem
		e.publish(ev)
		return rem, nil
	}
	payload := e.beginSubmitLocked(now)
	e.mu.Unlock()

	e.log.Info().Msg("Time expired, submitting automatically")
	// The submission settles even if the ticker is cancelled; a closed engine drops the outcome.
	return rem, e.finishSubmit(context.WithoutCancel(ctx), payload, true)
}

// Submit packages the ledger and sends it. Valid from in-progress, and from
// failed as the retry path. The status moves to submitting before the call.
func (e *Engine) Submit(ctx context.Context, auto bool) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.status != StatusInProgress && e.status != StatusFailed {
		e.mu.Unlock()
		return ErrInvalidTransition
	}
	payload := e.beginSubmitLocked(e.now())
	e.mu.Unlock()

	return e.finishSubmit(ctx, payload, auto)
}

func (e *Engine) beginSubmitLocked(now time.Time) []model.SubmitAnswer {
	e.flushDwellLocked(now)
	e.status = StatusSubmitting
	return e.payloadLocked()
}

func (e *Engine) finishSubmit(ctx context.Context, payload []model.SubmitAnswer, auto bool) error {
	e.publish(e.event(EventSubmitting, auto, ""))

	result, err := e.svc.SubmitTest(ctx, e.def.ID, payload)

	// An accepted submission must never be resumed, closed engine or not.
	if err == nil && e.cp != nil {
		if err := e.cp.Clear(context.WithoutCancel(ctx), e.Key()); err != nil {
			e.log.Warn().Err(err).Msg("Checkpoint clear failed")
		}
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.log.Debug().Msg("Discarding submission outcome for closed session")
		return ErrClosed
	}
	if err != nil {
		se := newSubmitError(err, auto)
		e.status = StatusFailed
		e.lastErr = se
		e.mu.Unlock()
		e.log.Error().Err(err).Bool("auto", auto).Msg("Submission failed")
		e.publish(e.event(EventSubmitFailed, auto, se.Message))
		return se
	}
	e.status = StatusCompleted
	e.result = result
	e.lastErr = nil
	e.mu.Unlock()

	e.log.Info().
		Bool("auto", auto).
		Float64("score", result.Score).
		Float64("total_points", result.TotalPoints).
		Msg("Test submitted")

	msg := MsgSubmitted
	if auto {
		msg = MsgAutoSubmitted
	}
	ev := e.event(EventSubmitted, auto, msg)
	view := grading.Project(result, e.def.Settings)
	ev.Result = &view
	e.publish(ev)
	return nil
}

// payloadLocked lists every slot once, in slot order. Untouched slots send "".
func (e *Engine) payloadLocked() []model.SubmitAnswer {
	out := make([]model.SubmitAnswer, len(e.ids))
	for i, id := range e.ids {
		var answer any = ""
		if v, ok := e.answers.Get(id); ok && v != nil {
			answer = v
		}
		out[i] = model.SubmitAnswer{
			QuestionID: id,
			Answer:     answer,
			TimeSpent:  int(e.spent[id] / time.Second),
		}
	}
	return out
}

// SetAnswer records the student's answer for questionID.
func (e *Engine) SetAnswer(ctx context.Context, questionID string, value any) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.status != StatusInProgress {
		e.mu.Unlock()
		return ErrAnswersFrozen
	}
	if !e.hasQuestion(questionID) {
		e.mu.Unlock()
		return ErrUnknownQuestion
	}
	e.answers.Set(questionID, value)
	e.mu.Unlock()

	if e.cp != nil {
		if err := e.cp.SaveAnswer(ctx, e.Key(), questionID, value); err != nil {
			e.log.Warn().Err(err).Str("question_id", questionID).Msg("Checkpoint answer failed")
		}
	}
	return nil
}

// Answer returns the recorded answer for questionID.
func (e *Engine) Answer(questionID string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.answers.Get(questionID)
}

func (e *Engine) hasQuestion(id string) bool {
	for _, qid := range e.ids {
		if qid == id {
			return true
		}
	}
	return false
}

// Navigate moves the cursor by delta. Targets outside the slot range are ignored.
func (e *Engine) Navigate(delta int) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.goToLocked(e.cursor + delta)
}

// GoTo moves the cursor to index. Out-of-range indexes are ignored.
func (e *Engine) GoTo(index int) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.goToLocked(index)
}

func (e *Engine) goToLocked(index int) (int, bool) {
	if index < 0 || index >= len(e.ids) || index == e.cursor {
		return e.cursor, false
	}
	e.flushDwellLocked(e.now())
	e.cursor = index
	return e.cursor, true
}

// flushDwellLocked credits the time since the last visit to the current slot.
func (e *Engine) flushDwellLocked(now time.Time) {
	if e.status != StatusInProgress || len(e.ids) == 0 {
		return
	}
	if d := now.Sub(e.visitStart); d > 0 {
		e.spent[e.ids[e.cursor]] += d
	}
	e.visitStart = now
}

// UnansweredCount is the number of slots without a ledger entry.
func (e *Engine) UnansweredCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.answers.UnansweredCount(e.ids)
}

// HasUnanswered reports whether a manual submit should be confirmed first.
func (e *Engine) HasUnanswered() bool {
	return e.UnansweredCount() > 0
}

// Result returns the submission result once completed.
func (e *Engine) Result() (*model.SubmissionResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result, e.result != nil
}

// Err returns the last start or submit failure.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Reset abandons a failed attempt and returns to not-started.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.status != StatusFailed {
		e.mu.Unlock()
		return ErrInvalidTransition
	}
	e.resetAttempt()
	e.mu.Unlock()

	if e.cp != nil {
		if err := e.cp.Clear(ctx, e.Key()); err != nil {
			e.log.Warn().Err(err).Msg("Checkpoint clear failed")
		}
	}
	e.publish(e.event(EventReset, false, ""))
	return nil
}

// Close tears the engine down. The ticker stops and late service responses are dropped.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	stop := e.stopTicker
	e.stopTicker = nil
	e.mu.Unlock()

	if stop != nil {
		stop()
	}
	e.publish(e.event(EventClosed, false, ""))
}

// Closed reports whether Close was called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Engine) event(kind EventKind, auto bool, msg string) Event {
	return Event{
		Kind:    kind,
		TestID:  e.def.ID,
		Status:  e.Status(),
		Auto:    auto,
		Message: msg,
		At:      e.now(),
	}
}

func (e *Engine) publish(ev Event) {
	if e.notify != nil {
		e.notify(ev)
	}
}

func (e *Engine) startTicker() {
	if e.tickInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		cancel()
		return
	}
	if e.stopTicker != nil {
		e.stopTicker()
	}
	e.stopTicker = cancel
	e.mu.Unlock()

	t := NewTicker(e, e.tickInterval, e.log)
	go t.Run(ctx)
}

// IsFailure reports whether err is a start or submit failure the student should see.
func IsFailure(err error) bool {
	var start *StartError
	var submit *SubmitError
	return errors.As(err, &start) || errors.As(err, &submit)
}
