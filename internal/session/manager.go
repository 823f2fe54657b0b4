package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ManagerConfig tunes the engines a Manager creates.
type ManagerConfig struct {
	TickInterval time.Duration
	Clock        func() time.Time
}

// Manager keeps one engine per open attempt and fans engine events out to
// subscribers. Engines are keyed by student as well as test, so a checkpoint
// only ever resumes for the student who started it.
type Manager struct {
	mu      sync.Mutex
	svc     TestService
	cp      Checkpointer
	cfg     ManagerConfig
	log     zerolog.Logger
	engines map[AttemptKey]*Engine
	hub     *Hub
}

// NewManager creates a Manager. cp may be nil.
func NewManager(svc TestService, cp Checkpointer, cfg ManagerConfig, log zerolog.Logger) *Manager {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Manager{
		svc:     svc,
		cp:      cp,
		cfg:     cfg,
		log:     log.With().Str("component", "session_manager").Logger(),
		engines: make(map[AttemptKey]*Engine),
		hub:     NewHub(),
	}
}

// Open returns the engine for userID's attempt at testID, fetching the test
// and creating a not-started engine on first use. A checkpointed attempt is
// resumed.
func (m *Manager) Open(ctx context.Context, userID, testID string) (*Engine, error) {
	key := AttemptKey{UserID: userID, TestID: testID}

	m.mu.Lock()
	if e, ok := m.engines[key]; ok {
		m.mu.Unlock()
		return e, nil
	}
	m.mu.Unlock()

	def, err := m.svc.GetTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}

	e := New(def, m.svc,
		WithOwner(userID),
		WithClock(m.cfg.Clock),
		WithLogger(m.log),
		WithNotifier(func(ev Event) { m.hub.Publish(key, ev) }),
		WithCheckpointer(m.cp),
		WithTickInterval(m.cfg.TickInterval),
	)

	m.mu.Lock()
	if existing, ok := m.engines[key]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.engines[key] = e
	m.mu.Unlock()

	if m.cp != nil {
		cp, err := m.cp.Load(ctx, key)
		if err != nil {
			m.log.Warn().Err(err).Str("test_id", testID).Msg("Checkpoint load failed")
		} else if cp != nil {
			if err := e.Resume(cp); err != nil {
				m.log.Warn().Err(err).Str("test_id", testID).Msg("Checkpoint resume failed")
			}
		}
	}
	return e, nil
}

// Get returns userID's open engine for testID.
func (m *Manager) Get(userID, testID string) (*Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.engines[AttemptKey{UserID: userID, TestID: testID}]
	if !ok {
		return nil, ErrNoSession
	}
	return e, nil
}

// Close tears down userID's engine for testID.
func (m *Manager) Close(userID, testID string) {
	key := AttemptKey{UserID: userID, TestID: testID}
	m.mu.Lock()
	e, ok := m.engines[key]
	delete(m.engines, key)
	m.mu.Unlock()

	if ok {
		e.Close()
	}
}

// CloseAll tears down every engine. It runs on shutdown and whenever the
// signed-in student changes.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	engines := m.engines
	m.engines = make(map[AttemptKey]*Engine)
	m.mu.Unlock()

	if len(engines) > 0 {
		m.log.Info().Int("count", len(engines)).Msg("Closing open attempts")
	}
	for _, e := range engines {
		e.Close()
	}
}

// Subscribe registers for events of userID's attempt at testID.
func (m *Manager) Subscribe(userID, testID string) (<-chan Event, func()) {
	return m.hub.Subscribe(AttemptKey{UserID: userID, TestID: testID})
}
