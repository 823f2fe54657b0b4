package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Ticker drives an engine's countdown on a fixed cadence. It stops as soon as
// the engine leaves in-progress, is closed, or ctx is cancelled.
type Ticker struct {
	engine   *Engine
	interval time.Duration
	log      zerolog.Logger
}

// NewTicker creates a Ticker for e.
func NewTicker(e *Engine, interval time.Duration, log zerolog.Logger) *Ticker {
	return &Ticker{
		engine:   e,
		interval: interval,
		log:      log.With().Str("component", "ticker").Logger(),
	}
}

// Run blocks until the ticker stops. Call in a goroutine.
func (t *Ticker) Run(ctx context.Context) {
	tk := time.NewTicker(t.interval)
	defer tk.Stop()

	t.log.Debug().Dur("interval", t.interval).Msg("Ticker started")
	defer t.log.Debug().Msg("Ticker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			if t.engine.Closed() || t.engine.Status() != StatusInProgress {
				return
			}
			rem, err := t.engine.Tick(ctx, t.engine.Now())
			if err != nil {
				t.log.Warn().Err(err).Msg("Automatic submission failed")
			}
			if rem.Expired {
				return
			}
		}
	}
}
