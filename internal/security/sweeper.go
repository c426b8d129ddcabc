package security

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper periodically invokes the engine's idle-session check so grace
// windows expire even when clients stop reporting. The lazy check on the
// next client event remains authoritative; this only bounds staleness.
type Sweeper struct {
	engine   *Engine
	interval time.Duration
	logger   zerolog.Logger
	stop     chan struct{}
	done     chan struct{}
}

// NewSweeper constructs a sweeper over the given engine.
func NewSweeper(engine *Engine, interval time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		engine:   engine,
		interval: interval,
		logger:   logger.With().Str("component", "security_sweeper").Logger(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop in its own goroutine.
func (s *Sweeper) Start() {
	go s.run()
}

// Stop terminates the loop and waits for the in-flight sweep to finish.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Sweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			actions, err := s.engine.Sweep(context.Background())
			if err != nil {
				s.logger.Warn().Err(err).Msg("idle session sweep failed")
				continue
			}
			if actions > 0 {
				s.logger.Info().Int("actions", actions).Msg("idle session sweep took actions")
			}
		}
	}
}
