package speech

import (
	"context"
	log "log/slog"
	"sync"
	"time"

	"jarvis/internal/console"
)

const (
	DefaultDuckFactor = 0.3
	DefaultFade       = 150 * time.Millisecond
)

// Ducker lowers and restores the volume of other applications.
type Ducker interface {
	DuckOthers(ctx context.Context, factor float64, duration time.Duration) error
	UnduckOthers(ctx context.Context, duration time.Duration) error
}

// Ducked wraps a synthesizer and keeps other audio quiet while it talks.
// Volume changes run on their own goroutine in the order they were requested.
type Ducked struct {
	console.Synthesizer

	ducker Ducker
	factor float64
	fade   time.Duration

	mu      sync.Mutex
	closed  bool
	pending int // accepted utterances not yet done
	ops     chan bool
	done    chan struct{}
}

func NewDucked(inner console.Synthesizer, d Ducker, factor float64, fade time.Duration) *Ducked {
	s := &Ducked{
		Synthesizer: inner,
		ducker:      d,
		factor:      factor,
		fade:        fade,
		ops:         make(chan bool, 64),
		done:        make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Ducked) Speak(id uint64, text string, onDone func(id uint64)) error {
	s.track(1)

	err := s.Synthesizer.Speak(id, text, func(id uint64) {
		s.track(-1)
		onDone(id)
	})
	if err != nil {
		s.track(-1)
	}
	return err
}

// track ducks on the first pending utterance and restores after the last.
func (s *Ducked) track(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.pending
	s.pending = max(s.pending+delta, 0)
	if s.closed {
		return
	}

	switch {
	case before == 0 && s.pending > 0:
		s.ops <- true
	case before > 0 && s.pending == 0:
		s.ops <- false
	}
}

// Close restores other streams and stops the volume goroutine.
func (s *Ducked) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.ops <- false
	s.closed = true
	close(s.ops)
	s.mu.Unlock()

	<-s.done
}

func (s *Ducked) loop() {
	defer close(s.done)

	for duck := range s.ops {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		var err error
		if duck {
			err = s.ducker.DuckOthers(ctx, s.factor, s.fade)
		} else {
			err = s.ducker.UnduckOthers(ctx, s.fade)
		}
		cancel()

		if err != nil {
			log.Debug("Ducking failed", "duck", duck, "err", err)
		}
	}
}
