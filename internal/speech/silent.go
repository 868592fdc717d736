package speech

import (
	log "log/slog"
	"sync"
	"time"
)

const DefaultHold = 500 * time.Millisecond

// Silent logs utterances instead of playing them. Each one lasts Hold, which
// lets the console's speaking state be observed without audio hardware.
type Silent struct {
	Hold time.Duration

	mu      sync.Mutex
	pending map[uint64]*time.Timer
	done    map[uint64]func(uint64)
}

func NewSilent(hold time.Duration) *Silent {
	return &Silent{
		Hold:    hold,
		pending: make(map[uint64]*time.Timer),
		done:    make(map[uint64]func(uint64)),
	}
}

func (s *Silent) Speak(id uint64, text string, onDone func(id uint64)) error {
	log.Info("Jarvis says", "text", text)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.done[id] = onDone
	s.pending[id] = time.AfterFunc(s.Hold, func() { s.finish(id) })
	return nil
}

func (s *Silent) Cancel() error {
	s.mu.Lock()
	ids := make([]uint64, 0, len(s.pending))
	for id, t := range s.pending {
		if t.Stop() {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.finish(id)
	}
	return nil
}

func (s *Silent) finish(id uint64) {
	s.mu.Lock()
	onDone, ok := s.done[id]
	delete(s.done, id)
	delete(s.pending, id)
	s.mu.Unlock()

	if ok {
		onDone(id)
	}
}
