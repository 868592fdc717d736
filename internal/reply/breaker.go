package reply

import (
	"context"
	log "log/slog"
	"time"

	"github.com/sony/gobreaker"
)

type Replier interface {
	Reply(ctx context.Context, prompt string) (string, error)
}

// Breaker stops calling a backend that keeps failing. While open every Reply
// fails at once with gobreaker.ErrOpenState, so the console answers with the
// echo instead of waiting out the timeout on each utterance.
type Breaker struct {
	next Replier
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker opens after failures consecutive errors and probes again after
// cooldown.
func NewBreaker(next Replier, failures uint32, cooldown time.Duration) *Breaker {
	if failures == 0 {
		failures = 3
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "jarvis-backend",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Backend circuit changed", "from", from.String(), "to", to.String())
		},
	})

	return &Breaker{next: next, cb: cb}
}

func (b *Breaker) Reply(ctx context.Context, prompt string) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Reply(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// Backend returns the wrapped replier.
func (b *Breaker) Backend() Replier {
	return b.next
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
