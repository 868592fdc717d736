// Package speech holds the synthesizers the console speaks through.
package speech

import (
	"context"
	"errors"
	log "log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

const (
	DefaultVoice = "en-us"
	DefaultRate  = 175
)

var ErrEmptyText = errors.New("nothing to say")

// Espeak speaks every utterance through its own espeak-ng process, so a
// running utterance can be cut off by killing it.
type Espeak struct {
	bin  string
	args func(text string) []string

	mu      sync.Mutex
	current uint64
	cancel  context.CancelFunc
}

func NewEspeak(voice string, rate int) *Espeak {
	if voice == "" {
		voice = DefaultVoice
	}
	if rate <= 0 {
		rate = DefaultRate
	}

	return &Espeak{
		bin: "espeak-ng",
		args: func(text string) []string {
			return []string{"-v", voice, "-s", strconv.Itoa(rate), "--", text}
		},
	}
}

// Available reports whether the espeak-ng binary can be found.
func (e *Espeak) Available() bool {
	_, err := exec.LookPath(e.bin)
	return err == nil
}

func (e *Espeak) Speak(id uint64, text string, onDone func(id uint64)) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, e.bin, e.args(text)...)
	if err := cmd.Start(); err != nil {
		cancel()
		return err
	}

	e.current = id
	e.cancel = cancel

	go func() {
		err := cmd.Wait()
		if err != nil && ctx.Err() == nil {
			log.Warn("Speech failed", "id", id, "err", err)
		}

		e.mu.Lock()
		if e.current == id && e.cancel != nil {
			e.cancel = nil
		}
		e.mu.Unlock()

		cancel()
		onDone(id)
	}()

	return nil
}

func (e *Espeak) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	return nil
}

// Speaking reports whether an utterance is still playing.
func (e *Espeak) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancel != nil
}
