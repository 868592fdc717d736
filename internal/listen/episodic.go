// Package listen provides recognizers for the voice console.
package listen

import (
	"context"
	"errors"
	"io"
	log "log/slog"
	"sync"
	"time"

	"jarvis/internal/console"
)

var (
	ErrActive = errors.New("recognition already started")
	ErrIdle   = errors.New("recognition not started")
	ErrClosed = errors.New("recognition input closed")
)

// Capturer records one utterance. It returns when the speaker falls silent
// or ctx is canceled. An error wrapping io.EOF means no more input will come.
type Capturer interface {
	Capture(ctx context.Context) ([]float32, error)
}

// Transcriber turns 16 kHz mono PCM into text. onSegment, when non-nil,
// receives partial text as it is decoded.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32, onSegment func(string)) (string, error)
}

// Episodic runs one capture and transcription per Start, then reports the end
// of the stream, much like a browser recognizer that times out on silence.
type Episodic struct {
	capturer    Capturer
	transcriber Transcriber
	retryDelay  time.Duration

	mu       sync.Mutex
	closed   bool
	episode  uint64
	cancel   context.CancelFunc
	onResult func([]console.Fragment)
	onEnd    func()
}

func NewEpisodic(c Capturer, t Transcriber) *Episodic {
	return &Episodic{
		capturer:    c,
		transcriber: t,
		retryDelay:  time.Second,
		onResult:    func([]console.Fragment) {},
		onEnd:       func() {},
	}
}

func (e *Episodic) Bind(onResult func([]console.Fragment), onEnd func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onResult = onResult
	e.onEnd = onEnd
}

func (e *Episodic) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if e.cancel != nil {
		return ErrActive
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.episode++
	e.cancel = cancel

	go e.run(ctx, e.episode, e.onResult, e.onEnd)
	return nil
}

func (e *Episodic) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel == nil {
		return ErrIdle
	}
	e.cancel()
	e.cancel = nil
	return nil
}

func (e *Episodic) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancel != nil
}

func (e *Episodic) run(ctx context.Context, id uint64, onResult func([]console.Fragment), onEnd func()) {
	defer func() {
		e.mu.Lock()
		if e.episode == id && e.cancel != nil {
			e.cancel()
			e.cancel = nil
		}
		e.mu.Unlock()
		onEnd()
	}()

	pcm, err := e.capturer.Capture(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, io.EOF) {
			log.Info("Input exhausted")
			e.mu.Lock()
			e.closed = true
			e.mu.Unlock()
			return
		}
		log.Warn("Capture failed", "err", err)
		e.pause(ctx)
		return
	}
	if len(pcm) == 0 || ctx.Err() != nil {
		return
	}

	log.Debug("Captured", "samples", len(pcm))

	text, err := e.transcriber.Transcribe(ctx, pcm, func(seg string) {
		if ctx.Err() == nil {
			onResult([]console.Fragment{{Text: seg}})
		}
	})
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Warn("Transcription failed", "err", err)
		return
	}

	onResult([]console.Fragment{{Text: text, Final: true}})
}

// pause keeps a failing device from spinning the restart loop.
func (e *Episodic) pause(ctx context.Context) {
	t := time.NewTimer(e.retryDelay)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
