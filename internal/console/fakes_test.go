package console

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errActive = errors.New("recognition already started")

type fakeRecognizer struct {
	mu       sync.Mutex
	active   bool
	starts   int
	stops    int
	onResult func([]Fragment)
	onEnd    func()
}

func (f *fakeRecognizer) Bind(onResult func([]Fragment), onEnd func()) {
	f.onResult = onResult
	f.onEnd = onEnd
}

func (f *fakeRecognizer) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active {
		return errActive
	}
	f.active = true
	f.starts++
	return nil
}

// Stop behaves like the browser engine: the end callback follows a stop.
func (f *fakeRecognizer) Stop() error {
	f.mu.Lock()
	if !f.active {
		f.mu.Unlock()
		return errors.New("recognition not started")
	}
	f.active = false
	f.stops++
	f.mu.Unlock()

	f.onEnd()
	return nil
}

func (f *fakeRecognizer) emit(frags ...Fragment) {
	f.onResult(frags)
}

func (f *fakeRecognizer) end() {
	f.mu.Lock()
	f.active = false
	f.mu.Unlock()
	f.onEnd()
}

func (f *fakeRecognizer) isActive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeRecognizer) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

type fakeSynth struct {
	mu      sync.Mutex
	spoken  []string
	pending map[uint64]func(uint64)
	last    uint64
	cancels int
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{pending: make(map[uint64]func(uint64))}
}

func (f *fakeSynth) Speak(id uint64, text string, onDone func(uint64)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	f.pending[id] = onDone
	f.last = id
	return nil
}

func (f *fakeSynth) Cancel() error {
	f.mu.Lock()
	f.cancels++
	pending := f.pending
	f.pending = make(map[uint64]func(uint64))
	f.mu.Unlock()

	for id, done := range pending {
		done(id)
	}
	return nil
}

// finish completes the most recent utterance.
func (f *fakeSynth) finish() {
	f.mu.Lock()
	id := f.last
	done, ok := f.pending[id]
	delete(f.pending, id)
	f.mu.Unlock()

	if ok {
		done(id)
	}
}

func (f *fakeSynth) said() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

func (f *fakeSynth) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

type replierFunc func(ctx context.Context, prompt string) (string, error)

func (fn replierFunc) Reply(ctx context.Context, prompt string) (string, error) {
	return fn(ctx, prompt)
}

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
	settle  = 20 * time.Millisecond
)

func runController(t *testing.T, opts ...Option) *Controller {
	t.Helper()

	c := New(opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c
}
