package listen

import (
	"bufio"
	"io"
	log "log/slog"
	"strings"
	"sync"

	"jarvis/internal/console"
)

// Lines treats every non-blank line read from r as a final utterance. Each
// Start hands on at most one line and then ends the episode, so a line typed
// while a reply is spoken waits for the next Start.
type Lines struct {
	r    io.Reader
	once sync.Once
	done chan struct{}

	mu       sync.Mutex
	resumed  *sync.Cond
	active   bool
	closed   bool
	emitted  int
	onResult func([]console.Fragment)
	onEnd    func()
}

func NewLines(r io.Reader) *Lines {
	l := &Lines{
		r:        r,
		done:     make(chan struct{}),
		onResult: func([]console.Fragment) {},
		onEnd:    func() {},
	}
	l.resumed = sync.NewCond(&l.mu)
	return l
}

func (l *Lines) Bind(onResult func([]console.Fragment), onEnd func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onResult = onResult
	l.onEnd = onEnd
}

// Done is closed once the reader is exhausted.
func (l *Lines) Done() <-chan struct{} {
	return l.done
}

// Emitted counts the lines handed on as utterances.
func (l *Lines) Emitted() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.emitted
}

func (l *Lines) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if l.active {
		return ErrActive
	}
	l.active = true
	l.resumed.Broadcast()

	l.once.Do(func() { go l.read() })
	return nil
}

func (l *Lines) Stop() error {
	l.mu.Lock()
	if !l.active {
		l.mu.Unlock()
		return ErrIdle
	}
	l.active = false
	onEnd := l.onEnd
	l.mu.Unlock()

	onEnd()
	return nil
}

func (l *Lines) read() {
	sc := bufio.NewScanner(l.r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		l.mu.Lock()
		if !l.active {
			log.Debug("Holding input until listening resumes", "text", line)
		}
		for !l.active {
			l.resumed.Wait()
		}
		l.emitted++
		l.active = false
		onResult, onEnd := l.onResult, l.onEnd
		l.mu.Unlock()

		onResult([]console.Fragment{{Text: line, Final: true}})
		onEnd()
	}
	if err := sc.Err(); err != nil {
		log.Warn("Input read failed", "err", err)
	}

	l.mu.Lock()
	l.closed = true
	wasActive := l.active
	l.active = false
	onEnd := l.onEnd
	l.mu.Unlock()
	close(l.done)

	if wasActive {
		onEnd()
	}
}
