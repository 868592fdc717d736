// Package console implements the voice console: it listens through a
// Recognizer, resolves a reply for every final utterance and speaks it through
// a Synthesizer, keeping the microphone closed while the assistant talks.
//
// All state transitions run on the goroutine that calls Run. Capability
// callbacks and user actions only enqueue events.
package console

import (
	"context"
	"time"
)

const (
	DefaultSettleDelay  = 250 * time.Millisecond
	DefaultReplyTimeout = 20 * time.Second
)

// Fragment is a single recognition result.
type Fragment struct {
	Text  string
	Final bool
}

// Recognizer is a speech recognition capability. It may end its stream on its
// own (silence, timeouts); the console restarts it while listening.
type Recognizer interface {
	Start() error
	Stop() error
	Bind(onResult func([]Fragment), onEnd func())
}

// Synthesizer renders text to speech. onDone must be called exactly once for
// every utterance Speak accepted, including canceled ones.
type Synthesizer interface {
	Speak(id uint64, text string, onDone func(id uint64)) error
	Cancel() error
}

// Replier is the remote step of the response pipeline.
type Replier interface {
	Reply(ctx context.Context, prompt string) (string, error)
}

// Matcher is the local step of the response pipeline.
type Matcher interface {
	Match(text string, now time.Time) (string, bool)
}

type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
	SourceEcho   Source = "echo"
)

type Response struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
	Seq    uint64 `json:"seq"`
}

// State is what the console shows to the user.
type State struct {
	Listening  bool `json:"listening"`
	Speaking   bool `json:"speaking"`
	TTSEnabled bool `json:"tts_enabled"`

	Transcript   string `json:"transcript"`
	Interim      string `json:"interim,omitempty"`
	LastResponse string `json:"last_response"`

	RecognitionSupported bool `json:"recognition_supported"`
	SynthesisSupported   bool `json:"synthesis_supported"`
}

func (s State) Status() string {
	switch {
	case !s.Listening:
		return "Idle"
	case s.Speaking:
		return "Speaking…"
	default:
		return "Listening…"
	}
}

type Option func(*Controller)

func WithRecognizer(r Recognizer) Option {
	return func(c *Controller) { c.rec = r }
}

func WithSynthesizer(s Synthesizer) Option {
	return func(c *Controller) { c.synth = s }
}

func WithReplier(r Replier) Option {
	return func(c *Controller) { c.replier = r }
}

func WithMatcher(m Matcher) Option {
	return func(c *Controller) { c.matcher = m }
}

// WithSettleDelay sets the pause between the end of speech and reopening the
// microphone.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Controller) { c.settle = d }
}

func WithReplyTimeout(d time.Duration) Option {
	return func(c *Controller) { c.replyTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithObserver registers a function called on the event loop after every
// handled event. Observers must not block.
func WithObserver(fn func(State)) Option {
	return func(c *Controller) { c.observers = append(c.observers, fn) }
}

// WithResponseHook registers a function called for every delivered response.
func WithResponseHook(fn func(Response)) Option {
	return func(c *Controller) { c.hooks = append(c.hooks, fn) }
}
