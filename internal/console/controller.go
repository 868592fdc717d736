package console

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"time"
)

type Controller struct {
	rec          Recognizer
	synth        Synthesizer
	replier      Replier
	matcher      Matcher
	settle       time.Duration
	replyTimeout time.Duration
	now          func() time.Time
	observers    []func(State)
	hooks        []func(Response)

	box *mailbox

	// owned by the Run goroutine
	ctx       context.Context
	state     State
	session   uint64 // bumped on every start/stop of listening
	timerGen  uint64 // bumped whenever a pending resume must be invalidated
	seq       uint64 // last final fragment handed to the pipeline
	delivered uint64 // seq of the last response handed to the user
	utterance uint64 // id of the utterance currently given to the synthesizer
	inflight  int    // remote replies not yet returned
	resume    bool

	mu   sync.RWMutex
	snap State
}

func New(opts ...Option) *Controller {
	c := &Controller{
		settle:       DefaultSettleDelay,
		replyTimeout: DefaultReplyTimeout,
		now:          time.Now,
		box:          newMailbox(),
		ctx:          context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.state = State{
		TTSEnabled:           true,
		RecognitionSupported: c.rec != nil,
		SynthesisSupported:   c.synth != nil,
	}
	c.snap = c.state

	if c.rec != nil {
		c.rec.Bind(
			func(frags []Fragment) { c.box.push(resultEvent{frags: frags}) },
			func() { c.box.push(endEvent{}) },
		)
	}

	return c
}

// Run processes events until ctx is done. Listening is stopped and pending
// speech canceled on the way out.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	c.publish()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case <-c.box.ready:
			for _, ev := range c.box.drain() {
				c.handle(ev)
			}
			c.publish()
		}
	}
}

func (c *Controller) Toggle()     { c.box.push(toggleEvent{}) }
func (c *Controller) Start()      { c.box.push(startEvent{}) }
func (c *Controller) Stop()       { c.box.push(stopEvent{}) }
func (c *Controller) ToggleMute() { c.box.push(muteEvent{toggle: true}) }

func (c *Controller) SetMuted(muted bool) {
	c.box.push(muteEvent{muted: muted})
}

// Say feeds typed text through the response pipeline as a final fragment.
func (c *Controller) Say(text string) {
	c.box.push(sayEvent{text: text})
}

// Idle reports whether the console has nothing left to do for the input it
// has seen: no remote reply outstanding and nothing being spoken.
func (c *Controller) Idle(ctx context.Context) (bool, error) {
	reply := make(chan bool, 1)
	c.box.push(idleEvent{reply: reply})

	select {
	case idle := <-reply:
		return idle, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Sync waits until every action queued before it has been handled and returns
// the resulting state.
func (c *Controller) Sync(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	c.box.push(syncEvent{reply: reply})

	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
}

func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *Controller) handle(ev event) {
	switch e := ev.(type) {
	case toggleEvent:
		if c.state.Listening {
			c.stopListening()
		} else {
			c.startListening()
		}
	case startEvent:
		c.startListening()
	case stopEvent:
		c.stopListening()
	case muteEvent:
		muted := e.muted
		if e.toggle {
			muted = c.state.TTSEnabled
		}
		c.setMuted(muted)
	case resultEvent:
		c.onResult(e.frags)
	case endEvent:
		c.onEnd()
	case doneEvent:
		c.onSpeechDone(e.id)
	case resumeEvent:
		c.onResume(e.gen)
	case replyEvent:
		c.onReply(e)
	case sayEvent:
		c.onFinal(e.text)
	case syncEvent:
		e.reply <- c.state
	case idleEvent:
		e.reply <- !c.state.Speaking && c.inflight == 0
	default:
		log.Warn("Unknown console event", "event", fmt.Sprintf("%T", ev))
	}
}

func (c *Controller) startListening() {
	if c.rec == nil {
		log.Warn("Speech recognition unavailable, cannot start listening")
		return
	}
	if c.state.Listening {
		return
	}

	c.session++
	c.timerGen++
	c.state.Transcript = ""
	c.state.Interim = ""
	c.state.LastResponse = ""

	// the microphone opens once the current utterance has settled
	if c.state.Speaking {
		c.resume = true
	} else if err := c.rec.Start(); err != nil {
		log.Debug("Recognizer start ignored", "err", err)
	}
	c.state.Listening = true

	log.Info("Listening")
}

func (c *Controller) stopListening() {
	if !c.state.Listening {
		return
	}

	c.session++
	c.timerGen++
	c.resume = false

	if err := c.rec.Stop(); err != nil {
		log.Debug("Recognizer stop ignored", "err", err)
	}
	c.state.Listening = false
	c.state.Interim = ""

	c.cancelSpeech()
	c.state.Speaking = false

	log.Info("Stopped listening")
}

func (c *Controller) setMuted(muted bool) {
	c.state.TTSEnabled = !muted
	c.cancelSpeech()

	log.Info("Voice output", "enabled", c.state.TTSEnabled)
}

func (c *Controller) cancelSpeech() {
	if c.synth == nil {
		return
	}
	if err := c.synth.Cancel(); err != nil {
		log.Debug("Synthesizer cancel ignored", "err", err)
	}
}

func (c *Controller) onResult(frags []Fragment) {
	if c.state.Speaking {
		log.Debug("Dropped recognition result while speaking", "fragments", len(frags))
		return
	}
	if !c.state.Listening {
		log.Debug("Dropped recognition result while idle", "fragments", len(frags))
		return
	}

	var interim strings.Builder
	for _, f := range frags {
		if !f.Final {
			interim.WriteString(f.Text)
			continue
		}
		c.onFinal(f.Text)
	}
	c.state.Interim = interim.String()
}

func (c *Controller) onFinal(raw string) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return
	}

	c.state.Transcript = strings.TrimSpace(c.state.Transcript + " " + text)
	log.Info("Heard", "text", text)

	c.resolve(text)
}

func (c *Controller) onEnd() {
	if !c.state.Listening || c.state.Speaking {
		return
	}

	log.Debug("Recognition ended, restarting")
	if err := c.rec.Start(); err != nil {
		log.Debug("Recognizer restart ignored", "err", err)
	}
}

func (c *Controller) speak(text string) {
	if !c.state.TTSEnabled || c.synth == nil {
		return
	}

	// speaking must be set before the recognizer is stopped, its end event
	// would otherwise restart it
	c.state.Speaking = true
	c.resume = c.rec != nil && c.state.Listening
	if c.resume {
		if err := c.rec.Stop(); err != nil {
			log.Debug("Recognizer stop ignored", "err", err)
		}
	}

	c.timerGen++
	c.utterance++
	c.cancelSpeech()

	id := c.utterance
	err := c.synth.Speak(id, text, func(id uint64) {
		c.box.push(doneEvent{id: id})
	})
	if err != nil {
		log.Warn("Failed to speak", "err", err)
		c.state.Speaking = false
		if c.resume {
			c.resume = false
			if err := c.rec.Start(); err != nil {
				log.Debug("Recognizer start ignored", "err", err)
			}
		}
	}
}

func (c *Controller) onSpeechDone(id uint64) {
	if id != c.utterance {
		log.Debug("Ignored completion of superseded utterance", "id", id)
		return
	}

	if !c.resume {
		c.state.Speaking = false
		return
	}

	gen := c.timerGen
	time.AfterFunc(c.settle, func() {
		c.box.push(resumeEvent{gen: gen})
	})
}

func (c *Controller) onResume(gen uint64) {
	if gen != c.timerGen {
		log.Debug("Ignored stale resume", "gen", gen, "current", c.timerGen)
		return
	}

	c.state.Speaking = false
	c.resume = false
	if !c.state.Listening {
		return
	}

	if err := c.rec.Start(); err != nil {
		log.Debug("Recognizer start ignored", "err", err)
	}
}

func (c *Controller) shutdown() {
	if c.state.Listening {
		if err := c.rec.Stop(); err != nil {
			log.Debug("Recognizer stop ignored", "err", err)
		}
		c.state.Listening = false
	}
	c.cancelSpeech()
	c.state.Speaking = false
	c.publish()
}

func (c *Controller) publish() {
	c.mu.Lock()
	c.snap = c.state
	c.mu.Unlock()

	for _, fn := range c.observers {
		fn(c.state)
	}
}
