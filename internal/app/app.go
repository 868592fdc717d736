// Package app wires configured capabilities and outer surfaces around a
// console controller. Capture and transcription stay in the daemon.
package app

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"jarvis/internal/bus"
	"jarvis/internal/config"
	"jarvis/internal/console"
	"jarvis/internal/display"
	"jarvis/internal/duck"
	"jarvis/internal/ipc"
	"jarvis/internal/notify"
	"jarvis/internal/reply"
	"jarvis/internal/speech"
)

// NewReplier returns the remote reply step, or nil for the echo-only setup.
func NewReplier(cfg *config.Config) (console.Replier, error) {
	if cfg.Backend == config.BackendNone {
		return nil, nil
	}

	httpClient, err := reply.NewClient(cfg.Proxy, cfg.ReplyTimeout)
	if err != nil {
		return nil, fmt.Errorf("proxy %s: %w", cfg.Proxy, err)
	}

	switch cfg.Backend {
	case config.BackendOpenAI:
		client := openai.NewClient(
			option.WithAPIKey(cfg.OpenAIKey),
			option.WithHTTPClient(httpClient),
		)
		log.Debug("Using OpenAI backend", "model", cfg.OpenAIModel)
		return reply.NewBreaker(reply.NewOpenAI(client, cfg.OpenAIModel), 3, 30*time.Second), nil
	default:
		h := reply.NewHTTP(cfg.BackendURL, reply.WithHTTPClient(httpClient))
		log.Debug("Using HTTP backend", "url", h.URL())
		return reply.NewBreaker(h, 3, 30*time.Second), nil
	}
}

// NewSynthesizer returns the configured speech output. A nil synthesizer means
// speech is unavailable. stop must be called on shutdown.
func NewSynthesizer(cfg *config.Config) (synth console.Synthesizer, stop func()) {
	stop = func() {}

	switch cfg.Speech {
	case config.SpeechNone:
		return nil, stop
	case config.SpeechSilent:
		return speech.NewSilent(speech.DefaultHold), stop
	}

	e := speech.NewEspeak(cfg.Voice, cfg.Rate)
	if !e.Available() {
		log.Warn("espeak-ng not found, speech output disabled")
		return nil, stop
	}
	if !cfg.Duck {
		return e, stop
	}

	d := speech.NewDucked(e, duck.NewDucker([]string{"espeak-ng", "espeak"}, 10), speech.DefaultDuckFactor, speech.DefaultFade)
	return d, d.Close
}

// Surfaces are the optional outputs and control channels around a controller.
type Surfaces struct {
	cfg  *config.Config
	view *display.View
	bus  *bus.Publisher
	ipc  *ipc.Server
}

func NewSurfaces(cfg *config.Config) *Surfaces {
	s := &Surfaces{cfg: cfg}
	if !cfg.NoScreen {
		s.view = display.NewView(os.Stdout, display.DefaultWidth, true)
	}
	if cfg.BusURL != "" {
		s.bus = bus.NewPublisher(bus.Config{URL: cfg.BusURL})
	}
	return s
}

// Options returns the observers and hooks the surfaces need.
func (s *Surfaces) Options() []console.Option {
	var opts []console.Option

	if s.view != nil {
		opts = append(opts, console.WithObserver(s.view.Update))
	}
	if s.bus != nil {
		opts = append(opts,
			console.WithObserver(s.bus.PublishState),
			console.WithResponseHook(s.bus.PublishResponse),
		)
	}
	if s.cfg.Chime != "" {
		opts = append(opts, console.WithObserver(chimeOnListen(s.cfg.Chime)))
	}

	return opts
}

// Start opens the control socket and the bus connection. They stop when ctx
// is done.
func (s *Surfaces) Start(ctx context.Context, c *console.Controller) error {
	handler := ipc.ControllerHandler(c)

	srv, err := ipc.StartServer(s.cfg.Socket, handler)
	if err != nil {
		return fmt.Errorf("control socket %s: %w", s.cfg.Socket, err)
	}
	s.ipc = srv
	log.Debug("Control socket ready", "path", s.cfg.Socket)

	if s.bus != nil {
		pub := s.bus
		pub.OnCommand(func(cmd, text string) {
			r := handler(ipc.ControlMessage{Cmd: cmd, Text: text})
			if !r.OK {
				log.Warn("Bus command rejected", "cmd", cmd, "err", r.Error)
			}
		})
		go pub.Run(ctx)
	}

	return nil
}

func (s *Surfaces) Close() {
	if s.ipc != nil {
		if err := s.ipc.Close(); err != nil {
			log.Debug("Control socket close", "err", err)
		}
	}
}

// Announce shows the unsupported-capability notice outside the terminal too.
func Announce(st console.State) {
	var missing []string
	if !st.RecognitionSupported {
		missing = append(missing, display.NoticeNoRecognition)
	}
	if !st.SynthesisSupported {
		missing = append(missing, display.NoticeNoSynthesis)
	}
	if len(missing) == 0 {
		return
	}

	body := strings.Join(missing, "\n")
	log.Warn("Capability unavailable", "notice", body)
	if err := notify.Desktop("Jarvis", body); err != nil {
		log.Debug("Desktop notice failed", "err", err)
	}
}

// chimeOnListen plays path each time listening turns on.
func chimeOnListen(path string) func(console.State) {
	var listening bool
	return func(st console.State) {
		if st.Listening && !listening {
			go func() {
				if err := notify.Chime(path); err != nil {
					log.Debug("Chime failed", "err", err)
				}
			}()
		}
		listening = st.Listening
	}
}
