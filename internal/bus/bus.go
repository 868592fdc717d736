// Package bus mirrors console activity onto a websocket hub and accepts
// control commands addressed to the console from it.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	log "log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"jarvis/internal/console"
)

const (
	KindState    = "state"
	KindResponse = "response"
	KindCommand  = "command"

	DefaultShard  = "jarvis"
	DefaultTarget = "ALL"
	DefaultReconn = 2 * time.Second

	queueSize = 32
)

type Message struct {
	From    string         `json:"from"`
	To      string         `json:"to"`
	Kind    string         `json:"kind"`
	Content string         `json:"content"`
	Text    string         `json:"text,omitempty"`
	State   *console.State `json:"state,omitempty"`
}

type Config struct {
	URL    string
	Shard  string
	To     string
	Reconn time.Duration

	// OnCommand receives commands sent to Shard, e.g. {"kind":"command","content":"toggle"}.
	OnCommand func(cmd, text string)
}

type Publisher struct {
	cfg    Config
	dialer *ws.Dialer

	mu  sync.Mutex
	out []Message
	ch  chan struct{}
}

func NewPublisher(cfg Config) *Publisher {
	if cfg.Shard == "" {
		cfg.Shard = DefaultShard
	}
	if cfg.To == "" {
		cfg.To = DefaultTarget
	}
	if cfg.Reconn <= 0 {
		cfg.Reconn = DefaultReconn
	}

	return &Publisher{
		cfg:    cfg,
		dialer: ws.DefaultDialer,
		ch:     make(chan struct{}, 1),
	}
}

// OnCommand replaces the command callback. Call it before Run.
func (p *Publisher) OnCommand(fn func(cmd, text string)) {
	p.cfg.OnCommand = fn
}

// PublishState queues a state change. It never blocks; when the hub is slow
// or away the oldest queued messages are dropped.
func (p *Publisher) PublishState(s console.State) {
	p.enqueue(Message{Kind: KindState, Content: s.Status(), State: &s})
}

func (p *Publisher) PublishResponse(r console.Response) {
	p.enqueue(Message{Kind: KindResponse, Content: string(r.Source), Text: r.Text})
}

func (p *Publisher) enqueue(m Message) {
	m.From = p.cfg.Shard
	m.To = p.cfg.To

	p.mu.Lock()
	p.out = append(p.out, m)
	if over := len(p.out) - queueSize; over > 0 {
		p.out = p.out[over:]
	}
	p.mu.Unlock()

	select {
	case p.ch <- struct{}{}:
	default:
	}
}

func (p *Publisher) take() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := p.out
	p.out = nil
	return out
}

// Run keeps a connection to the hub until ctx is done, reconnecting every
// Reconn after a failure.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		conn, _, err := p.dialer.DialContext(ctx, p.cfg.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Debug("Failed to dial bus", "url", p.cfg.URL, "err", err)
		} else {
			log.Info("Connected to bus", "url", p.cfg.URL)
			err = p.serve(ctx, conn)
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("Bus connection lost", "url", p.cfg.URL, "err", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.cfg.Reconn):
		}
	}
}

func (p *Publisher) serve(ctx context.Context, conn *ws.Conn) error {
	defer conn.Close()

	readErr := make(chan error, 1)
	go func() { readErr <- p.read(conn) }()

	for {
		select {
		case <-ctx.Done():
			msg := ws.FormatCloseMessage(ws.CloseNormalClosure, "")
			_ = conn.WriteControl(ws.CloseMessage, msg, time.Now().Add(time.Second))
			return ctx.Err()
		case err := <-readErr:
			return err
		case <-p.ch:
			for _, m := range p.take() {
				if err := conn.WriteJSON(m); err != nil {
					return err
				}
			}
		}
	}
}

func (p *Publisher) read(conn *ws.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if IsClosed(err) {
				return errors.New("closed by hub")
			}
			return err
		}

		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			log.Warn("Failed to parse bus message", "msg", string(data), "err", err)
			continue
		}

		if m.To != p.cfg.Shard || m.Kind != KindCommand {
			continue
		}
		log.Debug("Bus command", "from", m.From, "cmd", m.Content)
		if p.cfg.OnCommand != nil {
			p.cfg.OnCommand(m.Content, m.Text)
		}
	}
}

func IsClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
