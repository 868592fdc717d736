package console

import "sync"

type event interface{}

type (
	resultEvent struct{ frags []Fragment }
	endEvent    struct{}
	doneEvent   struct{ id uint64 }
	resumeEvent struct{ gen uint64 }
	replyEvent  struct {
		session uint64
		seq     uint64
		prompt  string
		text    string
		err     error
	}
	startEvent  struct{}
	stopEvent   struct{}
	toggleEvent struct{}
	muteEvent   struct {
		toggle bool
		muted  bool
	}
	sayEvent  struct{ text string }
	syncEvent struct{ reply chan State }
	idleEvent struct{ reply chan bool }
)

// mailbox is an unbounded FIFO. Capabilities may call back synchronously from
// inside Start/Stop on the loop goroutine, so push must never block.
type mailbox struct {
	mu    sync.Mutex
	items []event
	ready chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

func (m *mailbox) push(ev event) {
	m.mu.Lock()
	m.items = append(m.items, ev)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

func (m *mailbox) drain() []event {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.items
	m.items = nil
	return items
}
