package console

import (
	"context"
	log "log/slog"
	"strings"
)

// Echo is the reply used when neither the local rules nor the remote service
// produced one.
func Echo(text string) string {
	return "Got it: " + text
}

// resolve runs local match, then remote reply, then echo for one final
// fragment. The remote branch continues on the event loop as a replyEvent.
func (c *Controller) resolve(text string) {
	c.seq++
	seq := c.seq

	if c.matcher != nil {
		if reply, ok := c.matcher.Match(text, c.now()); ok {
			c.deliver(Response{Text: reply, Source: SourceLocal, Seq: seq})
			return
		}
	}

	if c.replier == nil {
		c.deliver(Response{Text: Echo(text), Source: SourceEcho, Seq: seq})
		return
	}

	c.inflight++
	session := c.session
	parent := c.ctx
	go func() {
		ctx, cancel := context.WithTimeout(parent, c.replyTimeout)
		defer cancel()

		reply, err := c.replier.Reply(ctx, text)
		c.box.push(replyEvent{
			session: session,
			seq:     seq,
			prompt:  text,
			text:    reply,
			err:     err,
		})
	}()
}

func (c *Controller) onReply(e replyEvent) {
	c.inflight--

	if e.session != c.session {
		log.Debug("Dropped reply from previous session", "seq", e.seq)
		return
	}
	if e.seq < c.delivered {
		log.Debug("Dropped stale reply", "seq", e.seq, "delivered", c.delivered)
		return
	}

	if e.err != nil {
		log.Warn("Remote reply failed", "err", e.err)
	}

	reply := strings.TrimSpace(e.text)
	if e.err != nil || reply == "" {
		c.deliver(Response{Text: Echo(e.prompt), Source: SourceEcho, Seq: e.seq})
		return
	}

	c.deliver(Response{Text: reply, Source: SourceRemote, Seq: e.seq})
}

func (c *Controller) deliver(r Response) {
	c.delivered = r.Seq
	c.state.LastResponse = r.Text

	log.Info("Reply", "source", r.Source, "text", r.Text)
	for _, fn := range c.hooks {
		fn(r)
	}

	c.speak(r.Text)
}
