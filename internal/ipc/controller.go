package ipc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jarvis/internal/console"
)

// Console is the part of the controller the socket drives.
type Console interface {
	Toggle()
	Start()
	Stop()
	SetMuted(muted bool)
	Say(text string)
	Sync(ctx context.Context) (console.State, error)
}

// ControllerHandler maps socket commands onto console actions. Every reply
// carries the state after the action has been handled.
func ControllerHandler(c Console) Handler {
	return func(msg ControlMessage) Reply {
		switch strings.ToLower(strings.TrimSpace(msg.Cmd)) {
		case CmdToggle:
			c.Toggle()
		case CmdStart:
			c.Start()
		case CmdStop:
			c.Stop()
		case CmdMute:
			c.SetMuted(true)
		case CmdUnmute:
			c.SetMuted(false)
		case CmdSay:
			text := strings.TrimSpace(msg.Text)
			if text == "" {
				return failure(c, fmt.Errorf("say: empty text"))
			}
			c.Say(text)
		case CmdStatus:
		default:
			return failure(c, fmt.Errorf("%w: %q", ErrUnknownCommand, msg.Cmd))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		st, err := c.Sync(ctx)
		if err != nil {
			return Reply{Error: err.Error(), State: st}
		}
		return Reply{OK: true, State: st}
	}
}

func failure(c Console, err error) Reply {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	st, _ := c.Sync(ctx)
	return Reply{Error: err.Error(), State: st}
}
