// Package ipc is the local control channel between jarvis-ctl and the daemon:
// one JSON command per connection, one JSON reply back.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	log "log/slog"
	"net"
	"os"
	"sync"
	"time"

	"jarvis/internal/console"
)

const DefaultSocketPath = "/tmp/jarvis.sock"

const (
	CmdToggle = "toggle"
	CmdStart  = "start"
	CmdStop   = "stop"
	CmdMute   = "mute"
	CmdUnmute = "unmute"
	CmdSay    = "say"
	CmdStatus = "status"
)

var Commands = []string{CmdToggle, CmdStart, CmdStop, CmdMute, CmdUnmute, CmdSay, CmdStatus}

var ErrUnknownCommand = errors.New("unknown command")

type ControlMessage struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`
}

type Reply struct {
	OK    bool          `json:"ok"`
	Error string        `json:"error,omitempty"`
	State console.State `json:"state"`
}

type Handler func(ControlMessage) Reply

type Server struct {
	path string
	ln   net.Listener
	wg   sync.WaitGroup
}

// StartServer listens on a unix socket at path, replacing a stale socket file
// left by a previous run.
func StartServer(path string, handler Handler) (*Server, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	s := &Server{path: path, ln: ln}
	s.wg.Add(1)
	go s.serve(handler)

	return s, nil
}

func (s *Server) Close() error {
	err := s.ln.Close()
	s.wg.Wait()
	os.Remove(s.path)
	return err
}

func (s *Server) serve(handler Handler) {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("Accept failed", "err", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			handleConn(conn, handler)
		}()
	}
}

func handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(30 * time.Second))

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Debug("Bad control message", "err", err)
		_ = json.NewEncoder(conn).Encode(Reply{Error: "malformed message"})
		return
	}

	log.Debug("Control command", "cmd", msg.Cmd)

	if err := json.NewEncoder(conn).Encode(handler(msg)); err != nil {
		log.Debug("Failed to write reply", "err", err)
	}
}

func SendCommand(path, cmd, text string) (Reply, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(30 * time.Second))

	if err := json.NewEncoder(conn).Encode(ControlMessage{Cmd: cmd, Text: text}); err != nil {
		return Reply{}, fmt.Errorf("send: %w", err)
	}

	var r Reply
	if err := json.NewDecoder(conn).Decode(&r); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	if !r.OK && r.Error != "" {
		return r, errors.New(r.Error)
	}
	return r, nil
}
