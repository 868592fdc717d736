package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/internal/config"
	"jarvis/internal/console"
	"jarvis/internal/intent"
	"jarvis/internal/ipc"
	"jarvis/internal/reply"
	"jarvis/internal/speech"
)

func TestNewReplier(t *testing.T) {
	r, err := NewReplier(&config.Config{Backend: config.BackendNone})
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = NewReplier(&config.Config{Backend: config.BackendHTTP, BackendURL: "http://backend:9000/", ReplyTimeout: time.Second})
	require.NoError(t, err)
	require.IsType(t, &reply.Breaker{}, r)
	backend := r.(*reply.Breaker).Backend()
	require.IsType(t, &reply.HTTP{}, backend)
	assert.Equal(t, "http://backend:9000/api/jarvis", backend.(*reply.HTTP).URL())

	r, err = NewReplier(&config.Config{Backend: config.BackendOpenAI, OpenAIKey: "sk-test", ReplyTimeout: time.Second})
	require.NoError(t, err)
	require.IsType(t, &reply.Breaker{}, r)
	assert.IsType(t, &reply.OpenAI{}, r.(*reply.Breaker).Backend())
}

func TestNewSynthesizer(t *testing.T) {
	s, stop := NewSynthesizer(&config.Config{Speech: config.SpeechNone})
	assert.Nil(t, s)
	stop()

	s, stop = NewSynthesizer(&config.Config{Speech: config.SpeechSilent})
	assert.IsType(t, &speech.Silent{}, s)
	stop()
}

func TestChimeOnListenOnlyOnTransition(t *testing.T) {
	observe := chimeOnListen(filepath.Join(t.TempDir(), "missing.mp3"))
	observe(console.State{})
	observe(console.State{Listening: true})
	observe(console.State{Listening: true, Speaking: true})
	observe(console.State{})
}

func TestSurfacesDriveController(t *testing.T) {
	cfg := &config.Config{
		Socket:   filepath.Join(t.TempDir(), "jarvis.sock"),
		NoScreen: true,
	}
	s := NewSurfaces(cfg)
	assert.Empty(t, s.Options())

	c := console.New(append(s.Options(), console.WithMatcher(intent.Default()))...)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.NoError(t, s.Start(ctx, c))
	defer s.Close()

	r, err := ipc.SendCommand(cfg.Socket, ipc.CmdSay, "who are you")
	require.NoError(t, err)
	assert.Equal(t, intent.Identity, r.State.LastResponse)

	r, err = ipc.SendCommand(cfg.Socket, ipc.CmdMute, "")
	require.NoError(t, err)
	assert.False(t, r.State.TTSEnabled)
}
