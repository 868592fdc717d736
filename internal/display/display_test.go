package display

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"jarvis/internal/console"
)

func supported(s console.State) console.State {
	s.RecognitionSupported = true
	s.SynthesisSupported = true
	s.TTSEnabled = true
	return s
}

func TestRenderStatus(t *testing.T) {
	assert.Contains(t, Render(supported(console.State{}), 0), "Idle")
	assert.Contains(t, Render(supported(console.State{Listening: true}), 0), "Listening…")
	assert.Contains(t, Render(supported(console.State{Listening: true, Speaking: true}), 0), "Speaking…")
	assert.Contains(t, Render(console.State{RecognitionSupported: true, SynthesisSupported: true}, 0), "speech muted")
}

func TestRenderTranscriptAndResponse(t *testing.T) {
	out := Render(supported(console.State{
		Listening:    true,
		Transcript:   "what time is it",
		Interim:      "and the",
		LastResponse: "It's 09:05 PM.",
	}), 60)

	assert.Contains(t, out, "what time is it and the")
	assert.Contains(t, out, "It's 09:05 PM.")
	assert.NotContains(t, out, NoticeNoRecognition)
	assert.NotContains(t, out, "(no response yet)")

	empty := Render(supported(console.State{}), 60)
	assert.Contains(t, empty, "(say something)")
	assert.Contains(t, empty, "(no response yet)")
}

func TestRenderNotices(t *testing.T) {
	out := Render(console.State{TTSEnabled: true}, 200)
	assert.Contains(t, out, NoticeNoRecognition)
	assert.Contains(t, out, NoticeNoSynthesis)
}

func TestRenderIsPure(t *testing.T) {
	s := supported(console.State{Transcript: "hello", LastResponse: "Hello. How can I assist you today?"})
	assert.Equal(t, Render(s, 50), Render(s, 50))
}

func TestRenderWraps(t *testing.T) {
	out := Render(supported(console.State{Transcript: strings.Repeat("word ", 40)}), 30)
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len([]rune(line)), 30, line)
	}
}

func TestViewSkipsUnchangedFrames(t *testing.T) {
	var buf bytes.Buffer
	v := NewView(&buf, 40, false)

	s := supported(console.State{Listening: true})
	v.Update(s)
	v.Update(s)
	assert.Equal(t, 1, strings.Count(buf.String(), "JARVIS"))

	s.Transcript = "hello"
	v.Update(s)
	assert.Equal(t, 2, strings.Count(buf.String(), "JARVIS"))

	buf.Reset()
	NewView(&buf, 40, true).Update(s)
	assert.True(t, strings.HasPrefix(buf.String(), "\x1b[H\x1b[2J"))
}
