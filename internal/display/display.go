// Package display renders the console state for a terminal.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"jarvis/internal/console"
)

const (
	colorPrimary = "#7C3AED"
	colorSuccess = "#10B981"
	colorWarning = "#F59E0B"
	colorMuted   = "#9CA3AF"

	DefaultWidth = 72

	NoticeNoRecognition = "Voice input is not available here. Type your requests instead."
	NoticeNoSynthesis   = "Speech output is not available. Responses are shown as text only."
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorPrimary))
	labelStyle   = lipgloss.NewStyle().Bold(true)
	interimStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(colorMuted))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorWarning))
	hintStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(colorMuted))

	statusStyles = map[string]lipgloss.Style{
		"Idle":       lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted)),
		"Listening…": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorSuccess)),
		"Speaking…":  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorPrimary)),
	}
)

// Render draws s into a block at most width columns wide.
func Render(s console.State, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	body := lipgloss.NewStyle().Width(width)

	status := s.Status()
	statusLine := statusStyles[status].Render("● " + status)
	if !s.TTSEnabled {
		statusLine += hintStyle.Render("  (speech muted)")
	}

	lines := []string{
		titleStyle.Render("JARVIS") + "  " + statusLine,
	}

	if !s.RecognitionSupported {
		lines = append(lines, noticeStyle.Width(width).Render(NoticeNoRecognition))
	}
	if !s.SynthesisSupported {
		lines = append(lines, noticeStyle.Width(width).Render(NoticeNoSynthesis))
	}

	transcript := s.Transcript
	if s.Interim != "" {
		if transcript != "" {
			transcript += " "
		}
		transcript += interimStyle.Render(s.Interim)
	}
	if transcript == "" {
		transcript = hintStyle.Render("(say something)")
	}

	response := s.LastResponse
	if response == "" {
		response = hintStyle.Render("(no response yet)")
	}

	lines = append(lines,
		"",
		labelStyle.Render("You"),
		body.Render(transcript),
		"",
		labelStyle.Render("Jarvis"),
		lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorPrimary)).
			Padding(0, 1).
			Width(width-2).
			Render(response),
	)

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// View redraws the console on w whenever the visible state changes.
type View struct {
	w     io.Writer
	width int
	clear bool

	mu   sync.Mutex
	last string
}

// NewView returns a view writing to w. With clear set every frame starts by
// clearing the screen.
func NewView(w io.Writer, width int, clear bool) *View {
	return &View{w: w, width: width, clear: clear}
}

// Update has the signature of a console observer.
func (v *View) Update(s console.State) {
	frame := Render(s, v.width)

	v.mu.Lock()
	defer v.mu.Unlock()

	if frame == v.last {
		return
	}
	v.last = frame

	var b strings.Builder
	if v.clear {
		b.WriteString("\x1b[H\x1b[2J")
	}
	b.WriteString(frame)
	b.WriteString("\n")
	fmt.Fprint(v.w, b.String())
}
