package intent

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var afternoon = time.Date(2026, time.October, 6, 15, 4, 0, 0, time.Local)

func TestDefaultMatch(t *testing.T) {
	tbl := Default()

	cases := []struct {
		in   string
		want string
	}{
		{"Hello", Greeting},
		{"HEY there", Greeting},
		{"who are you", Identity},
		{"What is your name", Identity},
		{"What time is it", "It's 03:04 PM."},
		{"what's the date", "Today is 10/6/2026."},
		{"what day is it", "Today is 10/6/2026."},
		{"Open Preferences", Settings},
		{"open settings", Settings},
		{"help", Help},
		{"what can you do", Help},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := tbl.Match(tc.in, afternoon)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFirstRuleWins(t *testing.T) {
	// "hi" inside "this" hits the greeting before "time"
	got, ok := Default().Match("this time", afternoon)
	require.True(t, ok)
	assert.Equal(t, Greeting, got)

	r, ok := Default().Lookup("tell me the time")
	require.True(t, ok)
	assert.Equal(t, "time", r.Name)
}

func TestNoMatch(t *testing.T) {
	_, ok := Default().Match("xyzzy nonsense", afternoon)
	assert.False(t, ok)

	_, ok = Default().Match("", afternoon)
	assert.False(t, ok)
}

func TestTimeFormat(t *testing.T) {
	re := regexp.MustCompile(`^It's \d{2}:\d{2} (AM|PM)\.$`)

	morning := time.Date(2026, time.January, 2, 9, 7, 0, 0, time.Local)
	got, ok := Default().Match("time please", morning)
	require.True(t, ok)
	assert.Regexp(t, re, got)
	assert.Equal(t, "It's 09:07 AM.", got)
}

func TestCustomTable(t *testing.T) {
	tbl := NewTable(Rule{
		Name:    "ping",
		Pattern: regexp.MustCompile(`ping`),
		Reply:   Fixed("pong"),
	})

	got, ok := tbl.Match("PING", afternoon)
	require.True(t, ok)
	assert.Equal(t, "pong", got)
	assert.Len(t, tbl.Rules(), 1)
}
