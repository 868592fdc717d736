// Package intent holds the canned replies the assistant gives without asking
// the backend.
package intent

import (
	"regexp"
	"strings"
	"time"
)

const (
	Greeting = "Hello. How can I assist you today?"
	Identity = "I'm Jarvis, your voice-first desktop copilot."
	Settings = "Opening settings. (This is a demo action.)"
	Help     = "You can ask for time, date, or say hello. More skills coming soon."

	TimeLayout = "03:04 PM"
	DateLayout = "1/2/2006"
)

// Rule answers when Pattern matches the lowercased utterance.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Reply   func(now time.Time) string
}

func Fixed(s string) func(time.Time) string {
	return func(time.Time) string { return s }
}

// Table is an ordered rule list; the first matching rule wins.
type Table struct {
	rules []Rule
}

func NewTable(rules ...Rule) *Table {
	return &Table{rules: append([]Rule(nil), rules...)}
}

// Default returns the built-in rules. Patterns match anywhere in the text, so
// "this" triggers the greeting just like "hi" does.
func Default() *Table {
	return NewTable(
		Rule{
			Name:    "greeting",
			Pattern: regexp.MustCompile(`hello|hi|hey`),
			Reply:   Fixed(Greeting),
		},
		Rule{
			Name:    "identity",
			Pattern: regexp.MustCompile(`who are you|your name`),
			Reply:   Fixed(Identity),
		},
		Rule{
			Name:    "time",
			Pattern: regexp.MustCompile(`time`),
			Reply: func(now time.Time) string {
				return "It's " + now.Format(TimeLayout) + "."
			},
		},
		Rule{
			Name:    "date",
			Pattern: regexp.MustCompile(`date|day`),
			Reply: func(now time.Time) string {
				return "Today is " + now.Format(DateLayout) + "."
			},
		},
		Rule{
			Name:    "settings",
			Pattern: regexp.MustCompile(`open (settings|preferences)`),
			Reply:   Fixed(Settings),
		},
		Rule{
			Name:    "help",
			Pattern: regexp.MustCompile(`help|what can you do`),
			Reply:   Fixed(Help),
		},
	)
}

func (t *Table) Match(text string, now time.Time) (string, bool) {
	r, ok := t.Lookup(text)
	if !ok {
		return "", false
	}
	return r.Reply(now), true
}

// Lookup returns the first rule matching text.
func (t *Table) Lookup(text string) (Rule, bool) {
	lower := strings.ToLower(text)
	for _, r := range t.rules {
		if r.Pattern.MatchString(lower) {
			return r, true
		}
	}
	return Rule{}, false
}

func (t *Table) Rules() []Rule {
	return append([]Rule(nil), t.rules...)
}
