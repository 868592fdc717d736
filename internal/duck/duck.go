// Package duck lowers the volume of other applications while the assistant is
// talking, using pactl (PulseAudio or PipeWire-pulse).
package duck

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const maxVolume = 150

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

type streamInfo struct {
	ID      int
	Volume  int
	AppName string
}

type fadeTarget struct {
	id   int
	from int
	to   int
}

type runFunc func(ctx context.Context, args ...string) ([]byte, error)

func pactl(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "pactl", args...).Output()
}

// Ducker fades every sink input except the ones whose application.name is in
// selfNames.
type Ducker struct {
	mu          sync.Mutex
	active      bool
	selfNames   []string
	originalVol map[int]int // sink input id -> volume % before ducking
	minVolume   int
	step        time.Duration
	run         runFunc
}

func NewDucker(selfNames []string, minVolume int) *Ducker {
	if minVolume < 0 {
		minVolume = 0
	}
	if minVolume > maxVolume {
		minVolume = maxVolume
	}

	return &Ducker{
		selfNames:   append([]string(nil), selfNames...),
		originalVol: make(map[int]int),
		minVolume:   minVolume,
		step:        10 * time.Millisecond,
		run:         pactl,
	}
}

func (d *Ducker) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// DuckOthers scales other streams to current*factor, never below minVolume.
func (d *Ducker) DuckOthers(ctx context.Context, factor float64, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	streams, err := d.listStreams(ctx)
	if err != nil {
		return fmt.Errorf("list streams: %w", err)
	}

	d.originalVol = make(map[int]int)

	var targets []fadeTarget
	for _, s := range streams {
		if d.isSelfStream(s) {
			continue
		}

		to := float64(s.Volume) * factor
		to = math.Max(to, float64(d.minVolume))
		to = math.Min(to, maxVolume)

		d.originalVol[s.ID] = s.Volume
		targets = append(targets, fadeTarget{id: s.ID, from: s.Volume, to: int(math.Round(to))})
	}

	if err := d.fade(ctx, targets, duration); err != nil {
		return err
	}

	d.active = true
	return nil
}

// UnduckOthers fades ducked streams back to their original volume. Streams
// that appeared after ducking are left alone.
func (d *Ducker) UnduckOthers(ctx context.Context, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	streams, err := d.listStreams(ctx)
	if err != nil {
		return fmt.Errorf("list streams: %w", err)
	}

	var targets []fadeTarget
	for _, s := range streams {
		orig, ok := d.originalVol[s.ID]
		if !ok || d.isSelfStream(s) {
			continue
		}
		targets = append(targets, fadeTarget{id: s.ID, from: s.Volume, to: orig})
	}

	if err := d.fade(ctx, targets, duration); err != nil {
		return err
	}

	d.originalVol = make(map[int]int)
	d.active = false
	return nil
}

func (d *Ducker) isSelfStream(s streamInfo) bool {
	for _, name := range d.selfNames {
		if s.AppName == name {
			return true
		}
	}
	return false
}

// fade moves all targets together in steps of d.step.
func (d *Ducker) fade(ctx context.Context, targets []fadeTarget, duration time.Duration) error {
	if len(targets) == 0 {
		return nil
	}

	steps := 1
	if duration > 0 && d.step > 0 {
		steps = max(int(duration/d.step), 1)
	}
	stepDuration := duration / time.Duration(steps)

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		frac := float64(i) / float64(steps)
		for _, t := range targets {
			v := int(math.Round(float64(t.from) + float64(t.to-t.from)*frac))
			if err := d.setVolume(ctx, t.id, v); err != nil {
				return fmt.Errorf("set volume id=%d: %w", t.id, err)
			}
		}

		if i < steps && stepDuration > 0 {
			time.Sleep(stepDuration)
		}
	}

	return nil
}

func (d *Ducker) listStreams(ctx context.Context) ([]streamInfo, error) {
	out, err := d.run(ctx, "list", "sink-inputs")
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

func (d *Ducker) setVolume(ctx context.Context, id int, percent int) error {
	percent = min(max(percent, 0), maxVolume)
	_, err := d.run(ctx, "set-sink-input-volume", strconv.Itoa(id), fmt.Sprintf("%d%%", percent))
	return err
}

func parseSinkInputs(text string) []streamInfo {
	parts := strings.Split(text, "Sink Input #")

	var res []streamInfo
	for _, block := range parts[1:] {
		newline := strings.IndexByte(block, '\n')
		if newline <= 0 {
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(block[:newline]))
		if err != nil {
			continue
		}

		s := streamInfo{ID: id}
		for _, line := range strings.Split(block[newline+1:], "\n") {
			line = strings.TrimSpace(line)

			if strings.HasPrefix(line, "Volume:") && s.Volume == 0 {
				if m := percentRe.FindStringSubmatch(line); len(m) >= 2 {
					if v, err := strconv.Atoi(m[1]); err == nil {
						s.Volume = v
					}
				}
			}

			// application.name = "Firefox"
			if strings.HasPrefix(line, "application.name =") && s.AppName == "" {
				if first := strings.Index(line, `"`); first >= 0 {
					rest := line[first+1:]
					if second := strings.Index(rest, `"`); second >= 0 {
						s.AppName = rest[:second]
					}
				}
			}
		}

		if s.Volume == 0 && s.AppName == "" {
			continue
		}
		res = append(res, s)
	}

	return res
}
