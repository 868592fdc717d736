package duck

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sinkInputs = `Sink Input #41
	Driver: protocol-native.c
	Volume: front-left: 65536 / 100% / 0.00 dB,   front-right: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "Firefox"
Sink Input #57
	Volume: front-left: 52429 /  80% / -5.81 dB,   front-right: 52429 /  80% / -5.81 dB
	Properties:
		application.name = "espeak-ng"
Sink Input #bogus
	Volume: 10%
Sink Input #60
	Driver: protocol-native.c
`

type fakePactl struct {
	mu      sync.Mutex
	list    string
	fail    bool
	volumes map[string][]string
}

func (f *fakePactl) run(_ context.Context, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return nil, errors.New("pactl: connection refused")
	}
	if args[0] == "list" {
		return []byte(f.list), nil
	}
	if f.volumes == nil {
		f.volumes = make(map[string][]string)
	}
	f.volumes[args[1]] = append(f.volumes[args[1]], args[2])
	return nil, nil
}

func (f *fakePactl) last(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.volumes[id]
	if len(v) == 0 {
		return ""
	}
	return v[len(v)-1]
}

func TestParseSinkInputs(t *testing.T) {
	got := parseSinkInputs(sinkInputs)
	assert.Equal(t, []streamInfo{
		{ID: 41, Volume: 100, AppName: "Firefox"},
		{ID: 57, Volume: 80, AppName: "espeak-ng"},
	}, got)

	assert.Empty(t, parseSinkInputs(""))
}

func TestDuckAndRestore(t *testing.T) {
	p := &fakePactl{list: sinkInputs}
	d := NewDucker([]string{"espeak-ng"}, 10)
	d.run = p.run

	require.NoError(t, d.DuckOthers(context.Background(), 0.3, 0))
	assert.True(t, d.Active())
	assert.Equal(t, "30%", p.last("41"))
	assert.Empty(t, p.last("57"), "own stream untouched")

	// second duck is a no-op
	require.NoError(t, d.DuckOthers(context.Background(), 0.1, 0))
	assert.Equal(t, "30%", p.last("41"))

	p.list = strings.Replace(sinkInputs, "100%", "30%", 1)
	require.NoError(t, d.UnduckOthers(context.Background(), 0))
	assert.False(t, d.Active())
	assert.Equal(t, "100%", p.last("41"))
}

func TestDuckFloorAndSteps(t *testing.T) {
	p := &fakePactl{list: sinkInputs}
	d := NewDucker(nil, 90)
	d.run = p.run
	d.step = 1

	require.NoError(t, d.DuckOthers(context.Background(), 0.1, 4))
	assert.Equal(t, []string{"98%", "95%", "93%", "90%"}, p.volumes["41"])
	assert.Equal(t, "90%", p.last("57"), "quiet stream is lifted to the floor")
}

func TestDuckFailure(t *testing.T) {
	d := NewDucker(nil, 0)
	d.run = (&fakePactl{fail: true}).run

	require.Error(t, d.DuckOthers(context.Background(), 0.3, 0))
	assert.False(t, d.Active())
	require.NoError(t, d.UnduckOthers(context.Background(), 0))
}
