package audio

import (
	"context"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	SampleRate = 16000
	frameSize  = 320 // 20ms
)

type RecorderConfig struct {
	SilenceRMS      float64       // frames below this are silence
	SilenceDuration time.Duration // trailing silence that ends an utterance
	WaitDuration    time.Duration // give up if nobody speaks for this long
	MaxDuration     time.Duration
}

func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		SilenceRMS:      0.015,
		SilenceDuration: 600 * time.Millisecond,
		WaitDuration:    8 * time.Second,
		MaxDuration:     10 * time.Second,
	}
}

// Recorder captures single utterances from the default input device.
type Recorder struct {
	cfg RecorderConfig
}

func NewRecorder(cfg RecorderConfig) *Recorder { return &Recorder{cfg: cfg} }

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Capture records until the speaker falls silent. Nothing heard within
// WaitDuration yields an empty result, like a recognizer's no-speech timeout.
func (r *Recorder) Capture(ctx context.Context) ([]float32, error) {
	buf := make([]float32, frameSize)
	out := make([]float32, 0, SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	var (
		speaking bool
		silent   int
		frames   int
	)

	frameDur := time.Second * frameSize / SampleRate
	maxFrames := int(r.cfg.MaxDuration / frameDur)
	waitFrames := int(r.cfg.WaitDuration / frameDur)
	silenceFrames := int(r.cfg.SilenceDuration / frameDur)

	for frames = 0; frames < maxFrames; frames++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, err
		}

		if frameRMS(buf) > r.cfg.SilenceRMS {
			speaking = true
			silent = 0
			out = append(out, buf...)
			continue
		}

		if !speaking {
			if frames >= waitFrames {
				return nil, nil
			}
			continue
		}

		silent++
		out = append(out, buf...)
		if silent >= silenceFrames {
			break
		}
	}

	return out, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
