// Package notify gives audible and visible cues outside the terminal view.
package notify

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

var (
	speakerMu   sync.Mutex
	speakerRate beep.SampleRate
)

// Chime plays an mp3 file to the end. It blocks until playback finishes.
func Chime(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open chime: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode chime %s: %w", path, err)
	}
	defer streamer.Close()

	rate, err := initSpeaker(format.SampleRate)
	if err != nil {
		return err
	}

	var s beep.Streamer = streamer
	if rate != format.SampleRate {
		s = beep.Resample(4, format.SampleRate, rate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))
	<-done

	return nil
}

// initSpeaker opens the output device once, at the rate of the first chime.
func initSpeaker(rate beep.SampleRate) (beep.SampleRate, error) {
	speakerMu.Lock()
	defer speakerMu.Unlock()

	if speakerRate != 0 {
		return speakerRate, nil
	}
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return 0, fmt.Errorf("init speaker: %w", err)
	}
	speakerRate = rate
	return rate, nil
}
