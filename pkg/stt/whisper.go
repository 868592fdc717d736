// Package stt transcribes 16 kHz mono PCM with whisper.cpp.
package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

var (
	ErrNoModel = errors.New("no whisper model loaded")
	ErrNoAudio = errors.New("no audio samples provided")
)

type Options struct {
	Language      string // "auto", "en", ...
	TranslateToEn bool
	Threads       int    // <=0 uses every CPU
	InitialPrompt string // biases spelling, e.g. "Jarvis"
	BeamSize      int    // 0 keeps greedy decoding

	// OnSegment receives the text decoded so far each time a segment is
	// finished.
	OnSegment func(partial string)
}

type Segment struct {
	Text     string
	StartSec float64
	EndSec   float64
}

type Result struct {
	Text     string
	Segments []Segment
	Language string // detected or forced
}

type Transcriber struct {
	model    whisper.Model
	defaults Options
}

func NewTranscriber(modelPath string, defaults Options) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}

	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", modelPath, err)
	}
	return &Transcriber{model: m, defaults: defaults}, nil
}

func (t *Transcriber) Close() error {
	if t.model == nil {
		return nil
	}
	return t.model.Close()
}

// Transcribe uses the transcriber's default options and streams partial text
// to onSegment.
func (t *Transcriber) Transcribe(ctx context.Context, pcm16k []float32, onSegment func(string)) (string, error) {
	opt := t.defaults
	opt.OnSegment = onSegment

	res, err := t.TranscribePCM(ctx, pcm16k, opt)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// TranscribePCM decodes one utterance. A canceled ctx stops it before the
// encoder runs and between segments.
func (t *Transcriber) TranscribePCM(ctx context.Context, pcm16k []float32, opt Options) (Result, error) {
	switch {
	case t.model == nil:
		return Result{}, ErrNoModel
	case len(pcm16k) == 0:
		return Result{}, ErrNoAudio
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("new context: %w", err)
	}
	if err := configure(wctx, opt); err != nil {
		return Result{}, err
	}

	var partial []string
	var onSegment whisper.SegmentCallback
	if opt.OnSegment != nil {
		onSegment = func(s whisper.Segment) {
			partial = append(partial, strings.TrimSpace(s.Text))
			opt.OnSegment(strings.Join(partial, " "))
		}
	}

	keepGoing := func() bool { return ctx.Err() == nil }
	if err := wctx.Process(pcm16k, keepGoing, onSegment, nil); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, fmt.Errorf("process: %w", err)
	}

	segs, err := collect(ctx, wctx)
	if err != nil {
		return Result{}, err
	}

	res := Result{Segments: segs, Language: wctx.DetectedLanguage()}
	if res.Language == "" {
		res.Language = wctx.Language()
	}

	texts := make([]string, 0, len(segs))
	for _, s := range segs {
		if txt := strings.TrimSpace(s.Text); txt != "" {
			texts = append(texts, txt)
		}
	}
	res.Text = strings.Join(texts, " ")

	return res, nil
}

func configure(wctx whisper.Context, opt Options) error {
	lang := opt.Language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return fmt.Errorf("set language %q: %w", lang, err)
	}
	wctx.SetTranslate(opt.TranslateToEn)

	threads := opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if opt.BeamSize > 0 {
		wctx.SetBeamSize(opt.BeamSize)
	}
	if opt.InitialPrompt != "" {
		wctx.SetInitialPrompt(opt.InitialPrompt)
	}
	return nil
}

func collect(ctx context.Context, wctx whisper.Context) ([]Segment, error) {
	var segs []Segment
	for ctx.Err() == nil {
		s, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			return segs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("next segment: %w", err)
		}

		segs = append(segs, Segment{
			Text:     s.Text,
			StartSec: s.Start.Seconds(),
			EndSec:   s.End.Seconds(),
		})
	}
	return nil, ctx.Err()
}
