package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"jarvis/internal/app"
	"jarvis/internal/audio"
	"jarvis/internal/config"
	"jarvis/internal/console"
	"jarvis/internal/intent"
	"jarvis/internal/listen"
	"jarvis/pkg/audioconv"
	"jarvis/pkg/stt"
)

func main() {
	cfg, err := config.Load("jarvis-daemon", os.Args[1:], os.Stderr)
	if errors.Is(err, cli.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "jarvis-daemon:", err)
		os.Exit(2)
	}

	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: cfg.LogLevel,
	})))

	log.Info("Booting up")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	replier, err := app.NewReplier(cfg)
	if err != nil {
		log.Error("Failed to set up backend", "err", err)
		os.Exit(1)
	}

	synth, closeSynth := app.NewSynthesizer(cfg)
	defer closeSynth()

	rec, closeRec := recognizer(cfg)
	defer closeRec()

	surfaces := app.NewSurfaces(cfg)
	defer surfaces.Close()

	opts := []console.Option{
		console.WithMatcher(intent.Default()),
		console.WithSettleDelay(cfg.SettleDelay),
		console.WithReplyTimeout(cfg.ReplyTimeout),
	}
	if rec != nil {
		opts = append(opts, console.WithRecognizer(rec))
	}
	if synth != nil {
		opts = append(opts, console.WithSynthesizer(synth))
	}
	if replier != nil {
		opts = append(opts, console.WithReplier(replier))
	}
	opts = append(opts, surfaces.Options()...)

	c := console.New(opts...)
	app.Announce(c.Snapshot())

	if err := surfaces.Start(ctx, c); err != nil {
		log.Error("Failed to start control surfaces", "err", err)
		os.Exit(1)
	}

	log.Info("Boot up - successful")

	if cfg.Listen {
		c.Start()
	}

	if err := c.Run(ctx); err != nil {
		log.Error("Console stopped", "err", err)
		os.Exit(1)
	}

	log.Info("Shutting down")
}

// recognizer builds the configured input. A nil recognizer leaves the console
// without voice input and is reported to the user.
func recognizer(cfg *config.Config) (console.Recognizer, func()) {
	noop := func() {}

	if cfg.Input == config.InputStdin {
		return listen.NewLines(os.Stdin), noop
	}

	whisper, err := stt.NewTranscriber(cfg.ModelPath, stt.Options{Language: cfg.Language})
	if err != nil {
		log.Error("Failed to init whisper", "model", cfg.ModelPath, "err", err)
		return nil, noop
	}

	log.Debug("Loaded whisper", "model", cfg.ModelPath)

	if cfg.Input == config.InputFiles {
		q := audioconv.NewFileQueue(cfg.Files, audioconv.Options{})
		return listen.NewEpisodic(q, whisper), func() { whisper.Close() }
	}

	rec := audio.NewRecorder(audio.DefaultRecorderConfig())
	if err := rec.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		whisper.Close()
		return nil, noop
	}

	log.Debug("Loaded recorder")

	return listen.NewEpisodic(rec, whisper), func() {
		rec.Close()
		whisper.Close()
	}
}
