package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"jarvis/internal/app"
	"jarvis/internal/config"
	"jarvis/internal/console"
	"jarvis/internal/display"
	"jarvis/internal/intent"
	"jarvis/internal/listen"
)

// jarvis is the text console: every line on stdin is an utterance. It exits
// once stdin is exhausted and the last response has been spoken.
func main() {
	cfg, err := config.Load("jarvis", os.Args[1:], os.Stderr)
	if errors.Is(err, cli.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "jarvis:", err)
		os.Exit(2)
	}
	cfg.Input = config.InputStdin

	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: cfg.LogLevel,
	})))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	replier, err := app.NewReplier(cfg)
	if err != nil {
		log.Error("Failed to set up backend", "err", err)
		os.Exit(1)
	}

	synth, closeSynth := app.NewSynthesizer(cfg)
	defer closeSynth()

	lines := listen.NewLines(os.Stdin)

	// the socket and bus stay available; the view is drawn without clearing
	// so typed input is not wiped
	noScreen := cfg.NoScreen
	cfg.NoScreen = true
	surfaces := app.NewSurfaces(cfg)
	defer surfaces.Close()

	opts := []console.Option{
		console.WithRecognizer(lines),
		console.WithMatcher(intent.Default()),
		console.WithSettleDelay(cfg.SettleDelay),
		console.WithReplyTimeout(cfg.ReplyTimeout),
	}
	if !noScreen {
		opts = append(opts, console.WithObserver(display.NewView(os.Stdout, display.DefaultWidth, false).Update))
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
		log.Warn("Control socket unavailable", "err", err)
	}

	c.Start()

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-lines.Done():
		}
		drain(ctx, c, cfg.ReplyTimeout+2*time.Second)
		cancel()
	}()

	if err := c.Run(ctx); err != nil {
		log.Error("Console stopped", "err", err)
		os.Exit(1)
	}
}

// drain waits until the console has answered everything it was given and
// finished speaking, or until limit passes. Input is exhausted by then, so
// idle stays idle.
func drain(ctx context.Context, c *console.Controller, limit time.Duration) {
	deadline := time.After(limit)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			log.Warn("Gave up waiting for the last response")
			return
		case <-ticker.C:
			idle, err := c.Idle(ctx)
			if err != nil || idle {
				return
			}
		}
	}
}
