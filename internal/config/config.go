// Package config collects daemon settings from flags, an env file and the
// environment. Flags win over the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	log "log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"jarvis/internal/console"
	"jarvis/internal/ipc"
	"jarvis/internal/reply"
	"jarvis/internal/speech"
)

const (
	BackendHTTP   = "http"
	BackendOpenAI = "openai"
	BackendNone   = "none"

	InputMic   = "mic"
	InputStdin = "stdin"
	InputFiles = "files"

	SpeechEspeak = "espeak"
	SpeechSilent = "silent"
	SpeechNone   = "none"
)

var LogLevels = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

type Config struct {
	EnvFile  string
	LogLevel log.Level

	Backend     string
	BackendURL  string
	OpenAIKey   string
	OpenAIModel string
	Proxy       string

	Input     string
	ModelPath string
	Language  string
	Files     []string

	SettleDelay  time.Duration
	ReplyTimeout time.Duration

	Socket   string
	BusURL   string
	Chime    string
	Speech   string
	Duck     bool
	Voice    string
	Rate     int
	Listen   bool
	NoScreen bool
}

// Load parses args (without the program name). Unknown values are rejected
// with an error naming the flag.
func Load(name string, args []string, stderr io.Writer) (*Config, error) {
	fs := cli.NewFlagSet(name, cli.ContinueOnError)
	fs.SetOutput(stderr)

	envFile := fs.StringP("env", "e", ".env", "Env file path")
	logLevel := fs.StringP("log", "l", "info", "Log level (debug, info, warn, error)")

	backend := fs.StringP("backend", "b", BackendHTTP, "Reply backend (http, openai, none)")
	backendURL := fs.String("backend-url", "", "Base URL of the reply service (env JARVIS_BACKEND_URL)")
	model := fs.String("openai-model", "", "OpenAI chat model (env OPENAI_MODEL)")
	proxyAddr := fs.StringP("proxy", "p", "", "SOCKS5 proxy address for the backend")
	timeout := fs.Duration("reply-timeout", console.DefaultReplyTimeout, "Give up on the backend after this long")

	input := fs.StringP("input", "i", InputMic, "Recognition input (mic, stdin, files)")
	modelPath := fs.StringP("model", "m", "models/ggml-base.en.bin", "Whisper model path (env WHISPER_MODEL)")
	lang := fs.String("lang", "en", "Recognition language, or auto")
	files := fs.StringSlice("file", nil, "Audio files to replay with --input files")

	settle := fs.Duration("settle", console.DefaultSettleDelay, "Pause between speech end and listening again")
	socket := fs.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	busURL := fs.StringP("url", "u", "", "Websocket hub URL (env BUS_URL)")
	chime := fs.String("chime", "", "mp3 played when listening starts")
	speechOut := fs.String("speech", SpeechEspeak, "Speech output (espeak, silent, none)")
	duck := fs.Bool("duck", true, "Lower other audio while speaking")
	voice := fs.String("voice", speech.DefaultVoice, "espeak-ng voice")
	rate := fs.Int("rate", speech.DefaultRate, "espeak-ng words per minute")
	listen := fs.Bool("listen", true, "Start listening right away")
	noScreen := fs.Bool("no-screen", false, "Do not draw the terminal view")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := godotenv.Load(*envFile); err != nil {
		if fs.Changed("env") || !errors.Is(err, iofs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", *envFile, err)
		}
	}

	level, ok := LogLevels[strings.ToLower(*logLevel)]
	if !ok {
		return nil, fmt.Errorf("invalid --log %q", *logLevel)
	}

	cfg := &Config{
		EnvFile:      *envFile,
		LogLevel:     level,
		Backend:      strings.ToLower(*backend),
		BackendURL:   pick(fs, "backend-url", *backendURL, os.Getenv("JARVIS_BACKEND_URL"), reply.DefaultBackendURL),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  pick(fs, "openai-model", *model, os.Getenv("OPENAI_MODEL"), ""),
		Proxy:        pick(fs, "proxy", *proxyAddr, os.Getenv("JARVIS_PROXY"), ""),
		Input:        strings.ToLower(*input),
		ModelPath:    pick(fs, "model", *modelPath, os.Getenv("WHISPER_MODEL"), *modelPath),
		Language:     *lang,
		Files:        append(*files, fs.Args()...),
		SettleDelay:  *settle,
		ReplyTimeout: *timeout,
		Socket:       *socket,
		BusURL:       pick(fs, "url", *busURL, os.Getenv("BUS_URL"), ""),
		Chime:        *chime,
		Speech:       strings.ToLower(*speechOut),
		Duck:         *duck,
		Voice:        *voice,
		Rate:         *rate,
		Listen:       *listen,
		NoScreen:     *noScreen,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendHTTP, BackendNone:
	case BackendOpenAI:
		if c.OpenAIKey == "" {
			return errors.New("OPENAI_API_KEY not set")
		}
	default:
		return fmt.Errorf("invalid --backend %q", c.Backend)
	}

	switch c.Input {
	case InputMic, InputStdin:
	case InputFiles:
		if len(c.Files) == 0 {
			return errors.New("--input files needs at least one --file")
		}
	default:
		return fmt.Errorf("invalid --input %q", c.Input)
	}

	switch c.Speech {
	case SpeechEspeak, SpeechSilent, SpeechNone:
	default:
		return fmt.Errorf("invalid --speech %q", c.Speech)
	}

	if c.SettleDelay < 0 || c.ReplyTimeout <= 0 {
		return errors.New("durations must be positive")
	}
	return nil
}

// pick prefers an explicitly set flag, then the environment, then def.
func pick(fs *cli.FlagSet, flag, value, env, def string) string {
	switch {
	case fs.Changed(flag):
		return value
	case env != "":
		return env
	default:
		return def
	}
}
