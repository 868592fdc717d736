// Package reply implements the remote step of the voice console: asking a
// text-generation backend for an answer to the user's utterance.
package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBackendURL = "http://localhost:8000"
	Endpoint          = "/api/jarvis"

	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20
)

var (
	ErrBadStatus  = errors.New("unexpected status")
	ErrEmptyReply = errors.New("empty reply")
)

type request struct {
	Prompt string `json:"prompt"`
}

type response struct {
	Reply string `json:"reply"`
}

// HTTP talks to a backend exposing POST /api/jarvis.
type HTTP struct {
	baseURL string
	client  *http.Client
}

type HTTPOption func(*HTTP)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) { h.client = c }
}

func NewHTTP(baseURL string, opts ...HTTPOption) *HTTP {
	if baseURL == "" {
		baseURL = DefaultBackendURL
	}

	h := &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTP) URL() string {
	return h.baseURL + Endpoint
}

// Reply makes a single attempt. Any failure, including an empty reply, is an
// error so the caller can fall back.
func (h *HTTP) Reply(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(request{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debug("Asking backend", "url", h.URL())

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post %s: %w", h.URL(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}

	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode reply: %w", err)
	}

	if strings.TrimSpace(out.Reply) == "" {
		return "", ErrEmptyReply
	}

	return out.Reply, nil
}
