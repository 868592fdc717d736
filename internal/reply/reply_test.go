package reply

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, Endpoint, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "What Is Go", req.Prompt)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"reply":"A programming language."}`)
	}))
	defer srv.Close()

	got, err := NewHTTP(srv.URL+"/").Reply(context.Background(), "What Is Go")
	require.NoError(t, err)
	assert.Equal(t, "A programming language.", got)
}

func TestHTTPReplyFailures(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		want   error
	}{
		"server error":  {status: http.StatusInternalServerError, body: `{"reply":"nope"}`, want: ErrBadStatus},
		"not found":     {status: http.StatusNotFound, body: ``, want: ErrBadStatus},
		"empty reply":   {status: http.StatusOK, body: `{"reply":""}`, want: ErrEmptyReply},
		"missing reply": {status: http.StatusOK, body: `{"other":"x"}`, want: ErrEmptyReply},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := NewHTTP(srv.URL).Reply(context.Background(), "x")
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestHTTPReplyMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>`)
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL).Reply(context.Background(), "x")
	require.Error(t, err)
}

func TestHTTPReplyUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTP(url).Reply(context.Background(), "x")
	require.Error(t, err)
}

func TestHTTPReplyHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewHTTP(srv.URL).Reply(ctx, "x")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewHTTPDefaults(t *testing.T) {
	h := NewHTTP("")
	assert.Equal(t, "http://localhost:8000/api/jarvis", h.URL())

	custom := &http.Client{}
	h = NewHTTP("http://10.0.0.2:9000", WithHTTPClient(custom))
	assert.Same(t, custom, h.client)
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("", time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, c.Timeout)
	assert.Nil(t, c.Transport)

	c, err = NewClient("127.0.0.1:1080", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultTimeout, c.Timeout)
	assert.NotNil(t, c.Transport)
}

func completionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-5-nano", body["model"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "gpt-5-nano",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
}

func newTestOpenAI(url string) *OpenAI {
	client := openai.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(url+"/"),
		option.WithMaxRetries(0),
	)
	return NewOpenAI(client, "")
}

func TestOpenAIReply(t *testing.T) {
	srv := completionServer(t, " Forty-two. ")
	defer srv.Close()

	got, err := newTestOpenAI(srv.URL).Reply(context.Background(), "meaning of life")
	require.NoError(t, err)
	assert.Equal(t, "Forty-two.", got)
}

func TestOpenAIEmptyReply(t *testing.T) {
	srv := completionServer(t, "")
	defer srv.Close()

	_, err := newTestOpenAI(srv.URL).Reply(context.Background(), "meaning of life")
	require.ErrorIs(t, err, ErrEmptyReply)
}

type countingReplier struct {
	calls int
	err   error
}

func (c *countingReplier) Reply(context.Context, string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return "fine", nil
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	next := &countingReplier{err: ErrBadStatus}
	b := NewBreaker(next, 2, time.Hour)

	for i := 0; i < 2; i++ {
		_, err := b.Reply(context.Background(), "hi")
		require.ErrorIs(t, err, ErrBadStatus)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Reply(context.Background(), "hi")
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, next.calls, "open circuit skips the backend")
}

func TestBreakerPassesReplies(t *testing.T) {
	next := &countingReplier{}
	b := NewBreaker(next, 0, 0)

	out, err := b.Reply(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "fine", out)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerHalfOpenRecovers(t *testing.T) {
	next := &countingReplier{err: ErrBadStatus}
	b := NewBreaker(next, 1, 10*time.Millisecond)

	_, err := b.Reply(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, b.State())

	next.err = nil
	require.Eventually(t, func() bool { return b.State() == gobreaker.StateHalfOpen }, time.Second, 5*time.Millisecond)

	out, err := b.Reply(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "fine", out)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
