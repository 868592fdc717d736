package audioconv

import (
	"context"
	"fmt"
	"io"
	log "log/slog"
	"sync"
)

// ErrExhausted wraps io.EOF so recognizers see the end of input.
var ErrExhausted = fmt.Errorf("no more files: %w", io.EOF)

// FileQueue hands out one decoded file per Capture call, so recorded
// utterances can be replayed through the recognizer.
type FileQueue struct {
	opt    Options
	decode func(string, Options) ([]float32, error)

	mu    sync.Mutex
	paths []string
}

func NewFileQueue(paths []string, opt Options) *FileQueue {
	return &FileQueue{
		opt:    opt,
		decode: DecodeFile,
		paths:  append([]string(nil), paths...),
	}
}

func (q *FileQueue) Capture(ctx context.Context) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	if len(q.paths) == 0 {
		q.mu.Unlock()
		return nil, ErrExhausted
	}
	path := q.paths[0]
	q.paths = q.paths[1:]
	q.mu.Unlock()

	pcm, err := q.decode(path, q.opt)
	if err != nil {
		return nil, err
	}

	log.Debug("Decoded", "path", path, "samples", len(pcm))
	return pcm, nil
}

func (q *FileQueue) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.paths)
}
