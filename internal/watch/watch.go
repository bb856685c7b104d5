// Package watch follows a request file and hands each appended line to a
// callback.
package watch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Handler receives one complete, non-blank line with its newline removed.
// Returning an error stops Tail.
type Handler func(line string) error

// Tail drains path, then follows appended lines until ctx is cancelled or
// handle fails. A trailing line without a newline is held back until the
// newline arrives. Cancellation returns nil.
func Tail(ctx context.Context, path string, handle Handler, logger *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening request file: %w", err)
	}
	defer func() { _ = f.Close() }()

	// Watch before draining so writes between the two are not missed.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	t := &tailer{r: bufio.NewReader(f), handle: handle}
	if err := t.drain(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == 0 {
				continue
			}
			if err := t.drain(); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if err != nil && logger != nil {
				logger.Warn("request file watcher error", "path", path, "error", err)
			}
		}
	}
}

type tailer struct {
	r       *bufio.Reader
	handle  Handler
	pending strings.Builder
}

// drain reads every complete line currently available.
func (t *tailer) drain() error {
	for {
		chunk, err := t.r.ReadString('\n')
		t.pending.WriteString(chunk)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading request file: %w", err)
		}

		line := strings.TrimRight(t.pending.String(), "\r\n")
		t.pending.Reset()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := t.handle(line); err != nil {
			return err
		}
	}
}
