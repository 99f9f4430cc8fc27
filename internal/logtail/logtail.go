package logtail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// DefaultWindowSize is the number of lines a Window keeps.
const DefaultWindowSize = 30

// ErrSourceUnavailable is returned when the monitored file cannot be stat'd,
// opened or read.
var ErrSourceUnavailable = errors.New("log source unavailable")

// Result is the outcome of a poll. When Changed is false nothing new was
// written since the watermark and Text is empty.
type Result struct {
	Changed   bool
	Text      string
	Watermark time.Time
}

// Window is a bounded FIFO of recent log lines plus the modification time of
// the last processed version of the file.
type Window struct {
	mu        sync.Mutex
	capacity  int
	lines     []string
	watermark time.Time
}

// NewWindow returns an empty window holding up to capacity lines. A
// non-positive capacity uses DefaultWindowSize.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &Window{capacity: capacity}
}

// Poll checks path for writes newer than the watermark and, if there are any,
// refreshes the window from the file.
func (w *Window) Poll(ctx context.Context, path string) (Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("stat %s: %w: %w", path, ErrSourceUnavailable, err)
	}
	modified := info.ModTime()
	if !modified.After(w.watermark) {
		return Result{Watermark: w.watermark}, nil
	}

	lines, err := readTail(path, w.capacity)
	if err != nil {
		return Result{}, err
	}

	w.lines = lines
	w.watermark = modified
	return Result{
		Changed:   true,
		Text:      strings.Join(lines, ""),
		Watermark: modified,
	}, nil
}

// Watermark returns the modification time of the last processed file version.
// It is the zero time before the first successful poll.
func (w *Window) Watermark() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watermark
}

// Lines returns a copy of the lines currently held, oldest first.
func (w *Window) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.lines...)
}

// Read returns at most maxLines from the end of the file at path, with line
// terminators stripped. A non-positive maxLines returns every line.
func Read(path string, maxLines int) ([]string, error) {
	lines, err := readTail(path, maxLines)
	if err != nil {
		return nil, err
	}
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r\n")
	}
	return lines, nil
}

func readTail(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, ErrSourceUnavailable, err)
	}
	defer file.Close()

	lines, err := tail(file, maxLines)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", path, ErrSourceUnavailable, err)
	}
	return lines, nil
}

// tail keeps the last maxLines lines of r in a ring buffer. Each returned line
// keeps its terminator; a final line without one is returned as is.
func tail(r io.Reader, maxLines int) ([]string, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	if maxLines <= 0 {
		var all []string
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				all = append(all, line)
			}
			if errors.Is(err, io.EOF) {
				return all, nil
			}
			if err != nil {
				return nil, err
			}
		}
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			ring[idx] = line
			idx = (idx + 1) % maxLines
			if count < maxLines {
				count++
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}
