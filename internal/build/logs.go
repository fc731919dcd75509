package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cruciblehq/cruxpkg/internal/bash"
)

// Number of output lines kept for display when a script fails outside debug
// mode.
const maxContextLines = 50

// Fixed-capacity buffer keeping the most recent lines.
type tail struct {
	lines []string
	next  int
	full  bool
}

func newTail(capacity int) *tail {
	return &tail{lines: make([]string, capacity)}
}

func (t *tail) push(line string) {
	t.lines[t.next] = line
	t.next = (t.next + 1) % len(t.lines)
	if t.next == 0 {
		t.full = true
	}
}

// Returns the kept lines, oldest first.
func (t *tail) contents() []string {
	if !t.full {
		return append([]string(nil), t.lines[:t.next]...)
	}
	out := make([]string, 0, len(t.lines))
	out = append(out, t.lines[t.next:]...)
	return append(out, t.lines[:t.next]...)
}

// Consumes a script's output and returns its terminal error.
//
// In debug mode every line is logged as it arrives. Otherwise only the last
// lines are kept, and they are logged as errors if the script fails, followed
// by a line naming the failed function when function is not empty.
func printLogs(ctx context.Context, logger *slog.Logger, logs *bash.Logs, function string) error {
	debug := logger.Enabled(ctx, slog.LevelDebug)
	buf := newTail(maxContextLines)

	for line := range logs.Lines() {
		if debug {
			logger.Debug(line)
		} else {
			buf.push(line)
		}
	}

	err := logs.Err()
	if err == nil {
		return nil
	}

	if errors.Is(err, bash.ErrScript) {
		if lines := buf.contents(); len(lines) > 0 {
			logger.Warn(fmt.Sprintf("Only showing up to %d lines of context. Use --debug for the full output.", maxContextLines))
			for _, line := range lines {
				logger.Error(line)
			}
		}
		if function != "" {
			logger.Error(function + " failed")
		}
	}
	return err
}
