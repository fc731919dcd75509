package bash

import (
	"bufio"
	"io"
	"iter"
)

// Longest output line kept intact. Longer lines end the stream with
// [bufio.ErrTooLong] unless the script itself failed.
const maxLineLength = 1 << 20

// Stream of output lines produced by a running script.
//
// Lines are produced while the script runs and must be consumed, either by
// ranging over [Logs.Lines] or by calling [Logs.Err], for the script to
// finish.
type Logs struct {
	lines chan string
	err   error // Set before lines is closed.
}

// Creates a stream reading lines from r.
//
// Once r is exhausted, wait is called and its result becomes the stream's
// terminal error. The producer must close r when the process ends.
func NewLogs(r io.Reader, wait func() error) *Logs {
	l := &Logs{lines: make(chan string)}

	go func() {
		defer close(l.lines)

		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineLength)
		for sc.Scan() {
			l.lines <- sc.Text()
		}

		scanErr := sc.Err()
		if scanErr != nil {
			io.Copy(io.Discard, r)
		}

		l.err = wait()
		if l.err == nil {
			l.err = scanErr
		}
	}()

	return l
}

// Creates a finished stream replaying the given lines and ending with err.
func Replay(lines []string, err error) *Logs {
	l := &Logs{lines: make(chan string)}
	go func() {
		defer close(l.lines)
		for _, line := range lines {
			l.lines <- line
		}
		l.err = err
	}()
	return l
}

// Returns an iterator over the remaining lines. Breaking out of the loop
// discards the rest of the output.
func (l *Logs) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		for line := range l.lines {
			if !yield(line) {
				for range l.lines {
				}
				return
			}
		}
	}
}

// Drains any remaining lines and returns the terminal error: nil on success,
// a [*ScriptError] on a non-zero exit, or the failure of the producer.
func (l *Logs) Err() error {
	for range l.lines {
	}
	return l.err
}
