package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/mattn/go-isatty"
)

// A question with a closed set of answers.
type Query struct {
	Message string            // Question shown to the user.
	Default string            // Answer chosen on an empty line or end of input.
	Options []string          // Accepted answers, shown in order.
	Aliases map[string]string // Longer spellings mapped to an option.
}

// Asks q on out and reads answers from in until one matches an option or an
// alias. Answers are case-insensitive. An empty line or the end of input
// selects the default.
func Ask(in io.Reader, out io.Writer, q Query) (string, error) {
	if !slices.Contains(q.Options, q.Default) {
		return "", fmt.Errorf("%w: default %q is not an option", ErrInvalidQuery, q.Default)
	}

	scanner := bufio.NewScanner(in)
	for {
		if _, err := fmt.Fprintf(out, "%s [%s] ", q.Message, choices(q)); err != nil {
			return "", err
		}

		if !scanner.Scan() {
			fmt.Fprintln(out)
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return q.Default, nil
		}

		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer == "" {
			return q.Default, nil
		}
		if slices.Contains(q.Options, answer) {
			return answer, nil
		}
		if option, ok := q.Aliases[answer]; ok {
			return option, nil
		}
		fmt.Fprintf(out, "Invalid answer %q.\n", answer)
	}
}

// Reports whether f is attached to a terminal.
func Interactive(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Renders the options with the default capitalized, as in "C/r/k".
func choices(q Query) string {
	out := make([]string, len(q.Options))
	for i, o := range q.Options {
		if o == q.Default {
			o = strings.ToUpper(o)
		}
		out[i] = o
	}
	return strings.Join(out, "/")
}
