package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Format selects the handler used when constructing a logger.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Creates a logger writing to w in the requested format.
//
// The level is consulted on every record, so a [slog.LevelVar] can be
// adjusted after construction. When timestamps is set, text records are
// prefixed with the UTC time.
func New(format Format, w io.Writer, level slog.Leveler, timestamps bool) *slog.Logger {
	if level == nil {
		level = slog.LevelInfo
	}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(NewTextHandler(w, level, timestamps))
}

// Returns the logger, or the process default if nil.
func Ensure(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// Returns a logger that discards everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type output struct {
	mu sync.Mutex
	w  io.Writer
}

// Handler rendering human-readable lines with a build context prefix.
type TextHandler struct {
	out        *output
	level      slog.Leveler
	timestamps bool
	context    buildContext
	attrs      []slog.Attr
	groups     []string
}

type buildContext struct {
	recipe, arch, pkg string
}

// Creates a text handler writing to w.
func NewTextHandler(w io.Writer, level slog.Leveler, timestamps bool) *TextHandler {
	return &TextHandler{
		out:        &output{w: w},
		level:      level,
		timestamps: timestamps,
	}
}

func (h *TextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *TextHandler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder

	if h.timestamps {
		ts := record.Time
		if ts.IsZero() {
			ts = time.Now()
		}
		b.WriteString(ts.UTC().Format(time.RFC3339))
		b.WriteByte(' ')
	}

	fmt.Fprintf(&b, "[%7s] ", record.Level.String())

	bc := h.context
	var rest []slog.Attr
	record.Attrs(func(attr slog.Attr) bool {
		if len(h.groups) == 0 && bc.absorb(attr) {
			return true
		}
		rest = append(rest, attr)
		return true
	})

	if prefix := bc.prefix(); prefix != "" {
		b.WriteString(prefix)
		b.WriteString(": ")
	}
	b.WriteString(record.Message)

	for _, attr := range h.attrs {
		appendAttr(&b, nil, attr)
	}
	for _, attr := range rest {
		appendAttr(&b, h.groups, attr)
	}
	b.WriteByte('\n')

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	_, err := io.WriteString(h.out.w, b.String())
	return err
}

func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	for _, attr := range attrs {
		if len(clone.groups) == 0 && clone.context.absorb(attr) {
			continue
		}
		if len(clone.groups) > 0 {
			attr = slog.Attr{Key: strings.Join(append(append([]string(nil), clone.groups...), attr.Key), "."), Value: attr.Value}
		}
		clone.attrs = append(clone.attrs, attr)
	}
	return clone
}

func (h *TextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *TextHandler) clone() *TextHandler {
	return &TextHandler{
		out:        h.out,
		level:      h.level,
		timestamps: h.timestamps,
		context:    h.context,
		attrs:      append([]slog.Attr(nil), h.attrs...),
		groups:     append([]string(nil), h.groups...),
	}
}

// Records a context attribute. Returns false for any other attribute.
func (c *buildContext) absorb(attr slog.Attr) bool {
	switch attr.Key {
	case KeyRecipe:
		c.recipe = attr.Value.String()
	case KeyArch:
		c.arch = attr.Value.String()
	case KeyPackage:
		c.pkg = attr.Value.String()
	default:
		return false
	}
	return true
}

// Formats the context as "recipe [arch] (package)", omitting unset parts.
func (c buildContext) prefix() string {
	var parts []string
	if c.recipe != "" {
		parts = append(parts, c.recipe)
	}
	if c.arch != "" {
		parts = append(parts, "["+c.arch+"]")
	}
	if c.pkg != "" {
		parts = append(parts, "("+c.pkg+")")
	}
	return strings.Join(parts, " ")
}

func appendAttr(b *strings.Builder, groups []string, attr slog.Attr) {
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		nested := append(append([]string(nil), groups...), attr.Key)
		for _, a := range value.Group() {
			appendAttr(b, nested, a)
		}
		return
	}
	if attr.Key == "" {
		return
	}

	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}

	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(formatValue(value))
}

func formatValue(value slog.Value) string {
	switch value.Kind() {
	case slog.KindString:
		s := value.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	case slog.KindTime:
		return value.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := value.Any().(error); ok && err != nil {
			return strconv.Quote(err.Error())
		}
		return fmt.Sprint(value.Any())
	default:
		return value.String()
	}
}
