package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/kataras/golog"
)

// consoleHandler prints records through golog, which colours the level
// when writing to a terminal.
type consoleHandler struct {
	out    *golog.Logger
	level  slog.Leveler
	pre    string // attrs bound by WithAttrs, already rendered
	prefix string // dotted group path
}

func newConsoleHandler(w io.Writer, level slog.Leveler) *consoleHandler {
	out := golog.New()
	out.SetOutput(w)
	out.SetLevel("debug")
	out.SetTimeFormat("2006-01-02 15:04:05")
	return &consoleHandler{out: out, level: level}
}

func (h *consoleHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	b.WriteString(h.pre)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.prefix, a)
		return true
	})

	msg := b.String()
	switch {
	case r.Level >= slog.LevelError:
		h.out.Error(msg)
	case r.Level >= slog.LevelWarn:
		h.out.Warn(msg)
	case r.Level >= slog.LevelInfo:
		h.out.Info(msg)
	default:
		h.out.Debug(msg)
	}
	return nil
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, key, ga)
		}
		return
	}
	fmt.Fprintf(b, " %s=%v", key, a.Value.Any())
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.pre)
	for _, a := range attrs {
		writeAttr(&b, h.prefix, a)
	}
	clone := *h
	clone.pre = b.String()
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if h.prefix == "" {
		clone.prefix = name
	} else {
		clone.prefix = h.prefix + "." + name
	}
	return &clone
}
