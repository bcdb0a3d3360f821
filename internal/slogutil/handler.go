// Package slogutil provides custom slog handlers and utilities for jarscan logging.
package slogutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

const (
	// RunKey is the attribute carrying the scan's run ID. TextHandler prints
	// it as a short tag ahead of the level instead of as a key=value pair.
	RunKey = "run"
	// ErrorKey is always written last so the failure ends the line.
	ErrorKey = "error"

	runTagLen = 8
)

// TextHandler writes one line per record:
//
//	TIMESTAMP [run] [level] Message | key=value key=value error=...
//
// Groups are not rendered; keys stay flat.
type TextHandler struct {
	w     io.Writer
	level slog.Leveler
	run   string
	attrs []slog.Attr
	mu    *sync.Mutex
}

// NewTextHandler creates a new line-oriented log handler.
func NewTextHandler(w io.Writer, opts *slog.HandlerOptions) *TextHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &TextHandler{
		w:     w,
		level: level,
		mu:    &sync.Mutex{},
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *TextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes the log record.
func (h *TextHandler) Handle(_ context.Context, r slog.Record) error {
	run := h.run
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	var errAttr *slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "":
		case RunKey:
			run = runTag(a.Value)
		case ErrorKey:
			errAttr = &a
		default:
			attrs = append(attrs, a)
		}
		return true
	})
	if errAttr != nil {
		attrs = append(attrs, *errAttr)
	}

	var buf bytes.Buffer
	buf.WriteString(r.Time.UTC().Format(time.RFC3339))
	if run != "" {
		buf.WriteString(" ")
		buf.WriteString(run)
	}
	buf.WriteString(" [")
	buf.WriteString(levelString(r.Level))
	buf.WriteString("] ")
	buf.WriteString(r.Message)

	if len(attrs) > 0 {
		buf.WriteString(" |")
		for _, a := range attrs {
			buf.WriteString(" ")
			buf.WriteString(a.Key)
			buf.WriteString("=")
			buf.WriteString(formatValue(a.Value))
		}
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// WithAttrs returns a new handler with the given attributes added. A run
// attribute replaces the handler's run tag.
func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &TextHandler{
		w:     h.w,
		level: h.level,
		run:   h.run,
		attrs: make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs)),
		mu:    h.mu,
	}
	copy(next.attrs, h.attrs)

	for _, a := range attrs {
		switch a.Key {
		case "":
		case RunKey:
			next.run = runTag(a.Value)
		default:
			next.attrs = append(next.attrs, a)
		}
	}
	return next
}

// WithGroup returns h unchanged.
func (h *TextHandler) WithGroup(string) slog.Handler {
	return h
}

// runTag shortens a run ID to its leading characters.
func runTag(v slog.Value) string {
	s := v.Resolve().String()
	if len(s) > runTagLen {
		s = s[:runTagLen]
	}
	return s
}

func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}

// formatValue formats a slog.Value for display. Strings containing spaces
// are quoted so archive paths stay readable.
func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if needsQuoting(s) {
			return fmt.Sprintf("%q", s)
		}
		return s
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	default:
		return fmt.Sprint(v.Any())
	}
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r == ' ' || r == '"' || r == '=' || r < 0x20 {
			return true
		}
	}
	return false
}
