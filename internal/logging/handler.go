// Package logging provides the compact slog handler used by the bridge.
// Logs never go to stdout, which carries the IRC stream.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

// ComponentKey is rendered as a "[Component]" tag in front of the message
const ComponentKey = "component"

// Multi-line attributes rendered as indented blocks below the log line.
var blockKeys = map[string]bool{
	"text": true,
	"body": true,
}

// Options configures a Handler.
type Options struct {
	Level slog.Level
	Color bool
}

// Handler is a compact, optionally colored slog handler.
type Handler struct {
	w         io.Writer
	mu        *sync.Mutex
	level     slog.Level
	color     bool
	component string
	attrs     []slog.Attr
}

// NewHandler creates a new log handler.
func NewHandler(w io.Writer, opts *Options) *Handler {
	if opts == nil {
		opts = &Options{Level: slog.LevelInfo}
	}
	return &Handler{
		w:     w,
		mu:    &sync.Mutex{},
		level: opts.Level,
		color: opts.Color,
	}
}

// New returns a logger writing through a Handler.
func New(w io.Writer, opts *Options) *slog.Logger {
	return slog.New(NewHandler(w, opts))
}

// ParseLevel maps debug/info/warn/error onto a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time.Format("2006-01-02 15:04:05.000")
	lvl := levelLabel(r.Level)

	component := h.component
	var inline string
	var blocks []string
	collect := func(a slog.Attr) {
		switch {
		case a.Key == ComponentKey:
			component = a.Value.String()
		case blockKeys[a.Key] && strings.Contains(a.Value.String(), "\n"):
			blocks = append(blocks, a.Value.String())
		default:
			inline += h.fmtAttr(a)
		}
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(a)
		return true
	})

	msg := r.Message
	if component != "" {
		msg = "[" + component + "] " + msg
	}

	var sb strings.Builder
	if h.color {
		fmt.Fprintf(&sb, "%s%s%s %s %s%s\n", ansiGray, ts, ansiReset, colorLevel(r.Level, lvl), msg, inline)
	} else {
		fmt.Fprintf(&sb, "%s %s %s%s\n", ts, lvl, msg, inline)
	}
	for _, text := range blocks {
		for _, line := range strings.Split(text, "\n") {
			fmt.Fprintf(&sb, "    | %s\n", line)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, sb.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &Handler{w: h.w, mu: h.mu, level: h.level, color: h.color, component: h.component}
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		if a.Key == ComponentKey {
			next.component = a.Value.String()
			continue
		}
		next.attrs = append(next.attrs, a)
	}
	return next
}

func (h *Handler) WithGroup(string) slog.Handler {
	return h
}

func (h *Handler) fmtAttr(a slog.Attr) string {
	v := a.Value.String()
	if v == "" || strings.ContainsAny(v, " \t\r\n\"=") {
		v = strconv.Quote(v)
	}
	if h.color {
		return fmt.Sprintf(" %s%s%s=%s", ansiGray, a.Key, ansiReset, v)
	}
	return fmt.Sprintf(" %s=%s", a.Key, v)
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERR"
	case level >= slog.LevelWarn:
		return "WRN"
	case level >= slog.LevelInfo:
		return "INF"
	default:
		return "DBG"
	}
}

func colorLevel(level slog.Level, label string) string {
	switch {
	case level >= slog.LevelError:
		return ansiRed + label + ansiReset
	case level >= slog.LevelWarn:
		return ansiYellow + label + ansiReset
	case level >= slog.LevelInfo:
		return ansiCyan + label + ansiReset
	default:
		return ansiGray + label + ansiReset
	}
}
