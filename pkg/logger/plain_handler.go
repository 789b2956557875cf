package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// plainHandler is a minimal slog.Handler that prints only the message
// (prefixed by the intention icon on terminals) and appends key=value pairs,
// without time/level decorations. Intended for clean console output.
type plainHandler struct {
	w       io.Writer
	attrs   []slog.Attr
	mu      *sync.Mutex
	leveler slog.Leveler
	icons   bool
}

func newPlainHandler(w io.Writer, leveler slog.Leveler, icons bool) slog.Handler {
	return &plainHandler{w: w, leveler: leveler, icons: icons, mu: &sync.Mutex{}}
}

// Enabled implements slog.Handler by checking level
func (h *plainHandler) Enabled(_ context.Context, lvl slog.Level) bool {
	if h.leveler == nil {
		return true
	}
	return lvl >= h.leveler.Level()
}

// meta keys never printed on the console
func consoleHidden(key string) bool {
	switch key {
	case "intention", "time", "level", "msg", "component", "conversation":
		return true
	}
	return false
}

// Handle prints the message and key=value pairs without time/level prefixes
func (h *plainHandler) Handle(_ context.Context, r slog.Record) error {
	var (
		intention string
		pairs     strings.Builder
	)
	visit := func(a slog.Attr) {
		if a.Key == "intention" {
			intention = a.Value.String()
		}
		if !consoleHidden(a.Key) {
			fmt.Fprintf(&pairs, " %s=%v", a.Key, a.Value)
		}
	}
	flatten := func(a slog.Attr) {
		if a.Value.Kind() == slog.KindGroup {
			for _, ga := range a.Value.Group() {
				visit(ga)
			}
			return
		}
		visit(a)
	}

	// Bound attributes first, then record attributes
	for _, a := range h.attrs {
		flatten(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(a)
		return true
	})

	line := r.Message
	if h.icons && intention != "" {
		line = iconFor(Intention(intention)) + " " + line
	}
	if r.Level >= slog.LevelWarn {
		line = strings.ToUpper(r.Level.String()) + " " + line
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.w, line+pairs.String())
	return err
}

// WithAttrs returns a new handler with additional attributes bound
func (h *plainHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

// WithGroup groups attributes; for plain output we encode as a group attr
func (h *plainHandler) WithGroup(name string) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), slog.Group(name))
	return &nh
}
