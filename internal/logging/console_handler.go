package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleTimeLayout matches the playlist archive header clock.
const consoleTimeLayout = "2006-01-02 15:04:05"

// shortIDLen is how much of a bridge id the console header shows.
const shortIDLen = 8

var levelColors = map[slog.Level]string{
	slog.LevelDebug: "\x1b[90m",
	slog.LevelInfo:  "\x1b[34m",
	slog.LevelWarn:  "\x1b[33m",
	slog.LevelError: "\x1b[31m",
}

const colorReset = "\x1b[0m"

// consoleHandler writes one line per record:
//
//	<local time> LEVEL component@bridge: message [event_type] key=value ...
type consoleHandler struct {
	mu        *sync.Mutex
	out       io.Writer
	level     slog.Leveler
	preset    []field
	prefix    string
	addSource bool
	color     bool
}

type field struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource, color bool) *consoleHandler {
	return &consoleHandler{mu: new(sync.Mutex), out: w, level: level, addSource: addSource, color: color}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.preset = append(append([]field(nil), h.preset...), h.collect(attrs)...)
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := append([]field(nil), h.preset...)
	record.Attrs(func(a slog.Attr) bool {
		fields = append(fields, h.collect([]slog.Attr{a})...)
		return true
	})

	component, bridgeID, eventType, rest := splitHeader(fields)

	when := record.Time
	if when.IsZero() {
		when = time.Now()
	}

	var b strings.Builder
	b.WriteString(when.Local().Format(consoleTimeLayout))
	b.WriteByte(' ')
	b.WriteString(h.levelLabel(record.Level))
	b.WriteByte(' ')
	if component != "" || bridgeID != "" {
		b.WriteString(component)
		if bridgeID != "" {
			b.WriteByte('@')
			b.WriteString(shortID(bridgeID))
		}
		b.WriteString(": ")
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	b.WriteString(msg)
	if eventType != "" {
		b.WriteString(" [")
		b.WriteString(eventType)
		b.WriteByte(']')
	}
	if h.addSource {
		if src := record.Source(); src != nil && src.File != "" {
			fmt.Fprintf(&b, " (%s:%d)", filepath.Base(src.File), src.Line)
		}
	}
	for _, f := range rest {
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(renderValue(f.value))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

// collect flattens attrs, prefixing keys with the open group path.
func (h *consoleHandler) collect(attrs []slog.Attr) []field {
	var out []field
	var walk func(prefix string, attrs []slog.Attr)
	walk = func(prefix string, attrs []slog.Attr) {
		for _, a := range attrs {
			if a.Equal(slog.Attr{}) {
				continue
			}
			v := a.Value.Resolve()
			if v.Kind() == slog.KindGroup {
				p := prefix
				if a.Key != "" {
					p = prefix + a.Key + "."
				}
				walk(p, v.Group())
				continue
			}
			if a.Key == "" {
				continue
			}
			out = append(out, field{key: prefix + a.Key, value: v})
		}
	}
	walk(h.prefix, attrs)
	return out
}

// splitHeader pulls the fields rendered in the line header out of fields.
// The first component and bridge id win; the last event type wins.
func splitHeader(fields []field) (component, bridgeID, eventType string, rest []field) {
	rest = fields[:0:0]
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			if component == "" {
				component = f.value.String()
			}
		case FieldBridgeID:
			if bridgeID == "" {
				bridgeID = f.value.String()
			}
		case FieldEventType:
			eventType = f.value.String()
		default:
			rest = append(rest, f)
		}
	}
	return component, bridgeID, eventType, rest
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func (h *consoleHandler) levelLabel(level slog.Level) string {
	base := slog.LevelDebug
	for _, l := range []slog.Level{slog.LevelError, slog.LevelWarn, slog.LevelInfo} {
		if level >= l {
			base = l
			break
		}
	}
	label := base.String()
	if !h.color {
		return label
	}
	return levelColors[base] + label + colorReset
}

func renderValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindBool, slog.KindInt64, slog.KindUint64, slog.KindDuration:
		return v.String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		s = v.Time().Local().Format(consoleTimeLayout)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
