package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// field is a flattened attribute; group names become dotted key prefixes.
type field struct {
	key   string
	value slog.Value
}

// consoleHandler writes one header line per record followed by indented
// fields. Subject attributes (component, category, stage, run id) move into
// the header at info level and above.
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     *slog.LevelVar
	addSource bool
	prefix    string
	fields    []field
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = appendFields(append([]field(nil), h.fields...), h.prefix, attrs...)
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
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}

	all := append([]field(nil), h.fields...)
	record.Attrs(func(attr slog.Attr) bool {
		all = appendFields(all, h.prefix, attr)
		return true
	})
	all = lastWins(all)

	subject := map[string]string{}
	body := make([]field, 0, len(all))
	for _, f := range all {
		switch f.key {
		case FieldComponent, FieldCategory, FieldStage, FieldRunID:
			subject[f.key] = attrString(f.value)
			if record.Level >= slog.LevelInfo {
				continue
			}
		}
		body = append(body, f)
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}

	var buf bytes.Buffer
	buf.WriteString(formatTimestamp(ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	if c := subject[FieldComponent]; c != "" {
		fmt.Fprintf(&buf, " [%s]", c)
	}
	if s := FormatSubject(subject[FieldCategory], subject[FieldStage]); s != "" {
		buf.WriteByte(' ')
		buf.WriteString(s)
	}
	buf.WriteString(" – ")
	buf.WriteString(msg)
	if h.addSource {
		if src := record.Source(); src != nil && src.File != "" {
			fmt.Fprintf(&buf, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	buf.WriteByte('\n')
	for _, f := range body {
		fmt.Fprintf(&buf, "    - %s: %s\n", f.key, formatValue(f.value))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// FormatSubject builds the category/stage subject string used in console output.
func FormatSubject(category, stage string) string {
	category = strings.TrimSpace(category)
	stage = strings.TrimSpace(stage)
	switch {
	case category != "" && stage != "":
		return category + " (" + stage + ")"
	case category != "":
		return category
	default:
		return stage
	}
}

func appendFields(dst []field, prefix string, attrs ...slog.Attr) []field {
	for _, attr := range attrs {
		if attr.Equal(slog.Attr{}) {
			continue
		}
		value := attr.Value.Resolve()
		if value.Kind() == slog.KindGroup {
			groupPrefix := prefix
			if attr.Key != "" {
				groupPrefix += attr.Key + "."
			}
			dst = appendFields(dst, groupPrefix, value.Group()...)
			continue
		}
		key := prefix + attr.Key
		if attr.Key == "" {
			key = strings.TrimSuffix(prefix, ".")
		}
		if key == "" {
			continue
		}
		dst = append(dst, field{key: key, value: value})
	}
	return dst
}

// lastWins keeps the first position of each key with its latest value.
func lastWins(fields []field) []field {
	index := make(map[string]int, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if i, seen := index[f.key]; seen {
			out[i].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
