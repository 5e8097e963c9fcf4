package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// LogEntry is one line written by the JSON handler. The component and job_id
// attributes are lifted out of Fields so entries group by either.
type LogEntry struct {
	Level     string         `json:"level"`
	Timestamp string         `json:"timestamp"`
	Component string         `json:"component,omitempty"`
	JobID     string         `json:"job_id,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	Caller    string         `json:"caller,omitempty"`
}

type entryHandler struct {
	w         io.Writer
	mu        *sync.Mutex
	level     slog.Level
	addSource bool

	attrs  []slog.Attr
	prefix string
}

func newEntryHandler(w io.Writer, level slog.Level, addSource bool) *entryHandler {
	return &entryHandler{w: w, mu: &sync.Mutex{}, level: level, addSource: addSource}
}

func (h *entryHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *entryHandler) Handle(_ context.Context, record slog.Record) error {
	at := record.Time
	if at.IsZero() {
		at = time.Now()
	}

	entry := LogEntry{
		Level:     strings.ToLower(record.Level.String()),
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		Message:   record.Message,
		Fields:    map[string]any{},
	}

	for _, attr := range h.attrs {
		entry.add(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		if h.prefix != "" {
			attr.Key = h.prefix + attr.Key
		}
		entry.add(attr)
		return true
	})
	if len(entry.Fields) == 0 {
		entry.Fields = nil
	}

	if h.addSource && record.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
		if frame.File != "" {
			entry.Caller = fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
		}
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(append(line, '\n'))
	return err
}

func (h *entryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, attr := range attrs {
		if h.prefix != "" {
			attr.Key = h.prefix + attr.Key
		}
		next.attrs = append(next.attrs, attr)
	}
	return &next
}

func (h *entryHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (e *LogEntry) add(attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	if text, ok := attr.Value.Any().(string); ok {
		switch attr.Key {
		case "component":
			e.Component = text
			return
		case "job_id":
			e.JobID = text
			return
		}
	}

	e.Fields[attr.Key] = plain(attr.Value)
}

// plain converts a resolved slog value into something encoding/json renders
// readably.
func plain(v slog.Value) any {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindGroup:
		group := make(map[string]any, len(v.Group()))
		for _, attr := range v.Group() {
			group[attr.Key] = plain(attr.Value.Resolve())
		}
		return group
	default:
		return v.Any()
	}
}
