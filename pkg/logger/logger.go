package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level mirrors slog levels with a small fixed set.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var (
	mu      sync.RWMutex
	current = INFO
	handler = newHandler(os.Stderr, INFO)
	log     = slog.New(handler)
)

func newHandler(w io.Writer, level Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slogLevel(level),
	})
}

func slogLevel(level Level) slog.Level {
	switch level {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the minimum logged level.
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	current = level
	handler = newHandler(os.Stderr, level)
	log = slog.New(handler)
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	handler = newHandler(w, current)
	log = slog.New(handler)
}

// ParseLevel maps a level name to a Level, defaulting to INFO.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func logWith(level slog.Level, component, msg string, fields map[string]interface{}) {
	mu.RLock()
	l := log
	mu.RUnlock()

	attrs := make([]interface{}, 0, 2+2*len(fields))
	attrs = append(attrs, "component", component)
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	l.Log(context.Background(), level, msg, attrs...)
}

func DebugC(component, msg string) { logWith(slog.LevelDebug, component, msg, nil) }
func InfoC(component, msg string)  { logWith(slog.LevelInfo, component, msg, nil) }
func WarnC(component, msg string)  { logWith(slog.LevelWarn, component, msg, nil) }
func ErrorC(component, msg string) { logWith(slog.LevelError, component, msg, nil) }

func DebugCF(component, msg string, fields map[string]interface{}) {
	logWith(slog.LevelDebug, component, msg, fields)
}

func InfoCF(component, msg string, fields map[string]interface{}) {
	logWith(slog.LevelInfo, component, msg, fields)
}

func WarnCF(component, msg string, fields map[string]interface{}) {
	logWith(slog.LevelWarn, component, msg, fields)
}

func ErrorCF(component, msg string, fields map[string]interface{}) {
	logWith(slog.LevelError, component, msg, fields)
}
