// Package logger builds the process slog.Logger: a charm text handler for
// terminals, a JSON entry handler for machines, and an optional JSON log file
// fanned out next to either.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	charmLog "github.com/charmbracelet/log"
	slogmulti "github.com/samber/slog-multi"

	"mhurbridge/pkg/config"
)

const (
	envFormat    = "MHUR_LOG_FORMAT"
	envLevel     = "MHUR_LOG_LEVEL"
	envAddSource = "MHUR_LOG_ADD_SOURCE"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// options is the logging config after environment overrides.
type options struct {
	format    string
	level     slog.Level
	addSource bool
}

func resolveOptions(cfg config.LoggingConfig) (options, error) {
	opts := options{
		format:    firstNonEmpty(os.Getenv(envFormat), cfg.Format, formatText),
		addSource: cfg.AddSource,
	}
	if opts.format != formatText && opts.format != formatJSON {
		return options{}, fmt.Errorf("unsupported log format %q", opts.format)
	}

	level, err := parseLevel(firstNonEmpty(os.Getenv(envLevel), cfg.Level, "info"))
	if err != nil {
		return options{}, err
	}
	opts.level = level

	if raw := strings.TrimSpace(os.Getenv(envAddSource)); raw != "" {
		opts.addSource = parseBool(raw)
	}

	return opts, nil
}

// New builds the process logger. When cfg.File is set every record is also
// appended to that file as JSON; the returned cleanup closes it.
func New(cfg config.LoggingConfig) (*slog.Logger, func() error, error) {
	console, err := newWithWriter(cfg, os.Stderr)
	if err != nil {
		return nil, nil, err
	}

	path := strings.TrimSpace(cfg.File)
	if path == "" {
		return console, func() error { return nil }, nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	return withFile(console, cfg, file), file.Close, nil
}

// withFile fans records out to console and to a JSON entry handler over
// file. The file always carries callers.
func withFile(console *slog.Logger, cfg config.LoggingConfig, file io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if opts, err := resolveOptions(cfg); err == nil {
		level = opts.level
	}

	return slog.New(slogmulti.Fanout(console.Handler(), newEntryHandler(file, level, true)))
}

func newWithWriter(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	opts, err := resolveOptions(cfg)
	if err != nil {
		return nil, err
	}

	if opts.format == formatJSON {
		return slog.New(newEntryHandler(w, opts.level, opts.addSource)), nil
	}

	return slog.New(charmLog.NewWithOptions(w, charmLog.Options{
		Level:           charmLevel(opts.level),
		ReportTimestamp: true,
		ReportCaller:    opts.addSource,
		Formatter:       charmLog.TextFormatter,
	})), nil
}

func charmLevel(level slog.Level) charmLog.Level {
	switch {
	case level <= slog.LevelDebug:
		return charmLog.DebugLevel
	case level <= slog.LevelInfo:
		return charmLog.InfoLevel
	case level <= slog.LevelWarn:
		return charmLog.WarnLevel
	default:
		return charmLog.ErrorLevel
	}
}

// parseLevel accepts the slog level names plus "warning".
func parseLevel(text string) (slog.Level, error) {
	if strings.EqualFold(text, "warning") {
		return slog.LevelWarn, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(text)); err != nil {
		return 0, fmt.Errorf("unsupported log level %q", text)
	}
	return level, nil
}

func parseBool(text string) bool {
	switch strings.ToLower(text) {
	case "yes", "on":
		return true
	}
	value, err := strconv.ParseBool(text)
	return err == nil && value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			return v
		}
	}
	return ""
}
