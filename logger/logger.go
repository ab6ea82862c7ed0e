package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Log is the global logger instance.
var Log *Logger

type Logger struct {
	z zerolog.Logger
}

var (
	mu     sync.Mutex
	format string
	files  []*fileSink
)

func init() {
	Setup("info", "console")
}

func consoleWriter(w io.Writer, color bool) io.Writer {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: !color}
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup configures the global logger. Format "json" writes one JSON
// object per line, anything else a human readable console format.
func Setup(level, logFormat string) {
	mu.Lock()
	defer mu.Unlock()
	zerolog.SetGlobalLevel(ParseLevel(level))
	format = strings.ToLower(logFormat)
	rebuild()
}

// AddFile tees every following log line into the file at path. Lines are
// always written in the console format without colors. Closing the returned
// closer detaches the file from the logger before closing it.
func AddFile(path string) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open log file")
	}
	s := &fileSink{f: f, w: consoleWriter(f, false)}
	mu.Lock()
	defer mu.Unlock()
	files = append(files, s)
	rebuild()
	return s, nil
}

type fileSink struct {
	f *os.File
	w io.Writer
}

func (s *fileSink) Close() error {
	mu.Lock()
	for i := range files {
		if files[i] == s {
			files = append(files[:i:i], files[i+1:]...)
			rebuild()
			break
		}
	}
	mu.Unlock()
	return s.f.Close()
}

// SetOutput replaces the standard error sink, used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	rebuild()
}

var out io.Writer = os.Stderr

func rebuild() {
	var primary io.Writer
	if format == "json" {
		primary = out
	} else {
		primary = consoleWriter(out, out == os.Stderr)
	}
	var w = primary
	if len(files) > 0 {
		ws := []io.Writer{primary}
		for _, s := range files {
			ws = append(ws, s.w)
		}
		w = zerolog.MultiLevelWriter(ws...)
	}
	Log = &Logger{z: zerolog.New(w).With().Timestamp().Logger()}
}

// Info logs at Info level with variadic key-value pairs
func (l *Logger) Info(msg string, args ...interface{}) {
	e := l.z.Info()
	addFields(e, args...)
	e.Msg(msg)
}

// Debug logs at Debug level with variadic key-value pairs
func (l *Logger) Debug(msg string, args ...interface{}) {
	e := l.z.Debug()
	addFields(e, args...)
	e.Msg(msg)
}

// Warn logs at Warn level with variadic key-value pairs
func (l *Logger) Warn(msg string, args ...interface{}) {
	e := l.z.Warn()
	addFields(e, args...)
	e.Msg(msg)
}

// Error logs at Error level with variadic key-value pairs
func (l *Logger) Error(msg string, args ...interface{}) {
	e := l.z.Error()
	addFields(e, args...)
	e.Msg(msg)
}

func addFields(e *zerolog.Event, args ...interface{}) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", args[i])
		}
		switch v := args[i+1].(type) {
		case error:
			e.AnErr(key, v)
		case float64:
			e.Float64(key, v)
		case int:
			e.Int(key, v)
		case string:
			e.Str(key, v)
		default:
			e.Interface(key, v)
		}
	}
}
