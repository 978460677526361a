package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger writes bot activity as JSON lines to a per-day file and, when
// enabled, as human readable lines to stdout.
type Logger struct {
	name    string
	logFile *os.File
	logger  zerolog.Logger
	mu      sync.Mutex
	logDir  string
	started time.Time
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelDebug   LogLevel = "DEBUG"
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelSignal  LogLevel = "SIGNAL"
	LogLevelStatus  LogLevel = "STATUS"
)

// Config controls where the logger writes.
type Config struct {
	Dir     string // log directory, "logs" when empty
	Name    string // file prefix, usually the bot name
	Level   string // zerolog level name, "info" when empty
	Console bool   // mirror to stdout
}

// NewLogger creates a file logger under logs/ for the named bot
func NewLogger(name string) (*Logger, error) {
	return NewLoggerWithConfig(Config{Name: name, Console: true})
}

// NewLoggerWithConfig creates a logger from an explicit configuration
func NewLoggerWithConfig(cfg Config) (*Logger, error) {
	if cfg.Dir == "" {
		cfg.Dir = "logs"
	}
	if cfg.Name == "" {
		cfg.Name = "signal-bot"
	}

	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(cfg.Dir, logFileName(cfg.Name, time.Now()))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var out io.Writer = file
	if cfg.Console {
		console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"}
		out = zerolog.MultiLevelWriter(file, console)
	}

	l := &Logger{
		name:    cfg.Name,
		logFile: file,
		logger:  zerolog.New(out).Level(level).With().Timestamp().Str("bot", cfg.Name).Logger(),
		logDir:  cfg.Dir,
		started: time.Now(),
	}

	l.writeSessionHeader()

	return l, nil
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	return &Logger{name: "nop", logger: zerolog.Nop(), started: time.Now()}
}

func logFileName(name string, t time.Time) string {
	return fmt.Sprintf("%s_%s.log", name, t.Format("2006-01-02"))
}

func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Info().
		Str("session", "start").
		Str("log_file", l.GetLogPath()).
		Msg("🚀 signal bot session started")
}

// Zerolog exposes the structured logger for components that log fields
func (l *Logger) Zerolog() zerolog.Logger {
	return l.logger
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.WithLevel(zerologLevel(level)).Str("kind", string(level)).Msgf(format, args...)
}

func zerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelWarning:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.Log(LogLevelDebug, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Signal logs a delivered or suppressed signal
func (l *Logger) Signal(format string, args ...interface{}) {
	l.Log(LogLevelSignal, format, args...)
}

// Status logs loop status information
func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Error().Err(err).Str("context", context).Msg(context)
}

// LogWarning logs warning with context
func (l *Logger) LogWarning(context string, message string, args ...interface{}) {
	l.Warning("%s: %s", context, fmt.Sprintf(message, args...))
}

// Close writes the session footer and closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile == nil {
		return nil
	}

	l.logger.Info().
		Str("session", "end").
		Dur("uptime", time.Since(l.started)).
		Msg("🛑 signal bot session ended")

	err := l.logFile.Close()
	l.logFile = nil
	return err
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	if l.logDir == "" {
		return ""
	}
	return filepath.Join(l.logDir, logFileName(l.name, time.Now()))
}
