// Package logging provides leveled, component-tagged logging with file output and rotation.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Nomadcxx/javorganize/internal/paths"
)

// Level represents a logging level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// F creates a new Field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Config holds logger configuration
type Config struct {
	Level      string `mapstructure:"level" toml:"level"`
	File       string `mapstructure:"file" toml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"`
}

// DefaultConfig returns default logging configuration. An empty File resolves
// to ~/.config/javorganize/logs/javorganize.log.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSizeMB:  10,
		MaxBackups: 5,
	}
}

// Logger writes one line per entry to stdout and, when configured, a rotating file.
type Logger struct {
	level      Level
	mu         sync.Mutex
	file       *os.File
	filePath   string
	maxSize    int64
	maxBackups int
	console    io.Writer
	writers    []io.Writer
}

// New creates a Logger writing to stdout and the configured log file.
func New(cfg Config) (*Logger, error) {
	l := &Logger{
		level:      ParseLevel(cfg.Level),
		maxSize:    int64(cfg.MaxSizeMB) * 1024 * 1024,
		maxBackups: cfg.MaxBackups,
		console:    os.Stdout,
		writers:    []io.Writer{os.Stdout},
	}
	if l.maxSize <= 0 {
		l.maxSize = 10 * 1024 * 1024
	}
	if l.maxBackups <= 0 {
		l.maxBackups = 5
	}

	file := cfg.File
	if file == "" {
		p, err := paths.LogPath()
		if err != nil {
			return nil, fmt.Errorf("unable to resolve log path: %w", err)
		}
		file = p
	}
	file, err := paths.ExpandHome(file)
	if err != nil {
		return nil, fmt.Errorf("unable to expand log path: %w", err)
	}
	l.filePath = file

	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return nil, fmt.Errorf("unable to create log directory: %w", err)
	}
	if err := l.openFile(); err != nil {
		return nil, err
	}
	return l, nil
}

// NewWriter creates a Logger that writes only to w, without a file.
func NewWriter(w io.Writer, level string) *Logger {
	return &Logger{
		level:   ParseLevel(level),
		console: w,
		writers: []io.Writer{w},
	}
}

// Nop returns a logger that discards all output
func Nop() *Logger {
	return &Logger{
		level:   LevelError + 1,
		writers: []io.Writer{},
	}
}

func (l *Logger) openFile() error {
	if l.filePath == "" {
		return nil
	}
	f, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("unable to open log file: %w", err)
	}
	l.file = f
	l.writers = []io.Writer{l.console, f}
	return nil
}

func (l *Logger) rotateIfNeeded() error {
	if l.file == nil {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() < l.maxSize {
		return nil
	}
	l.file.Close()
	l.file = nil
	if err := rotateFiles(l.filePath, l.maxBackups); err != nil {
		return err
	}
	return l.openFile()
}

func (l *Logger) log(level Level, component, msg string, err error, fields ...Field) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if rotErr := l.rotateIfNeeded(); rotErr != nil {
		fmt.Fprintf(os.Stderr, "log rotation error: %v\n", rotErr)
	}

	var sb strings.Builder
	sb.WriteString(time.Now().Format(time.RFC3339))
	sb.WriteString(" [")
	sb.WriteString(level.String())
	sb.WriteString("] [")
	sb.WriteString(component)
	sb.WriteString("] ")
	sb.WriteString(msg)
	if err != nil {
		sb.WriteString(" | error=")
		sb.WriteString(err.Error())
	}
	for _, f := range fields {
		fmt.Fprintf(&sb, " | %s=%v", f.Key, f.Value)
	}
	sb.WriteByte('\n')

	line := []byte(sb.String())
	for _, w := range l.writers {
		w.Write(line)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(component, msg string, fields ...Field) {
	l.log(LevelDebug, component, msg, nil, fields...)
}

// Info logs an info message
func (l *Logger) Info(component, msg string, fields ...Field) {
	l.log(LevelInfo, component, msg, nil, fields...)
}

// Warn logs a warning message
func (l *Logger) Warn(component, msg string, fields ...Field) {
	l.log(LevelWarn, component, msg, nil, fields...)
}

// Error logs an error message with an error
func (l *Logger) Error(component, msg string, err error, fields ...Field) {
	l.log(LevelError, component, msg, err, fields...)
}

// Named returns a view of l bound to one component name.
func (l *Logger) Named(component string) *Component {
	return &Component{logger: l, name: component}
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() Level {
	return l.level
}

// SetLevel sets the log level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// FilePath returns the log file path, empty for writer-only loggers.
func (l *Logger) FilePath() string {
	return l.filePath
}

// Component is a Logger bound to a component tag.
type Component struct {
	logger *Logger
	name   string
}

func (c *Component) Debug(msg string, fields ...Field) {
	c.logger.log(LevelDebug, c.name, msg, nil, fields...)
}

func (c *Component) Info(msg string, fields ...Field) {
	c.logger.log(LevelInfo, c.name, msg, nil, fields...)
}

func (c *Component) Warn(msg string, fields ...Field) {
	c.logger.log(LevelWarn, c.name, msg, nil, fields...)
}

func (c *Component) Error(msg string, err error, fields ...Field) {
	c.logger.log(LevelError, c.name, msg, err, fields...)
}
