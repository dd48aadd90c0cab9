package logger

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Level     slog.Level
	Format    string
	Output    io.Writer
	AddSource bool
}

func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Format:    "text",
		Output:    os.Stderr,
		AddSource: false,
	}
}

func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// ParseLevel maps debug/info/warn/error (case-insensitive) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func Debug(msg string, args ...any) { slog.Debug(msg, args...) }
func Info(msg string, args ...any)  { slog.Info(msg, args...) }
func Warn(msg string, args ...any)  { slog.Warn(msg, args...) }
func Error(msg string, args ...any) { slog.Error(msg, args...) }

// ForComponent returns a logger that resolves the default handler lazily,
// so package-level loggers pick up the handler installed by Init.
func ForComponent(component string) *Component {
	return &Component{name: component}
}

type Component struct {
	name string
}

func (c *Component) logger() *slog.Logger {
	return slog.Default().With("component", c.name)
}

func (c *Component) Debug(msg string, args ...any) { c.logger().Debug(msg, args...) }
func (c *Component) Info(msg string, args ...any)  { c.logger().Info(msg, args...) }
func (c *Component) Warn(msg string, args ...any)  { c.logger().Warn(msg, args...) }
func (c *Component) Error(msg string, args ...any) { c.logger().Error(msg, args...) }

// StdLogger adapts the component logger for libraries that want a *log.Logger.
func (c *Component) StdLogger(level slog.Level) *log.Logger {
	return slog.NewLogLogger(c.logger().Handler(), level)
}

func With(args ...any) *slog.Logger {
	return slog.Default().With(args...)
}
