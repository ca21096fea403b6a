package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process logger. Subsystems get named children of it.
type Logger struct {
	*zap.Logger
}

// Config selects level, encoding and sinks
type Config struct {
	Level       string // debug, info, warn or error; empty means info
	Development bool   // colored console output instead of JSON
	OutputPaths []string
}

// DefaultConfig logs JSON at info to stdout
func DefaultConfig() Config {
	return Config{Level: "info", OutputPaths: []string{"stdout"}}
}

// DevelopmentConfig logs colored console lines at debug to stdout
func DevelopmentConfig() Config {
	return Config{Level: "debug", Development: true, OutputPaths: []string{"stdout"}}
}

// New builds a logger from cfg
func New(cfg Config) (*Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	paths := cfg.OutputPaths
	if len(paths) == 0 {
		paths = []string{"stdout"}
	}
	sink, closeSink, err := zap.Open(paths...)
	if err != nil {
		return nil, fmt.Errorf("open log outputs: %w", err)
	}
	errSink, _, err := zap.Open("stderr")
	if err != nil {
		closeSink()
		return nil, fmt.Errorf("open error output: %w", err)
	}

	opts := []zap.Option{zap.AddCaller(), zap.ErrorOutput(errSink)}
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	}

	core := zapcore.NewCore(newEncoder(cfg.Development), sink, level)
	return &Logger{Logger: zap.New(core, opts...)}, nil
}

// NewDefault is New(DefaultConfig()), or a no-op logger if that fails
func NewDefault() *Logger {
	return orNop(New(DefaultConfig()))
}

// NewDevelopment is New(DevelopmentConfig()), or a no-op logger if that fails
func NewDevelopment() *Logger {
	return orNop(New(DevelopmentConfig()))
}

func orNop(l *Logger, err error) *Logger {
	if err != nil {
		return Wrap(nil)
	}
	return l
}

func newEncoder(development bool) zapcore.Encoder {
	if development {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		return zapcore.NewConsoleEncoder(ec)
	}

	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.MessageKey = "message"
	ec.NameKey = "component"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeDuration = zapcore.MillisDurationEncoder
	return zapcore.NewJSONEncoder(ec)
}

// Wrap adapts an existing zap logger. nil yields a no-op logger.
func Wrap(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{Logger: logger}
}

// Component returns the named sub-logger handed to one subsystem, such as
// "dispatcher", "archive" or "ws".
func (l *Logger) Component(name string) *zap.Logger {
	return l.Named(name)
}
