// Package logging wraps zap with the file rotation and component
// tagging every executable (gateway, reflector, parrot) needs.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zap.Logger with the fields the core components attach.
type Logger struct {
	*zap.Logger
	config Config
}

// Config mirrors the [Log] section of the gateway/reflector config file.
type Config struct {
	Level       string
	Format      string
	File        string
	MaxSize     int
	MaxBackups  int
	MaxAge      int
	Development bool
}

// New builds a Logger from Config.
func New(config Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: invalid level: %w", err)
	}

	var encoder zapcore.Encoder
	encoderConfig := getEncoderConfig(config.Development)
	if config.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	writer := getWriter(config)
	core := zapcore.NewCore(encoder, writer, level)

	var logger *zap.Logger
	if config.Development {
		logger = zap.New(core, zap.Development(), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	} else {
		logger = zap.New(core, zap.AddCaller())
	}

	return &Logger{Logger: logger, config: config}, nil
}

func getEncoderConfig(development bool) zapcore.EncoderConfig {
	if development {
		return zap.NewDevelopmentEncoderConfig()
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func getWriter(config Config) zapcore.WriteSyncer {
	if config.File == "" {
		return zapcore.AddSync(os.Stdout)
	}
	dir := filepath.Dir(config.File)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return zapcore.AddSync(os.Stdout)
	}
	fileWriter := &lumberjack.Logger{
		Filename:   config.File,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   true,
	}
	return zapcore.AddSync(io.MultiWriter(os.Stdout, fileWriter))
}

// Sync flushes buffered log entries; call on shutdown.
func (l *Logger) Sync() { _ = l.Logger.Sync() }

// WithComponent tags every subsequent entry with a component field, so
// e.g. gwswitch and wiresx lines are distinguishable in a shared file.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("component", component)), config: l.config}
}

// WithDGID tags entries with the originating DG-ID slot.
func (l *Logger) WithDGID(dgid uint8) *Logger {
	return &Logger{Logger: l.Logger.With(zap.Uint8("dgid", dgid)), config: l.config}
}

// Default builds a console-only development logger, used before the
// config file has been read.
func Default() *Logger {
	config := Config{Level: "info", Format: "console", Development: true}
	l, err := New(config)
	if err != nil {
		z, _ := zap.NewDevelopment()
		return &Logger{Logger: z, config: config}
	}
	return l
}
