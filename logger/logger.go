package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"marketwatch/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates a zap.Logger configured based on the given options.
// Stdout uses the console or JSON encoder per opts; the optional log file is always JSON.
func New(opts config.LogConfig) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if opts.Level != "" {
		if err := lvl.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}

	encoding := "json"
	if opts.Environment == "dev" || opts.Format == "console" {
		encoding = "console"
	}

	cores := []zapcore.Core{
		zapcore.NewCore(newEncoder(encoding), zapcore.Lock(os.Stdout), lvl),
	}

	if opts.OutputFile != "" {
		fileCore, err := newFileCore(opts.OutputFile, lvl)
		if err != nil {
			return nil, err
		}
		cores = append(cores, fileCore)
	}

	fields := []zap.Field{}
	if opts.Environment != "" {
		fields = append(fields, zap.String("env", opts.Environment))
	}

	logger := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(fields...),
	)
	return logger.Named("marketwatch"), nil
}

// newFileCore writes JSON lines to path, rotated by lumberjack.
func newFileCore(path string, lvl zapcore.Level) (zapcore.Core, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,   // max file size (MB) before rotation
		MaxBackups: 5,    // max number of old log files to keep
		MaxAge:     7,    // max age (days) to retain a log file
		Compress:   true, // compress rotated files
	})

	return zapcore.NewCore(newEncoder("json"), fileWriter, lvl), nil
}

func newEncoder(format string) zapcore.Encoder {
	if format == "console" {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewConsoleEncoder(cfg)
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}
