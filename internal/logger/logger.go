// Package logger holds the process-wide zap logger. Console output goes to
// stderr because stdout may carry exported features.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects level and destinations of a logger
type Options struct {
	Verbose bool      // debug level with the development encoder
	File    string    // rotated JSON log file, empty for none
	Console io.Writer // console destination, stderr when nil
}

var (
	log  *zap.Logger
	once sync.Once
)

// Setup initializes the global logger once; later calls are ignored
func Setup(opts Options) {
	once.Do(func() {
		log = New(opts)
	})
}

// New builds a logger with a console core and an optional file core
func New(opts Options) *zap.Logger {
	level := zapcore.InfoLevel
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if opts.Verbose {
		level = zapcore.DebugLevel
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	var console zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if opts.Console != nil {
		console = zapcore.AddSync(opts.Console)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), console, level),
	}

	if opts.File != "" {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    50, // MB
				MaxBackups: 5,
				MaxAge:     30, // days
			}),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zapcore.ErrorLevel))
}

// Get returns the global logger
func Get() *zap.Logger {
	if log == nil {
		Setup(Options{})
	}
	return log
}

// Sync flushes any buffered log entries
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
