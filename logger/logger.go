// Package logger builds the zap loggers used by the vmstore tools.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the logger settings.
type Config struct {
	// Level is the minimum level: debug, info, warn, or error. Anything
	// else means info.
	Level string

	// Format is console or json.
	Format string

	// OutputFile is stdout, stderr, or a file path to append to.
	OutputFile string
}

// New creates a logger. The returned level can be changed while the logger
// is in use.
func New(config Config) (*zap.Logger, zap.AtomicLevel, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(config.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	writeSyncer, err := getWriteSyncer(config.OutputFile)
	if err != nil {
		return nil, level, err
	}

	core := zapcore.NewCore(getEncoder(config.Format), writeSyncer, level)
	logger := zap.New(core, zap.AddCaller()).
		With(zap.String("service", "vmstore"))

	return logger, level, nil
}

func getEncoder(format string) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	if strings.ToLower(format) == "json" {
		return zapcore.NewJSONEncoder(encoderConfig)
	}

	return zapcore.NewConsoleEncoder(encoderConfig)
}

func getWriteSyncer(outputFile string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(outputFile) {
	case "stderr", "":
		return zapcore.Lock(os.Stderr), nil
	case "stdout":
		return zapcore.Lock(os.Stdout), nil
	default:
		file, err := os.OpenFile(outputFile,
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", outputFile, err)
		}

		return zapcore.AddSync(file), nil
	}
}
