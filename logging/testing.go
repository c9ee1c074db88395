package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewTestLogger returns a logger suitable for tests: console encoding,
// debug level, writing to stdout.
func NewTestLogger() *Logger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapcore.DebugLevel),
		Development:      true,
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	log, err := config.Build()
	if err != nil {
		panic(err)
	}
	return &Logger{
		Logger: log,
		config: &config,
	}
}
