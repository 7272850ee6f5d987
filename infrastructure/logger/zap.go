package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Logger *zap.Logger

// InitializeLogger builds the process-wide zap logger. In debug mode logs are
// human readable on the console; in release mode they are JSON on stdout.
func InitializeLogger() {
	if os.Getenv("GIN_MODE") == "debug" {
		config := zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		Logger, _ = config.Build()
		return
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(os.Stdout), zapcore.InfoLevel)
	Logger = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

func init() {
	// A usable logger must exist even before InitializeLogger runs so that
	// package init code can log.
	if Logger == nil {
		Logger = zap.NewNop()
		InitializeLogger()
	}
}
