// Package logger holds the process-wide zap logger used by the CLI and the
// helpers components use to enrich it.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is a no-op until Initialize runs, so packages can log from
	// init and tests without setup.
	Logger = zap.NewNop().Sugar()

	// JSONOutput reports whether the last Initialize chose JSON encoding.
	JSONOutput bool
)

// Initialize installs an info-level logger.
func Initialize(jsonOutput bool) error {
	return InitializeWithLevel(jsonOutput, zap.InfoLevel)
}

// InitializeWithLevel installs a logger writing to stderr at level, as JSON
// for log shippers or as colored console lines for people.
func InitializeWithLevel(jsonOutput bool, level zapcore.Level) error {
	cfg := consoleConfig()
	if jsonOutput {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	built, err := cfg.Build()
	if err != nil {
		return err
	}
	Logger = built.Sugar()
	JSONOutput = jsonOutput
	return nil
}

func consoleConfig() zap.Config {
	cfg := zap.NewDevelopmentConfig()
	cfg.Development = false
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	return cfg
}

// Cleanup flushes buffered entries. Sync errors on terminals are expected
// and ignored.
func Cleanup() {
	_ = Logger.Sync()
}

func Infow(msg string, keysAndValues ...interface{})  { Logger.Infow(msg, keysAndValues...) }
func Warnw(msg string, keysAndValues ...interface{})  { Logger.Warnw(msg, keysAndValues...) }
func Errorw(msg string, keysAndValues ...interface{}) { Logger.Errorw(msg, keysAndValues...) }
func Debugw(msg string, keysAndValues ...interface{}) { Logger.Debugw(msg, keysAndValues...) }
