package contract

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	loggerMu sync.RWMutex
	logger   = mustLogger(false)
)

// newLogger builds the console logger used by the CLI. Output goes to stderr
// so that stdout stays clean for tables and the MCP protocol.
func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.DisableStacktrace = true
	config.DisableCaller = true
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

func mustLogger(verbose bool) *zap.Logger {
	l, err := newLogger(verbose)
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// InitLogger replaces the process logger according to the verbosity flag.
func InitLogger(verbose bool) error {
	l, err := newLogger(verbose)
	if err != nil {
		return err
	}
	SetLogger(l)
	return nil
}

// Logger returns the process-wide logger.
func Logger() *zap.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// SetLogger swaps the process logger and returns a func restoring the previous one.
func SetLogger(l *zap.Logger) (restore func()) {
	loggerMu.Lock()
	prev := logger
	logger = l
	loggerMu.Unlock()
	return func() { SetLogger(prev) }
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	l := Logger()
	l.Error(msg, zap.Error(err))
	_ = l.Sync()
	os.Exit(1)
}

// LogWarn logs a warning with its cause.
func LogWarn(msg string, err error) {
	Logger().Warn(msg, zap.Error(err))
}
