// Package logger owns the process-wide zap logger. Components log
// through module-scoped children so lines can be traced back to the
// subsystem that wrote them.
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global = zap.NewNop()

	// level is shared by every core Init builds, so verbosity can be
	// flipped without rebuilding the logger.
	level = zap.NewAtomicLevel()
)

// Init builds the global logger writing JSON lines to stderr. Unknown
// level names fall back to info rather than failing startup.
func Init(levelName string) error {
	parsed, err := zapcore.ParseLevel(levelName)
	if err != nil {
		parsed = zapcore.InfoLevel
	}
	level.SetLevel(parsed)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stderr), level)

	mu.Lock()
	global = zap.New(core, zap.AddCaller())
	mu.Unlock()
	return nil
}

// Logger returns the process-wide logger.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Sync flushes buffered entries. Safe on a logger that never wrote
// anything.
func Sync() error {
	return Logger().Sync()
}

// WithModule returns a child logger tagged with the subsystem name.
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}
