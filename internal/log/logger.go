// Package log builds the zap logger every other internal package takes
// as a constructor argument: a file-backed logger whose file is
// owner-only (0600), returning the open file
// alongside the logger so the caller can close it on shutdown.
package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Indirections over os.OpenFile/os.Chmod so tests can inject failures.
var (
	osOpenFile = os.OpenFile
	osChmod    = os.Chmod
)

// New opens path (creating it if necessary) and returns a zap.Logger
// that writes structured JSON to the file and, when console is true, a
// human-readable copy to stdout as well.
func New(path string, console bool) (*zap.Logger, *os.File, error) {
	f, err := osOpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	if err := osChmod(path, 0o600); err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("failed to set log file permissions: %w", err)
	}

	fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	cores := []zapcore.Core{
		zapcore.NewCore(fileEncoder, zapcore.AddSync(f), zapcore.DebugLevel),
	}
	if console {
		consoleCfg := zap.NewDevelopmentEncoderConfig()
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleCfg),
			zapcore.AddSync(os.Stdout),
			zapcore.InfoLevel,
		))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	return logger, f, nil
}
