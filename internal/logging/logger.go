package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the run logger: JSON entries appended to
// <runDir>/logs/courseforge.log plus a console echo at Info and above.
// Components receive the logger explicitly; there is no package-level
// global.
func New(runDir string, verbose bool) (*zap.Logger, error) {
	logDir := filepath.Join(runDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, "courseforge.log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(file),
		zap.DebugLevel,
	)
	consoleLevel := zap.InfoLevel
	if !verbose {
		consoleLevel = zap.WarnLevel
	}
	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.TimeKey = ""
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleCfg),
		zapcore.AddSync(os.Stderr),
		consoleLevel,
	)
	return zap.New(zapcore.NewTee(fileCore, consoleCore)), nil
}

// NewNop returns a discard-all logger for tests and dry runs.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
