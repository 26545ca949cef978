// Package nodelog builds the *zap.Logger every long-running component
// (Connection, Listener, Manager, Advertiser, PoW worker, I2P
// controller) holds as a *zap.SugaredLogger field. It is adapted from
// the teacher's cli/options.HandleLoggingParams: same zap production
// config, same console/json encoding switch, same terminal-detected
// timestamp behavior, trimmed of the Windows winfile sink (out of
// scope here) and the CLI-context debug-flag plumbing (folded into the
// Logger.LogLevel the caller already resolved).
package nodelog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/bmrelay/relaynode/pkg/config"
)

// New builds a *zap.Logger from a validated Logger config.
func New(cfg config.Logger) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.LogLevel != "" {
		var err error
		level, err = zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("nodelog: %w", err)
		}
	}
	encoding := cfg.LogEncoding
	if encoding == "" {
		encoding = "console"
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.Encoding = encoding
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	timestamp := cfg.LogTimestamp != nil && *cfg.LogTimestamp
	if term.IsTerminal(int(os.Stdout.Fd())) || timestamp {
		cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cc.EncoderConfig.EncodeTime = func(time.Time, zapcore.PrimitiveArrayEncoder) {}
	}

	if cfg.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
			return nil, fmt.Errorf("nodelog: %w", err)
		}
		cc.OutputPaths = []string{cfg.LogPath}
	}

	return cc.Build()
}
