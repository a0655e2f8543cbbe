// Package logging builds the zap logger shared by every OxiSign component.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/parisxmas/OxiDB/OxiSign/internal/gelf"
)

const Service = "oxisign"

type Options struct {
	Environment string
	Level       string
	GelfAddr    string
}

// New returns a console logger in development and a JSON logger in
// production. When GelfAddr is set every entry is also shipped as GELF.
// The returned cleanup flushes the logger and closes the GELF socket.
func New(opts Options) (*zap.Logger, func(), error) {
	var cfg zap.Config
	if opts.Environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if opts.Level != "" {
		level, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("log level %q: %w", opts.Level, err)
		}
		cfg.Level.SetLevel(level)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}

	var gw *gelf.Writer
	if opts.GelfAddr != "" {
		gw, err = gelf.New(opts.GelfAddr, Service)
		if err != nil {
			logger.Warn("GELF init failed", zap.String("addr", opts.GelfAddr), zap.Error(err))
		} else {
			logger = logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
				return zapcore.NewTee(core, GelfCore(gw, cfg.Level))
			}))
			logger.Info("GELF logging enabled", zap.String("addr", opts.GelfAddr))
		}
	}

	cleanup := func() {
		_ = logger.Sync()
		if gw != nil {
			_ = gw.Close()
		}
	}
	return logger, cleanup, nil
}

// GelfCore encodes entries as JSON into w, one object per Write.
func GelfCore(w zapcore.WriteSyncer, level zapcore.LevelEnabler) zapcore.Core {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(enc), w, level)
}

// Must is New for command entrypoints that cannot continue without a logger.
func Must(opts Options) (*zap.Logger, func()) {
	logger, cleanup, err := New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	return logger, cleanup
}
