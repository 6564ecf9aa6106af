package turtle_nav

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger from the log section. verbose forces debug.
func NewLogger(cfg LogConfig, verbose bool) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = parsed
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// commandFields renders a tick report for the per-tick debug line.
func commandFields(r TickReport, snap PerceptionSnapshot) []zap.Field {
	return []zap.Field{
		zap.Stringer("mode", r.Command.Mode),
		zap.Stringer("phase", r.Command.Phase),
		zap.Bool("line", snap.Line.Present),
		zap.Bool("sign", snap.Sign.Present),
		zap.Float64("sign_area", snap.Sign.Value.Area),
		zap.Bool("marker", snap.Marker.Present),
		zap.Bool("steered", r.Steered),
		zap.Float64("linear", r.Command.Linear),
		zap.Float64("angular", r.Command.Angular),
	}
}
