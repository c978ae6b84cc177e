// Package logging gives every component in the fabric the same narrow
// logging surface, backed by zap: Debugf/Infof/Warnf/Errorf/Fatalf, with
// one domain-scoped logger per subsystem.
package logging

import (
	"go.uber.org/zap"
)

// Logger is the narrow surface every package logs through. Implementations
// must be safe for concurrent use.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})

	// Named scopes a child logger under an additional domain tag, mirroring
	// the "zsock"/"ZK" log domains of the C implementation.
	Named(domain string) Logger
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a Logger. debug toggles zap's development config (console
// encoding, debug level) versus its production JSON encoder.
func New(debug bool) Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	l, err := cfg.Build()
	if err != nil {
		// Build only fails on a malformed config; NewDevelopmentConfig and
		// NewProductionConfig are both well-formed, so fall back to a
		// no-op logger rather than panic out of a constructor.
		l = zap.NewNop()
	}
	return &zapLogger{sugar: l.Sugar()}
}

func (z *zapLogger) Debugf(format string, args ...interface{}) { z.sugar.Debugf(format, args...) }
func (z *zapLogger) Infof(format string, args ...interface{})  { z.sugar.Infof(format, args...) }
func (z *zapLogger) Warnf(format string, args ...interface{})  { z.sugar.Warnf(format, args...) }
func (z *zapLogger) Errorf(format string, args ...interface{}) { z.sugar.Errorf(format, args...) }
func (z *zapLogger) Fatalf(format string, args ...interface{}) { z.sugar.Fatalf(format, args...) }

func (z *zapLogger) Named(domain string) Logger {
	return &zapLogger{sugar: z.sugar.Named(domain)}
}
