// Package log builds the zap loggers used by the reader commands.
package log

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a sugared logger writing to w. Debug selects zap's
// development encoding (console, debug level, stack traces on warnings);
// otherwise entries are production JSON at the given level.
func New(w io.Writer, debug bool, level zapcore.Level) *zap.SugaredLogger {
	var (
		enc  zapcore.Encoder
		opts = []zap.Option{zap.AddCaller()}
	)
	if debug {
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		level = zapcore.DebugLevel
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	} else {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), level)
	return zap.New(core, opts...).Sugar()
}
