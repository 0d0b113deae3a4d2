package logger

import (
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MaxErrorDetail bounds how much of an upstream error message is logged.
const MaxErrorDetail = 200

// New creates a new zap logger
func New(development bool) (*zap.Logger, error) {
	var cfg zap.Config

	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	return cfg.Build(zap.Fields(zap.String("service", "finsight")))
}

// Must creates a logger or panics
func Must(development bool) *zap.Logger {
	log, err := New(development)
	if err != nil {
		panic(err)
	}
	return log
}

// ErrorDetail returns the error as a string field cut to MaxErrorDetail bytes.
// Upstream APIs sometimes echo whole request bodies back in their errors.
func ErrorDetail(err error) zap.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.String("error", Truncate(err.Error(), MaxErrorDetail))
}

// Truncate cuts s to at most max bytes without splitting a rune.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
