// Package logger provides a thin construction wrapper around zap, matching
// the New(service string) (*zap.SugaredLogger, error) call the
// ardanlabs/blockchain node and barledger services use from their main
// functions. Nothing in this module's core packages imports zap directly;
// callers that want mining or validation progress logged wire a
// *zap.SugaredLogger into an block.EventHandler via Adapt.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New constructs a JSON-encoded, ISO8601-timestamped SugaredLogger tagged
// with service on every entry. Callers must defer log.Sync() to flush
// buffered entries before process exit.
func New(service string) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	config.EncoderConfig.TimeKey = "date"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.InitialFields = map[string]any{
		"service": service,
	}

	log, err := config.Build(zap.WithCaller(true))
	if err != nil {
		return nil, err
	}

	return log.Sugar(), nil
}

// Adapt returns a block.EventHandler-shaped func(string, ...any) that
// writes each event at Info level, letting mining and validation code stay
// unaware of the logging library in use.
func Adapt(log *zap.SugaredLogger) func(string, ...any) {
	return func(v string, args ...any) {
		if len(args) == 0 {
			log.Infow("event", "msg", v)
			return
		}
		log.Infow("event", "msg", fmt.Sprintf(v, args...))
	}
}
