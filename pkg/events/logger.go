package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// WatermillLogger forwards watermill logs to zerolog.
type WatermillLogger struct {
	logger zerolog.Logger
}

var _ watermill.LoggerAdapter = WatermillLogger{}

func NewWatermillLogger(l zerolog.Logger) WatermillLogger {
	return WatermillLogger{logger: l.With().Str("component", "watermill").Logger()}
}

func (w WatermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.logger.Error().Err(err).Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w WatermillLogger) Info(msg string, fields watermill.LogFields) {
	w.logger.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w WatermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.logger.Trace().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w WatermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.logger.Trace().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (w WatermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return WatermillLogger{logger: w.logger.With().Fields(map[string]interface{}(fields)).Logger()}
}
