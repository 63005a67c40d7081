package alerts

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogSink writes alerts through zerolog. It is the default sink, used in
// tests and whenever no webhook URL is configured.
type LogSink struct{}

// NewLogSink creates a LogSink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Send(ctx context.Context, alert Alert) error {
	event := log.Warn()
	if alert.Severity == SeverityError {
		event = log.Error()
	} else if alert.Severity == SeverityInfo {
		event = log.Info()
	}

	for k, v := range alert.Fields {
		event = event.Interface(k, v)
	}

	event.Msg(alert.Message)
	return nil
}
