package notify

import (
	"context"

	"pullupd/pkg/logx"
)

// LogSink mirrors every alert into the structured log. Always enabled so
// a headless run without desktop or Telegram still leaves a trace.
type LogSink struct {
	log logx.Logger
}

func NewLogSink(log logx.Logger) *LogSink { return &LogSink{log: log} }

func (l *LogSink) Name() string { return "log" }

func (l *LogSink) Send(_ context.Context, n Notification) error {
	l.log.Info("alert",
		logx.String("kind", string(n.Kind)),
		logx.String("title", n.Title),
		logx.String("body", n.Body))
	return nil
}
