package provider

import (
	"context"

	"go.uber.org/zap"
)

// LogSender is a dry-run Sender: it logs the message and reports success.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("provider_dry_run")}
}

func (s *LogSender) Send(_ context.Context, req SendRequest) error {
	s.logger.Info("Dry-run send",
		zap.String("session", req.SessionName),
		zap.String("number", req.Number),
		zap.Int("text_len", len(req.Text)),
		zap.String("media_type", req.MediaType),
	)
	return nil
}
