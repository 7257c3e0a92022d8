package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/config"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/jetstream"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/observer"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/validator"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
)

// Publisher enqueues outbound send jobs on the dispatch stream.
type Publisher struct {
	js  jetstream.ClientInterface
	cfg config.DispatchConfig
}

func NewPublisher(js jetstream.ClientInterface, cfg config.DispatchConfig) *Publisher {
	return &Publisher{js: js, cfg: cfg}
}

// Enqueue publishes the job with the message id as Nats-Msg-Id, so a
// repeated enqueue inside the duplicate window is dropped by the server.
func (p *Publisher) Enqueue(ctx context.Context, job model.DispatchJob) error {
	if err := validator.Validate(job); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, err)
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch job: %w", err)
	}

	subject := subjectFor(p.cfg, job.CompanyID)
	if err := p.js.Publish(ctx, subject, data, job.MessageID); err != nil {
		observer.IncDispatchEnqueued(job.CompanyID, "error")
		logger.FromContext(ctx).Error("Failed to enqueue dispatch job",
			zap.String("message_id", job.MessageID),
			zap.String("subject", subject),
			zap.Error(err))
		return apperrors.NewRetryable(err, "enqueue message %s", job.MessageID)
	}

	observer.IncDispatchEnqueued(job.CompanyID, "ok")
	logger.FromContext(ctx).Debug("Dispatch job enqueued",
		zap.String("message_id", job.MessageID),
		zap.String("subject", subject))
	return nil
}
