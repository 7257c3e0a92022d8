package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/config"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/jetstream"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
)

// subjectFilter matches every per-tenant dispatch subject.
func subjectFilter(cfg config.DispatchConfig) string {
	return cfg.Subject + ".*"
}

// subjectFor returns the subject a tenant's jobs are published on.
func subjectFor(cfg config.DispatchConfig, companyID string) string {
	return cfg.Subject + "." + companyID
}

// StreamConfig is the work-queue stream holding pending dispatch jobs.
func StreamConfig(cfg config.DispatchConfig) *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:       cfg.Stream,
		Subjects:   []string{subjectFilter(cfg)},
		Storage:    nats.FileStorage,
		Retention:  nats.WorkQueuePolicy,
		MaxAge:     time.Duration(cfg.MaxAgeDays) * 24 * time.Hour,
		Duplicates: cfg.DuplicateWindow,
	}
}

// ConsumerConfig is the durable pull consumer used by every worker replica.
func ConsumerConfig(cfg config.DispatchConfig) *nats.ConsumerConfig {
	return &nats.ConsumerConfig{
		Durable:       cfg.Consumer,
		FilterSubject: subjectFilter(cfg),
		AckPolicy:     nats.AckExplicitPolicy,
		MaxDeliver:    cfg.MaxDeliver,
		AckWait:       cfg.AckWait,
		MaxAckPending: cfg.MaxAckPending,
		DeliverPolicy: nats.DeliverAllPolicy,
		ReplayPolicy:  nats.ReplayInstantPolicy,
	}
}

// Setup ensures the dispatch stream and its consumer exist.
func Setup(ctx context.Context, js jetstream.ClientInterface, cfg config.DispatchConfig) error {
	if err := js.SetupStream(ctx, StreamConfig(cfg)); err != nil {
		return fmt.Errorf("failed to setup dispatch stream '%s': %w", cfg.Stream, err)
	}
	if err := js.SetupConsumer(ctx, cfg.Stream, ConsumerConfig(cfg)); err != nil {
		return fmt.Errorf("failed to setup dispatch consumer '%s': %w", cfg.Consumer, err)
	}
	logger.FromContext(ctx).Info("Dispatch stream ready",
		zap.String("stream", cfg.Stream),
		zap.String("consumer", cfg.Consumer),
		zap.Int("max_deliver", cfg.MaxDeliver),
	)
	return nil
}
