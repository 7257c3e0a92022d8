package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/config"
	internal_js "gitlab.com/timkado/api/daisi-wa-crm/internal/jetstream"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/observer"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/provider"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/storage"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/tenant"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/validator"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/utils"
)

const (
	defaultMsgChanCap = 100
	fetchMaxWait      = 5 * time.Second
	taskTimeout       = 1 * time.Minute
	submitRetryDelay  = 5 * time.Second
)

// Attempt outcomes, used as metric labels.
const (
	outcomeSent      = "sent"
	outcomeRetry     = "retry"
	outcomeExhausted = "exhausted"
	outcomeInvalid   = "invalid"
)

// StatusMarker records the outcome of a send attempt on the message.
type StatusMarker interface {
	MarkStatus(ctx context.Context, companyID, messageID, status string) error
}

// delivery is the part of a JetStream message the worker acts on. *nats.Msg satisfies it.
type delivery interface {
	Metadata() (*nats.MsgMetadata, error)
	Ack(opts ...nats.AckOpt) error
	NakWithDelay(delay time.Duration, opts ...nats.AckOpt) error
	Term(opts ...nats.AckOpt) error
	InProgress(opts ...nats.AckOpt) error
}

// Worker pulls dispatch jobs and delivers them to the provider.
type Worker struct {
	cfg       config.DispatchConfig
	logger    *zap.Logger
	js        internal_js.ClientInterface
	pool      *ants.Pool
	sender    provider.Sender
	status    StatusMarker
	exhausted storage.ExhaustedDispatchRepo
	msgCh     chan *nats.Msg
	stopWg    sync.WaitGroup

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// NewWorker creates the worker and its goroutine pool. The stream and consumer
// must already exist (see Setup).
func NewWorker(cfg *config.Config, logger *zap.Logger, jsClient internal_js.ClientInterface, sender provider.Sender, status StatusMarker, exhaustedRepo storage.ExhaustedDispatchRepo) (*Worker, error) {
	poolCfg := cfg.WorkerPools.Dispatch
	pool, err := ants.NewPool(poolCfg.PoolSize,
		ants.WithMaxBlockingTasks(poolCfg.QueueSize),
		ants.WithExpiryDuration(poolCfg.ExpiryTime),
		ants.WithLogger(newAntsLoggerAdapter(logger.Named("ants_pool"))),
		ants.WithPanicHandler(func(err interface{}) {
			logger.Error("Dispatch task panic caught", zap.Any("error", err), zap.Stack("stack"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}

	worker := &Worker{
		cfg:       cfg.NATS.Dispatch,
		logger:    logger.Named("dispatch_worker"),
		js:        jsClient,
		pool:      pool,
		sender:    sender,
		status:    status,
		exhausted: exhaustedRepo,
		msgCh:     make(chan *nats.Msg, defaultMsgChanCap),
	}

	if ackWait := cfg.NATS.Dispatch.AckWait; ackWait > 0 && ackWait <= cfg.Provider.Timeout {
		worker.logger.Warn("Dispatch ackWait does not exceed the provider timeout, jobs may be redelivered mid-send",
			zap.Duration("ack_wait", ackWait),
			zap.Duration("provider_timeout", cfg.Provider.Timeout))
	}

	worker.logger.Info("Dispatch worker initialized", zap.Int("pool_size", poolCfg.PoolSize))
	return worker, nil
}

// Start runs the fetch and submit loops until ctx is cancelled or Stop is
// called. It returns immediately if the worker was already stopped.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	derivedCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	sub, err := w.js.SubscribePull(w.cfg.Stream, subjectFilter(w.cfg), w.cfg.Consumer)
	if err != nil {
		w.mu.Unlock()
		cancel()
		return fmt.Errorf("failed to create dispatch pull subscription: %w", err)
	}

	w.stopWg.Add(2)
	go w.fetchMessages(derivedCtx, sub)
	go w.submitMessages(derivedCtx)
	w.mu.Unlock()

	w.logger.Info("Dispatch worker started",
		zap.String("stream", w.cfg.Stream),
		zap.String("consumer", w.cfg.Consumer))

	<-derivedCtx.Done()
	w.logger.Info("Dispatch worker context cancelled, initiating shutdown...")
	return nil
}

// Stop waits for the loops, then for in-flight tasks, and releases the pool.
// Safe to call before Start and more than once.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	w.logger.Info("Stopping dispatch worker...")

	w.stopWg.Wait()
	close(w.msgCh)

	if err := w.pool.ReleaseTimeout(10 * time.Second); err != nil {
		w.logger.Warn("Dispatch pool did not drain in time", zap.Error(err))
	}
	w.logger.Info("Dispatch worker stopped")
}

func (w *Worker) fetchMessages(ctx context.Context, sub *nats.Subscription) {
	defer w.stopWg.Done()

	batch := w.cfg.FetchBatch
	if batch <= 0 {
		batch = 10
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		observer.IncDispatchFetchRequest()
		msgs, err := sub.Fetch(batch, nats.MaxWait(fetchMaxWait))
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
				errors.Is(err, nats.ErrTimeout) || errors.Is(err, nats.ErrConnectionClosed) {
				if ctx.Err() != nil {
					return
				}
				continue
			}
			observer.IncDispatchFetchError()
			w.logger.Error("Failed to fetch dispatch jobs", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range msgs {
			select {
			case w.msgCh <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (w *Worker) submitMessages(ctx context.Context) {
	defer w.stopWg.Done()

	for {
		observer.SetDispatchQueueLength(len(w.msgCh))
		observer.SetDispatchWorkersActive(w.pool.Running())

		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.msgCh:
			if !ok {
				return
			}
			currentMsg := msg
			err := w.pool.Submit(func() {
				taskCtx, taskCancel := context.WithTimeout(context.Background(), taskTimeout)
				defer taskCancel()
				w.handle(taskCtx, currentMsg, currentMsg.Subject, currentMsg.Data)
			})
			if err != nil {
				w.logger.Error("Failed to submit dispatch task", zap.Error(err))
				if nakErr := currentMsg.NakWithDelay(submitRetryDelay); nakErr != nil {
					w.logger.Error("Failed to NAK message after pool submission error", zap.Error(nakErr))
				}
			}
		}
	}
}

// handle performs one delivery attempt of a job.
func (w *Worker) handle(ctx context.Context, msg delivery, subject string, data []byte) {
	startTime := time.Now()

	meta, err := msg.Metadata()
	if err != nil {
		w.logger.Error("Failed to get message metadata", zap.Error(err))
		w.term(msg)
		return
	}

	var job model.DispatchJob
	if err := json.Unmarshal(data, &job); err != nil {
		w.logger.Error("Failed to decode dispatch job",
			zap.Error(err),
			zap.String("subject", subject),
			zap.Uint64("stream_sequence", meta.Sequence.Stream))
		observer.IncDispatchAttempt(model.CompanyFromSubject(subject), outcomeInvalid)
		w.term(msg)
		return
	}
	if err := validator.Validate(job); err != nil {
		w.logger.Error("Invalid dispatch job", zap.Error(err), zap.String("subject", subject))
		observer.IncDispatchAttempt(job.CompanyID, outcomeInvalid)
		w.term(msg)
		return
	}
	defer func() {
		observer.ObserveDispatchDuration(job.CompanyID, time.Since(startTime))
	}()

	attempt := meta.NumDelivered
	log := w.logger.With(
		zap.String("company_id", job.CompanyID),
		zap.String("message_id", job.MessageID),
		zap.Uint64("attempt", attempt),
	)
	ctx = tenant.WithCompanyID(ctx, job.CompanyID)
	ctx = logger.WithLogger(ctx, log)

	// Each phase (provider call, status update) fits in AckWait on its own;
	// InProgress restarts the ack timer so the job is not redelivered mid-attempt.
	w.extendAck(log, msg)
	sendErr := w.sender.Send(ctx, provider.SendRequest{
		SessionName: job.SessionName,
		Number:      provider.NormalizeNumber(job.Phone),
		Text:        job.Content,
		MediaURL:    job.MediaURL,
		MediaType:   job.MediaType,
	})
	w.extendAck(log, msg)

	if sendErr == nil {
		if err := w.status.MarkStatus(ctx, job.CompanyID, job.MessageID, model.MessageStatusSent); err != nil {
			log.Error("Message sent but status update failed", zap.Error(err))
		}
		if err := msg.Ack(); err != nil {
			log.Error("Failed to ACK dispatched message", zap.Error(err))
		}
		observer.IncDispatchAttempt(job.CompanyID, outcomeSent)
		log.Info("Message dispatched")
		return
	}

	log.Warn("Dispatch attempt failed", zap.Error(sendErr))
	if err := w.status.MarkStatus(ctx, job.CompanyID, job.MessageID, model.MessageStatusFailed); err != nil {
		log.Error("Failed to mark message as failed", zap.Error(err))
	}

	if attempt >= uint64(w.cfg.MaxDeliver) {
		w.exhaust(ctx, log, msg, subject, data, job, attempt, sendErr)
		return
	}

	delay := utils.ExponentialDelay(w.cfg.NakBaseDelay, w.cfg.NakMaxDelay, attempt)
	if err := msg.NakWithDelay(delay); err != nil {
		log.Error("Failed to NAK message with delay", zap.Error(err))
	}
	observer.IncDispatchAttempt(job.CompanyID, outcomeRetry)
	log.Info("Dispatch scheduled for retry", zap.Duration("delay", delay))
}

// exhaust records the job and removes it from the stream; the message stays FAILED.
func (w *Worker) exhaust(ctx context.Context, log *zap.Logger, msg delivery, subject string, data []byte, job model.DispatchJob, attempt uint64, lastErr error) {
	record := &model.ExhaustedDispatch{
		CompanyID: job.CompanyID,
		MessageID: job.MessageID,
		Subject:   subject,
		LastError: lastErr.Error(),
		Attempts:  int(attempt),
		Payload:   datatypes.JSON(data),
	}
	if err := w.exhausted.Save(ctx, record); err != nil {
		log.Error("Failed to persist exhausted dispatch, terminating anyway", zap.Error(err))
	}

	w.term(msg)
	observer.IncDispatchAttempt(job.CompanyID, outcomeExhausted)
	log.Warn("Dispatch attempts exhausted, message left FAILED")
}

func (w *Worker) extendAck(log *zap.Logger, msg delivery) {
	if err := msg.InProgress(); err != nil {
		log.Warn("Failed to extend ack deadline", zap.Error(err))
	}
}

func (w *Worker) term(msg delivery) {
	if err := msg.Term(); err != nil {
		w.logger.Error("Failed to terminate message", zap.Error(err))
	}
}

// --- Ants Logger Adapter ---

type antsLoggerAdapter struct {
	logger *zap.Logger
}

func newAntsLoggerAdapter(logger *zap.Logger) *antsLoggerAdapter {
	return &antsLoggerAdapter{logger: logger}
}

func (a *antsLoggerAdapter) Printf(format string, args ...interface{}) {
	a.logger.Info(fmt.Sprintf(format, args...))
}
