package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/storage"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/tenant"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
)

// Notifier pushes an event to the tenant's realtime room. Delivery is best effort.
type Notifier interface {
	Emit(evt model.RealtimeEvent)
}

// Enqueuer hands an outbound message to the dispatch queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, job model.DispatchJob) error
}

// CRMService implements contact and ticket resolution, the message store,
// and the inbound webhook pipeline.
type CRMService struct {
	contactRepo storage.ContactRepo
	accountRepo storage.ChannelAccountRepo
	funnelRepo  storage.FunnelRepo
	ticketRepo  storage.TicketRepo
	messageRepo storage.MessageRepo
	userRepo    storage.UserRepo
	notifier    Notifier
	enqueuer    Enqueuer
}

// NewCRMService creates a new CRM service
func NewCRMService(
	contactRepo storage.ContactRepo,
	accountRepo storage.ChannelAccountRepo,
	funnelRepo storage.FunnelRepo,
	ticketRepo storage.TicketRepo,
	messageRepo storage.MessageRepo,
	userRepo storage.UserRepo,
	notifier Notifier,
	enqueuer Enqueuer,
) *CRMService {
	return &CRMService{
		contactRepo: contactRepo,
		accountRepo: accountRepo,
		funnelRepo:  funnelRepo,
		ticketRepo:  ticketRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		enqueuer:    enqueuer,
	}
}

// scoped binds the tenant to ctx so every repository call is filtered by it.
func scoped(ctx context.Context, companyID string) context.Context {
	return tenant.WithCompanyID(ctx, companyID)
}

func (s *CRMService) emit(companyID string, eventType model.RealtimeEventType, data interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.Emit(model.RealtimeEvent{CompanyID: companyID, Type: eventType, Data: data})
}

// handleRepositoryError classifies repository errors as fatal or retryable.
// The wrapped sentinel stays reachable through errors.Is.
func handleRepositoryError(ctx context.Context, err error, operation string, entityID string) error {
	if err == nil {
		return nil
	}

	log := logger.FromContext(ctx)

	logFields := []zap.Field{
		zap.String("operation", operation),
		zap.Error(err),
	}
	if entityID != "" {
		logFields = append(logFields, zap.String("entity_id", entityID))
	}

	// Specific fatal errors (cannot be resolved by retry)
	if errors.Is(err, apperrors.ErrNotFound) {
		log.Warn("Repository operation failed: Not found", logFields...)
		return apperrors.NewFatal(err, "%s failed: resource not found", operation)
	}
	if errors.Is(err, apperrors.ErrConfiguration) {
		log.Error("Repository operation failed: Tenant misconfigured", logFields...)
		return apperrors.NewFatal(err, "%s failed: configuration error", operation)
	}
	if errors.Is(err, apperrors.ErrValidation) {
		log.Warn("Repository operation failed: Validation", logFields...)
		return apperrors.NewFatal(err, "%s failed: validation error", operation)
	}
	if errors.Is(err, apperrors.ErrDuplicate) {
		log.Warn("Repository operation failed: Duplicate resource", logFields...)
		return apperrors.NewFatal(err, "%s failed: duplicate resource", operation)
	}
	if errors.Is(err, apperrors.ErrBadRequest) {
		log.Warn("Repository operation failed: Bad request", logFields...)
		return apperrors.NewFatal(err, "%s failed: bad request data", operation)
	}
	if errors.Is(err, apperrors.ErrUnauthorized) {
		log.Error("Repository operation failed: Unauthorized", logFields...)
		return apperrors.NewFatal(err, "%s failed: unauthorized", operation)
	}
	if errors.Is(err, apperrors.ErrConflict) {
		log.Warn("Repository operation failed: Conflict", logFields...)
		return apperrors.NewFatal(err, "%s failed: resource conflict", operation)
	}

	// General database errors (potentially retryable)
	if errors.Is(err, apperrors.ErrDatabase) {
		log.Error("Repository operation failed: Database error", logFields...)
		return apperrors.NewRetryable(err, "%s failed: database error", operation)
	}
	if errors.Is(err, apperrors.ErrTimeout) {
		log.Warn("Repository operation failed: Timeout", logFields...)
		return apperrors.NewRetryable(err, "%s failed: operation timeout", operation)
	}
	if errors.Is(err, apperrors.ErrNATS) {
		log.Error("Repository operation failed: NATS error", logFields...)
		return apperrors.NewRetryable(err, "%s failed: NATS communication error", operation)
	}

	log.Error("Repository operation failed: Unexpected error", logFields...)
	return apperrors.NewFatal(err, "%s failed: unexpected repository error", operation)
}
