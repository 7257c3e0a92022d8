package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/ingestion/handler"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
)

// WebhookServiceMock mocks the handler.WebhookService interface
type WebhookServiceMock struct {
	mock.Mock
}

var _ handler.WebhookService = (*WebhookServiceMock)(nil)

func (m *WebhookServiceMock) HandleIncoming(ctx context.Context, msg model.IncomingMessage) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func (m *WebhookServiceMock) HandleConnectionUpdate(ctx context.Context, instance, state string) error {
	args := m.Called(ctx, instance, state)
	return args.Error(0)
}
