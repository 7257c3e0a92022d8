package ingestion

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/observer"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/tenant"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/utils"
)

const maxWebhookBodyBytes = 2 << 20

// ReceivedResponse is the body of every webhook response.
type ReceivedResponse struct {
	Received bool `json:"received"`
}

// WebhookServer exposes the provider webhook endpoints. Every request is
// acknowledged with 200 so the provider never redelivers on internal failures.
type WebhookServer struct {
	router RouterInterface
}

// NewWebhookServer creates the HTTP boundary for provider webhooks
func NewWebhookServer(router RouterInterface) *WebhookServer {
	return &WebhookServer{router: router}
}

// RegisterRoutes mounts the webhook endpoints on r.
func (s *WebhookServer) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/webhook", s.handleGlobal).Methods(http.MethodPost)
	r.HandleFunc("/webhook/{event}", s.handleEvent).Methods(http.MethodPost)
}

// handleEvent serves the one-route-per-event mode; the body is the event payload itself.
func (s *WebhookServer) handleEvent(w http.ResponseWriter, r *http.Request) {
	event := mux.Vars(r)["event"]
	body, ok := s.readBody(w, r, event)
	if !ok {
		return
	}

	metadata := &model.WebhookMetadata{
		Event:      event,
		RequestID:  requestID(r),
		ReceivedAt: utils.Now(),
	}
	s.route(w, r, metadata, body)
}

// handleGlobal serves the combined mode, where the event name travels in the body
// and the payload is nested under data.
func (s *WebhookServer) handleGlobal(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r, "global")
	if !ok {
		return
	}

	var envelope model.GlobalWebhookPayload
	if err := json.Unmarshal(body, &envelope); err != nil {
		logger.FromContext(r.Context()).Warn("Malformed global webhook body", zap.Error(err))
		observer.IncWebhookAction("global", "", "dropped", "malformed_body")
		acknowledge(w)
		return
	}

	payload := []byte(envelope.Data)
	if len(payload) == 0 {
		payload = body
	}

	metadata := &model.WebhookMetadata{
		Event:      envelope.Event,
		Instance:   envelope.InstanceID(),
		RequestID:  requestID(r),
		ReceivedAt: utils.Now(),
	}
	s.route(w, r, metadata, payload)
}

func (s *WebhookServer) readBody(w http.ResponseWriter, r *http.Request, event string) ([]byte, bool) {
	observer.IncWebhookReceived(event)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		logger.FromContext(r.Context()).Warn("Failed to read webhook body", zap.String("event", event), zap.Error(err))
		observer.IncWebhookAction(event, "", "dropped", "read_body")
		acknowledge(w)
		return nil, false
	}
	return body, true
}

func (s *WebhookServer) route(w http.ResponseWriter, r *http.Request, metadata *model.WebhookMetadata, body []byte) {
	ctx := tenant.WithRequestID(r.Context(), metadata.RequestID)
	if err := s.router.Route(ctx, metadata, body); err != nil {
		logger.FromContext(ctx).Error("Webhook processing failed",
			zap.String("event", metadata.Event),
			zap.Error(err))
	}
	acknowledge(w)
}

func acknowledge(w http.ResponseWriter) {
	utils.WriteJSONResponse(w, http.StatusOK, ReceivedResponse{Received: true})
}

func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}
