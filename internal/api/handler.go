package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/tenant"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/validator"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/utils"
)

// CRMService is the set of user actions exposed over HTTP.
type CRMService interface {
	CreateOutboundMessage(ctx context.Context, companyID, ticketID string, out model.OutboundMessage) (*model.Message, error)
	ListTicketMessages(ctx context.Context, companyID, ticketID string) ([]model.Message, error)
	MarkAsRead(ctx context.Context, companyID, messageID string) error
	MoveTicketToStep(ctx context.Context, companyID, ticketID, stepID string) (*model.Ticket, error)
	AssignTicket(ctx context.Context, companyID, ticketID string, userID *string) (*model.Ticket, error)
}

// SuccessResponse acknowledges actions without a resource body.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// Handler serves the authenticated CRM endpoints.
type Handler struct {
	service CRMService
}

// NewHandler creates the API handler
func NewHandler(service CRMService) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the endpoints on an authenticated subrouter.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/tickets/{ticketId}/messages", h.sendMessage).Methods(http.MethodPost)
	r.HandleFunc("/tickets/{ticketId}/messages", h.listMessages).Methods(http.MethodGet)
	r.HandleFunc("/tickets/{ticketId}/step", h.moveTicket).Methods(http.MethodPatch)
	r.HandleFunc("/tickets/{ticketId}/assign", h.assignTicket).Methods(http.MethodPatch)
	r.HandleFunc("/messages/{messageId}/read", h.markAsRead).Methods(http.MethodPost)
}

// companyID is always the tenant of the authenticated token.
func companyID(r *http.Request) (string, error) {
	id, err := tenant.FromContext(r.Context())
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}
	return id, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if utils.HTTPStatusFromError(err) >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	utils.WriteError(w, err)
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	company, err := companyID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var body model.OutboundMessage
	if err := utils.DecodeJSONBody(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	if userID, err := tenant.UserFromContext(r.Context()); err == nil {
		body.SenderID = &userID
	}

	msg, err := h.service.CreateOutboundMessage(r.Context(), company, mux.Vars(r)["ticketId"], body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, msg)
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	company, err := companyID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	messages, err := h.service.ListTicketMessages(r.Context(), company, mux.Vars(r)["ticketId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, messages)
}

func (h *Handler) markAsRead(w http.ResponseWriter, r *http.Request) {
	company, err := companyID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.service.MarkAsRead(r.Context(), company, mux.Vars(r)["messageId"]); err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, SuccessResponse{Success: true})
}

func (h *Handler) moveTicket(w http.ResponseWriter, r *http.Request) {
	company, err := companyID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var body model.MoveTicketRequest
	if err := utils.DecodeJSONBody(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := validator.Validate(body); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		return
	}

	ticket, err := h.service.MoveTicketToStep(r.Context(), company, mux.Vars(r)["ticketId"], body.FunnelStepID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, ticket)
}

func (h *Handler) assignTicket(w http.ResponseWriter, r *http.Request) {
	company, err := companyID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var body model.AssignTicketRequest
	if err := utils.DecodeJSONBody(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	ticket, err := h.service.AssignTicket(r.Context(), company, mux.Vars(r)["ticketId"], body.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, ticket)
}
