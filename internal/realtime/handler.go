package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/auth"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/config"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/utils"
)

// Options tune connection buffers and keepalive.
type Options struct {
	SendBuffer int
	WriteWait  time.Duration
	PongWait   time.Duration
}

// OptionsFromConfig fills unset values with defaults.
func OptionsFromConfig(cfg config.RealtimeConfig) Options {
	opts := Options{SendBuffer: cfg.SendBuffer, WriteWait: cfg.WriteWait, PongWait: cfg.PongWait}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = 10 * time.Second
	}
	if opts.PongWait <= 0 {
		opts.PongWait = 60 * time.Second
	}
	return opts
}

// Emitter publishes an event to a tenant room.
type Emitter interface {
	Emit(evt model.RealtimeEvent)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler authenticates websocket connections and joins them to their tenant room.
type Handler struct {
	hub      *Hub
	verifier *auth.Verifier
	emitter  Emitter
	opts     Options
}

// NewHandler creates the websocket endpoint
func NewHandler(hub *Hub, verifier *auth.Verifier, emitter Emitter, opts Options) *Handler {
	return &Handler{hub: hub, verifier: verifier, emitter: emitter, opts: opts}
}

// ServeHTTP rejects requests without a valid token before upgrading.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := h.verifier.Verify(auth.TokenFromRequest(r))
	if err != nil {
		logger.FromContext(r.Context()).Debug("Rejected websocket connection", zap.Error(err))
		utils.WriteError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warn("WebSocket upgrade error", zap.Error(err))
		return
	}

	companyID, userID := claims.CompanyID, claims.UserID()
	client := newClient(conn, companyID, userID, h.opts)
	if first := h.hub.Register(client); first {
		h.emitPresence(companyID, userID, true)
	}
	logger.Log.Debug("Realtime client joined",
		zap.String("room", RoomName(companyID)),
		zap.String("user_id", userID))

	go client.writePump()
	go func() {
		client.readPump()
		if last := h.hub.Unregister(client); last {
			h.emitPresence(companyID, userID, false)
		}
		logger.Log.Debug("Realtime client left",
			zap.String("room", RoomName(companyID)),
			zap.String("user_id", userID))
	}()
}

func (h *Handler) emitPresence(companyID, userID string, online bool) {
	if h.emitter == nil {
		return
	}
	h.emitter.Emit(model.RealtimeEvent{
		CompanyID: companyID,
		Type:      model.EventUserOnline,
		Data:      model.UserOnlineData{UserID: userID, Online: online},
	})
}
