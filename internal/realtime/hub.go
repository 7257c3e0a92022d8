package realtime

import (
	"encoding/json"
	"sync"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/observer"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
)

// RoomName is the room every connection of a tenant joins.
func RoomName(companyID string) string {
	return "tenant:" + companyID
}

// Hub keeps the tenant rooms of this instance and fans events out to them.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
	// connections per user per room, for presence
	presence map[string]map[string]int
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[string]map[*Client]struct{}),
		presence: make(map[string]map[string]int),
	}
}

// Register joins the client to its tenant room. It reports whether this is
// the user's first connection in the room.
func (h *Hub) Register(c *Client) bool {
	room := RoomName(c.companyID)

	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[room]
	if !ok {
		clients = make(map[*Client]struct{})
		h.rooms[room] = clients
	}
	clients[c] = struct{}{}

	users, ok := h.presence[room]
	if !ok {
		users = make(map[string]int)
		h.presence[room] = users
	}
	users[c.userID]++

	observer.IncRealtimeConnections()
	return users[c.userID] == 1
}

// Unregister removes the client and closes its send buffer. It reports
// whether this was the user's last connection in the room. Calling it twice
// for the same client is a no-op returning false.
func (h *Hub) Unregister(c *Client) bool {
	room := RoomName(c.companyID)

	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[room]
	if !ok {
		return false
	}
	if _, ok := clients[c]; !ok {
		return false
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.rooms, room)
	}
	c.closeSend()
	observer.DecRealtimeConnections()

	users := h.presence[room]
	users[c.userID]--
	last := users[c.userID] <= 0
	if last {
		delete(users, c.userID)
	}
	if len(users) == 0 {
		delete(h.presence, room)
	}
	return last
}

// RoomSize returns the number of connections in the tenant's room.
func (h *Hub) RoomSize(companyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[RoomName(companyID)])
}

// Broadcast delivers the event to every connection of its tenant. Connections
// whose send buffer is full are dropped.
func (h *Hub) Broadcast(evt model.RealtimeEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		logger.Log.Error("Failed to marshal realtime event", zap.String("type", string(evt.Type)), zap.Error(err))
		observer.IncRealtimeEvent(string(evt.Type), "marshal_error")
		return
	}

	room := RoomName(evt.CompanyID)
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		observer.IncRealtimeEvent(string(evt.Type), "no_listeners")
		return
	}

	slow := iter.Map(clients, func(c **Client) bool {
		return !(*c).trySend(payload)
	})
	for i, dropped := range slow {
		if dropped {
			logger.Log.Warn("Realtime client send buffer full, disconnecting",
				zap.String("company_id", evt.CompanyID),
				zap.String("user_id", clients[i].userID))
			h.Unregister(clients[i])
		}
	}
	observer.IncRealtimeEvent(string(evt.Type), "delivered")
}
