package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/auth"
)

// Routes groups the HTTP surfaces served on the main port.
type Routes struct {
	API      *Handler
	Webhooks interface{ RegisterRoutes(r *mux.Router) }
	Realtime http.Handler
	Verifier *auth.Verifier
}

// NewRouter builds the main router: public webhooks, the websocket endpoint
// (which authenticates on its own) and the JWT-protected API under /api.
func NewRouter(routes Routes) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestID, Recover, AccessLog)

	if routes.Webhooks != nil {
		routes.Webhooks.RegisterRoutes(r)
	}
	if routes.Realtime != nil {
		r.Handle("/ws", routes.Realtime).Methods(http.MethodGet)
	}
	if routes.API != nil {
		protected := r.PathPrefix("/api").Subrouter()
		protected.Use(auth.Middleware(routes.Verifier))
		routes.API.RegisterRoutes(protected)
	}
	return r
}
