package realtime

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/auth"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/config"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/logger"
	"github.com/bigvision-74/SimCollectiveERP-sub000/pkg/types"
)

// Handler upgrades authenticated HTTP requests into hub connections
type Handler struct {
	hub       *Hub
	validator *auth.TokenValidator
	upgrader  websocket.Upgrader
	logger    *logger.Logger
}

// NewHandler creates the websocket endpoint handler
func NewHandler(hub *Hub, validator *auth.TokenValidator, cfg *config.RealtimeConfig, log *logger.Logger) *Handler {
	return &Handler{
		hub:       hub,
		validator: validator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return cfg.AllowAnyOrigin || r.Header.Get("Origin") == ""
			},
		},
		logger: log,
	}
}

// ServeHTTP authenticates the request, upgrades it and registers the
// connection. The token is taken from the Authorization header or, for
// browser clients that cannot set headers on websocket requests, the
// "token" query parameter.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	if token == "" {
		http.Error(w, "missing authentication token", http.StatusUnauthorized)
		return
	}

	claims, err := h.validator.ValidateToken(token)
	if err != nil {
		h.logger.WithError(err).Debug("Rejected websocket upgrade")
		http.Error(w, "invalid authentication token", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	conn := h.hub.register(ws, claims)

	h.hub.EmitToRoom(types.OrgRoomID(claims.OrgID), types.EventUserJoined, map[string]string{
		"user_id": claims.UserID,
		"name":    claims.Name,
		"conn_id": conn.id,
	})
}

func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
