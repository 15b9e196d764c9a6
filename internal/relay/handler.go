package relay

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spec-kit/orgchat-service/internal/auth"
	"github.com/spec-kit/orgchat-service/internal/domain"
)

// Authenticator verifies a bearer token.
type Authenticator interface {
	Authenticate(token string) (*domain.Principal, error)
}

// Handler upgrades authenticated requests and attaches them to the hub.
type Handler struct {
	hub      *Hub
	auth     Authenticator
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler builds the upgrade handler. An empty origins list or "*" allows
// any origin.
func NewHandler(hub *Hub, authenticator Authenticator, origins []string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		hub:    hub,
		auth:   authenticator,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(origins),
		},
	}
}

// ServeHTTP authenticates before the upgrade so a rejected client gets a
// plain 401 instead of a socket.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := requestToken(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	principal, err := h.auth.Authenticate(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("relay upgrade failed", zap.Int64("user_id", principal.UserID), zap.Error(err))
		return
	}
	h.hub.Attach(conn, principal.UserID)
}

func requestToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := auth.BearerToken(header); ok {
			return token
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func originChecker(origins []string) func(*http.Request) bool {
	allowAll := len(origins) == 0
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if allowAll || origin == "" {
			return true
		}
		_, ok := allowed[strings.TrimRight(origin, "/")]
		return ok
	}
}
