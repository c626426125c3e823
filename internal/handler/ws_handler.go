package handler

import (
	"net/http"
	"strings"

	"fieldops-server/internal/config"
	"fieldops-server/internal/middleware"
	"fieldops-server/internal/websocket"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type WebSocketHandler struct {
	manager   *websocket.Manager
	validator middleware.TokenValidator
	upgrader  ws.Upgrader
	logger    *logrus.Logger
}

func NewWebSocketHandler(manager *websocket.Manager, validator middleware.TokenValidator, cfg config.WebSocketConfig, allowedOrigins string, logger *logrus.Logger) *WebSocketHandler {
	origins := make(map[string]bool)
	for _, o := range strings.Split(allowedOrigins, ",") {
		origins[strings.TrimSpace(o)] = true
	}

	return &WebSocketHandler{
		manager:   manager,
		validator: validator,
		logger:    logger,
		upgrader: ws.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

// HandleConnection upgrades GET /ws?token=<access token>&origin=<client id>.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	if token == "" {
		http.Error(w, "missing authorization token", http.StatusUnauthorized)
		return
	}

	claims, err := h.validator.ValidateToken(token)
	if err != nil {
		h.logger.WithError(err).Debug("WebSocket token rejected")
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	origin := r.URL.Query().Get("origin")
	if origin == "" {
		origin = uuid.New().String()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := websocket.NewClient(uuid.New().String(), claims.UserID, origin, conn, h.manager)
	if !h.manager.Add(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
