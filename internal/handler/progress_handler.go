package handler

import (
	"context"
	"encoding/json"

	"winnow-be/internal/pkg/logger"
	internalWS "winnow-be/internal/websocket"
	"winnow-be/pkg/events"
	"winnow-be/pkg/staging"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const progressHandlerModule = "ProgressHandler"

// ProgressSource supplies the snapshot a new connection starts from.
type ProgressSource interface {
	Progress(ctx context.Context) staging.Progress
}

type ProgressHandler struct {
	source ProgressSource
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewProgressHandler(source ProgressSource, hub *internalWS.Hub, log logger.ILogger) *ProgressHandler {
	return &ProgressHandler{
		source: source,
		hub:    hub,
		logger: log,
	}
}

func (h *ProgressHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws/progress", h.ServeWs)
}

// ServeWs upgrades the connection and pushes every progress change to it,
// starting with the current snapshot.
func (h *ProgressHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	initial, err := json.Marshal(events.ToEnvelope(events.NewRunProgressEvent(h.source.Progress(c.UserContext()))))
	if err != nil {
		return err
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info(progressHandlerModule, "Starting WebSocket session", map[string]interface{}{"remote": conn.RemoteAddr().String()})
		internalWS.ServeWs(h.hub, conn, initial)
		h.logger.Info(progressHandlerModule, "WebSocket session ended", nil)
	})(c)
}
