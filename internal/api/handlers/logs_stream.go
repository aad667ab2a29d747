package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/launchdeck/launchdeck/internal/models"
	"github.com/launchdeck/launchdeck/internal/orchestrator"
)

// LogStreamHandler streams deployment logs over SSE and WebSocket. Both
// transports replay the stored log sequence first, then forward live entries
// from the broker until the deployment reaches a terminal state.
type LogStreamHandler struct {
	orchestrator *orchestrator.Service
	upgrader     websocket.Upgrader
	logger       *slog.Logger
}

// NewLogStreamHandler creates a log stream handler.
func NewLogStreamHandler(orch *orchestrator.Service, logger *slog.Logger) *LogStreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogStreamHandler{
		orchestrator: orch,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// streamEvent is one message on either transport.
type streamEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// StreamSSE streams logs as Server-Sent Events.
func (h *LogStreamHandler) StreamSSE(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")
	source := models.LogSource(r.URL.Query().Get("source"))

	entries, err := h.orchestrator.GetDeploymentLogs(r.Context(), deploymentID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeDomainError(w, r, fmt.Errorf("streaming unsupported"))
		return
	}

	h.sendSSE(w, flusher, "connected", map[string]string{"deployment_id": deploymentID})
	for i := range entries {
		if source != "" && entries[i].Source != source {
			continue
		}
		h.sendSSE(w, flusher, "log", entries[i])
	}

	if h.sendTerminalStatus(r, deploymentID, func(status models.DeploymentStatus) {
		h.sendSSE(w, flusher, "deployment_status", map[string]string{
			"deployment_id": deploymentID,
			"status":        string(status),
		})
	}) {
		return
	}

	sub := h.orchestrator.Broker().Subscribe(r.Context(), deploymentID, source)
	defer h.orchestrator.Broker().Unsubscribe(sub)

	pingTicker := time.NewTicker(5 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("log stream closed by client", "deployment_id", deploymentID)
			return
		case <-pingTicker.C:
			h.sendSSE(w, flusher, "ping", map[string]int64{"time": time.Now().Unix()})
		case entry, open := <-sub.Ch:
			if !open {
				return
			}
			h.sendSSE(w, flusher, "log", entry)
		}
	}
}

// StreamWS streams logs over a WebSocket connection.
func (h *LogStreamHandler) StreamWS(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")
	source := models.LogSource(r.URL.Query().Get("source"))

	entries, err := h.orchestrator.GetDeploymentLogs(r.Context(), deploymentID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	send := func(event streamEvent) bool {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Debug("websocket write failed", "deployment_id", deploymentID, "error", err)
			return false
		}
		return true
	}

	if !send(streamEvent{Type: "connected", Data: map[string]string{"deployment_id": deploymentID}}) {
		return
	}
	for i := range entries {
		if source != "" && entries[i].Source != source {
			continue
		}
		if !send(streamEvent{Type: "log", Data: entries[i]}) {
			return
		}
	}

	if h.sendTerminalStatus(r, deploymentID, func(status models.DeploymentStatus) {
		send(streamEvent{Type: "deployment_status", Data: map[string]string{
			"deployment_id": deploymentID,
			"status":        string(status),
		}})
	}) {
		return
	}

	sub := h.orchestrator.Broker().Subscribe(r.Context(), deploymentID, source)
	defer h.orchestrator.Broker().Unsubscribe(sub)

	pingTicker := time.NewTicker(5 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case entry, open := <-sub.Ch:
			if !open {
				return
			}
			if !send(streamEvent{Type: "log", Data: entry}) {
				return
			}
		}
	}
}

// sendTerminalStatus emits a status event when the deployment is already
// terminal. Returns true when the stream should end.
func (h *LogStreamHandler) sendTerminalStatus(r *http.Request, deploymentID string, emit func(models.DeploymentStatus)) bool {
	deployment, err := h.orchestrator.GetDeploymentStatus(r.Context(), deploymentID)
	if err != nil {
		return false
	}
	if deployment.Status.IsTerminal() {
		emit(deployment.Status)
		return true
	}
	return false
}

// sendSSE writes one Server-Sent Event.
func (h *LogStreamHandler) sendSSE(w http.ResponseWriter, flusher http.Flusher, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("failed to marshal stream event", "event", event, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	flusher.Flush()
}
