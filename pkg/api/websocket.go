package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"audio-studio/pkg/models"
	"audio-studio/pkg/player"
	"audio-studio/pkg/workspace"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const monitorInterval = 500 * time.Millisecond

type WebSocketMessage struct {
	Type        string          `json:"type"`
	WorkspaceID string          `json:"workspace_id,omitempty"`
	JobID       string          `json:"job_id,omitempty"`
	Track       string          `json:"track,omitempty"`
	Volume      *int            `json:"volume,omitempty"`
	Status      string          `json:"status,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// wsConn serializes writes; gorilla connections allow one writer at a time.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(msg WebSocketMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Printf("WS write failed: %v", err)
	}
}

func (h *Handlers) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer raw.Close()
	conn := &wsConn{conn: raw}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitors := make(map[string]bool)

	for {
		var msg WebSocketMessage
		if err := raw.ReadJSON(&msg); err != nil {
			break
		}

		switch msg.Type {
		case "subscribe":
			ws, ok := h.wsWorkspace(conn, &msg)
			if !ok {
				continue
			}
			if !monitors[ws.ID()] {
				monitors[ws.ID()] = true
				go h.monitorWorkspace(ctx, conn, ws)
			}
		case "toggle", "volume", "ended":
			h.handlePlayerAction(conn, &msg)
		case "ping":
			conn.send(WebSocketMessage{Type: "pong"})
		default:
			conn.send(WebSocketMessage{
				Type:  "error",
				Error: "Unknown message type",
			})
		}
	}
}

func (h *Handlers) wsWorkspace(conn *wsConn, msg *WebSocketMessage) (*workspace.Workspace, bool) {
	ws, err := h.workspaces.Get(msg.WorkspaceID)
	if err != nil {
		conn.send(WebSocketMessage{
			Type:        "error",
			WorkspaceID: msg.WorkspaceID,
			Error:       err.Error(),
		})
		return nil, false
	}
	return ws, true
}

func (h *Handlers) handlePlayerAction(conn *wsConn, msg *WebSocketMessage) {
	ws, ok := h.wsWorkspace(conn, msg)
	if !ok {
		return
	}

	var (
		state player.State
		err   error
	)
	switch msg.Type {
	case "toggle":
		state, err = ws.Toggle(msg.Track)
	case "volume":
		if msg.Volume == nil {
			conn.send(WebSocketMessage{Type: "error", WorkspaceID: ws.ID(), Track: msg.Track, Error: "volume is required"})
			return
		}
		state, err = ws.SetVolume(msg.Track, *msg.Volume)
	case "ended":
		state, err = ws.Ended(msg.Track)
	}
	if err != nil {
		conn.send(WebSocketMessage{Type: "error", WorkspaceID: ws.ID(), Track: msg.Track, Error: err.Error()})
		return
	}

	conn.send(WebSocketMessage{
		Type:        "player_state",
		WorkspaceID: ws.ID(),
		Track:       msg.Track,
		Data:        mustMarshal(state),
	})
}

// monitorWorkspace pushes a message whenever the workspace's job changes
// status, until the connection goes away.
func (h *Handlers) monitorWorkspace(ctx context.Context, conn *wsConn, ws *workspace.Workspace) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	var lastJob string
	var lastStatus models.JobStatus

	check := func() {
		view := ws.View()
		job := view.Job
		if job.ID == lastJob && job.Status == lastStatus {
			return
		}
		lastJob, lastStatus = job.ID, job.Status

		conn.send(WebSocketMessage{
			Type:        "status_update",
			WorkspaceID: ws.ID(),
			JobID:       job.ID,
			Status:      string(job.Status),
		})

		switch job.Status {
		case models.StatusDone:
			log.Printf("WS PROCESSING COMPLETED: JobID=%s, Workspace=%s", job.ID, ws.ID())
			conn.send(WebSocketMessage{
				Type:        "processing_complete",
				WorkspaceID: ws.ID(),
				JobID:       job.ID,
				Data:        mustMarshal(view),
			})
		case models.StatusFailed:
			log.Printf("WS PROCESSING FAILED: JobID=%s, Error=%s", job.ID, job.Error)
			conn.send(WebSocketMessage{
				Type:        "processing_failed",
				WorkspaceID: ws.ID(),
				JobID:       job.ID,
				Error:       job.Error,
			})
		}
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
