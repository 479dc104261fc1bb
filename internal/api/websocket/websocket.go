package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/microgridplanner/planner-core/internal/metrics"
	"github.com/microgridplanner/planner-core/internal/models"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

const jobStatusStream = "job_status"

// Hub fans compute job status updates out to connected browser clients, so
// the UI learns about terminal jobs without waiting for the next poll tick.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	logger     logger.Logger
	mu         sync.RWMutex
}

// Message is the wire frame pushed to clients.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewHub(logger logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte),
		logger:     logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

			metrics.ActiveWebSocketConnections.WithLabelValues(jobStatusStream).Inc()
			h.logger.Info("WebSocket client connected",
				"user_id", client.userID,
				"compute_ids", client.subscribedIDs(),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.ActiveWebSocketConnections.WithLabelValues(jobStatusStream).Dec()
			}
			h.mu.Unlock()

			h.logger.Info("WebSocket client disconnected", "user_id", client.userID)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					delete(h.clients, client)
					close(client.send)
					metrics.ActiveWebSocketConnections.WithLabelValues(jobStatusStream).Dec()
				}
			}
			h.mu.Unlock()

		case <-ctx.Done():
			return
		}
	}
}

// BroadcastJobStatus pushes a terminal job's status to the owning user's
// connections. Clients subscribed to specific compute ids only receive frames
// for those jobs; clients with no filter receive every one of their jobs.
func (h *Hub) BroadcastJobStatus(job *models.ComputeJob) {
	message := Message{
		Type: jobStatusStream,
		Data: models.ComputeStatusResponse{
			ComputeID: job.ID,
			Success:   job.Success,
			Error:     job.Error,
		},
		Timestamp: time.Now().UTC(),
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal job status frame", "compute_id", job.ID, "error", err)
		return
	}

	h.mu.Lock()
	for client := range h.clients {
		if client.userID != job.UserID || !client.wantsJob(job.ID) {
			continue
		}
		select {
		case client.send <- messageBytes:
		default:
			delete(h.clients, client)
			close(client.send)
			metrics.ActiveWebSocketConnections.WithLabelValues(jobStatusStream).Dec()
		}
	}
	h.mu.Unlock()
}
