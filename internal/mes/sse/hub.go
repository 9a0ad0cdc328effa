package sse

import (
	"fmt"
	"log"
	"sync"
)

// Event represents a Server-Sent Event
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// Client represents a connected SSE client
type Client struct {
	ID     string
	UserID string
	Events chan Event
}

// Hub manages all SSE client connections
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// GlobalHub is the singleton SSE Hub instance
var GlobalHub = NewHub()

// NewHub creates a new SSE Hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a new client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	log.Printf("[SSE] Client registered: id=%s user=%s (total: %d)", client.ID, client.UserID, len(h.clients))
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		log.Printf("[SSE] Client unregistered: id=%s (total: %d)", clientID, len(h.clients))
	}
}

// Broadcast sends an event to all connected clients
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Events <- event:
		default:
			log.Printf("[SSE] Client %s buffer full, skipping event", client.ID)
		}
	}
}

// PublishOrderUpdate 订单状态流转事件
func PublishOrderUpdate(orderID, fromStatus, toStatus string) {
	data := fmt.Sprintf(`{"order_id":"%s","from_status":"%s","to_status":"%s"}`, orderID, fromStatus, toStatus)
	GlobalHub.Broadcast(Event{
		EventType: "order_update",
		Data:      data,
	})
	log.Printf("[SSE] Published order_update: order=%s %s->%s", orderID, fromStatus, toStatus)
}

// PublishInspectionUpdate 检验状态变化事件（发起、判定）
func PublishInspectionUpdate(inspectionID, fromStatus, toStatus string) {
	data := fmt.Sprintf(`{"inspection_id":"%s","from_status":"%s","to_status":"%s"}`, inspectionID, fromStatus, toStatus)
	GlobalHub.Broadcast(Event{
		EventType: "inspection_update",
		Data:      data,
	})
	log.Printf("[SSE] Published inspection_update: inspection=%s %s->%s", inspectionID, fromStatus, toStatus)
}

// SendToUser 给特定用户发送事件（而非广播）
func SendToUser(userID string, event Event) {
	GlobalHub.mu.RLock()
	defer GlobalHub.mu.RUnlock()
	for _, client := range GlobalHub.clients {
		if client.UserID == userID {
			select {
			case client.Events <- event:
			default:
				log.Printf("[SSE] Client %s buffer full, skipping user event", client.ID)
			}
		}
	}
}
