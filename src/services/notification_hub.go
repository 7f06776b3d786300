package services

import (
	"sync"

	"github.com/username/priceboard/backend/src/logger"
	"github.com/username/priceboard/backend/src/models"
)

// Message types pushed to connected clients.
const (
	MessageView         = "view"
	MessageDetails      = "details"
	MessageNotification = "notification"
	MessageError        = "error"
	MessageLoading      = "loading"
)

// Message is one server-to-client push.
type Message struct {
	Type         string               `json:"type"`
	View         *models.BoardView    `json:"view,omitempty"`
	Details      *models.ItemDetails  `json:"details,omitempty"`
	Notification *models.Notification `json:"notification,omitempty"`
	Loading      bool                 `json:"loading,omitempty"`
	Error        string               `json:"error,omitempty"`
}

// Subscriber receives pushed messages. A Send error unsubscribes it.
type Subscriber interface {
	Send(msg Message) error
}

// NotificationHub fans notifications out to every subscriber.
type NotificationHub struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]bool
}

func NewNotificationHub() *NotificationHub {
	return &NotificationHub{subscribers: make(map[Subscriber]bool)}
}

func (h *NotificationHub) Subscribe(s Subscriber) {
	h.mu.Lock()
	h.subscribers[s] = true
	total := len(h.subscribers)
	h.mu.Unlock()
	logger.L.Info("Client subscribed to notifications", "total", total)
}

func (h *NotificationHub) Unsubscribe(s Subscriber) {
	h.mu.Lock()
	delete(h.subscribers, s)
	total := len(h.subscribers)
	h.mu.Unlock()
	logger.L.Info("Client unsubscribed from notifications", "total", total)
}

// Len returns the number of subscribers.
func (h *NotificationHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Publish implements Notifier.
func (h *NotificationHub) Publish(n models.Notification) {
	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	logger.L.Info("Publishing notification", "message", n.Message, "subscribers", len(targets))
	msg := Message{Type: MessageNotification, Notification: &n}
	for _, s := range targets {
		if err := s.Send(msg); err != nil {
			logger.L.Warn("Notification write error, dropping client", "error", err)
			h.Unsubscribe(s)
		}
	}
}
