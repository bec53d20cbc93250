package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeOrderPlaced        = "order.placed"
	TypeOrderCancelled     = "order.cancelled"
	TypeOrderStatusChanged = "order.status_changed"
)

const DefaultTopic = "order-events"

type Event struct {
	EventID   string         `json:"event_id"`
	Type      string         `json:"type"`
	OrderID   string         `json:"order_id"`
	UserID    string         `json:"user_id"`
	CreatedAt time.Time      `json:"created_at"`
	Payload   map[string]any `json:"payload,omitempty"`
}

func New(typ, orderID, userID string, payload map[string]any) Event {
	return Event{
		EventID:   uuid.NewString(),
		Type:      typ,
		OrderID:   orderID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		Payload:   payload,
	}
}
