package model

import "time"

// WebhookEvent is the closed union produced by adapter webhook parsing.
// The marker method keeps the set sealed so routing can switch exhaustively.
type WebhookEvent interface {
    Meta() EventMeta
    webhookEvent()
}

// EventMeta is the envelope every event variant carries.
type EventMeta struct {
    Provider   Provider  `json:"provider"`
    EventID    string    `json:"eventId"`
    OccurredAt time.Time `json:"occurredAt"`
}

type MenuUpdatedEvent struct {
    EventMeta
    MenuID string `json:"menuId"`
}

type ItemAvailabilityChangedEvent struct {
    EventMeta
    ItemID      string `json:"itemId"`
    IsAvailable bool   `json:"isAvailable"`
}

type OrderStatusChangedEvent struct {
    EventMeta
    OrderID        string `json:"orderId"`
    Status         string `json:"status"`
    PreviousStatus string `json:"previousStatus,omitempty"`
}

func (e MenuUpdatedEvent) Meta() EventMeta             { return e.EventMeta }
func (e ItemAvailabilityChangedEvent) Meta() EventMeta { return e.EventMeta }
func (e OrderStatusChangedEvent) Meta() EventMeta      { return e.EventMeta }

func (MenuUpdatedEvent) webhookEvent()             {}
func (ItemAvailabilityChangedEvent) webhookEvent() {}
func (OrderStatusChangedEvent) webhookEvent()      {}
