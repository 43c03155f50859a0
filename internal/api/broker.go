package api

import (
    "sync"
    "time"

    "posbridge/internal/model"
)

// Event is one POS change fanned out to dashboard subscribers.
type Event struct {
    Type string         `json:"type"`
    Data map[string]any `json:"data"`
}

type Broker struct {
    mu   sync.Mutex
    subs map[string]map[chan Event]struct{} // tenantId -> set of channels
}

func NewBroker() *Broker {
    return &Broker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Broker) Subscribe(tenantID string) chan Event {
    ch := make(chan Event, 8)
    b.mu.Lock()
    if b.subs[tenantID] == nil { b.subs[tenantID] = map[chan Event]struct{}{} }
    b.subs[tenantID][ch] = struct{}{}
    b.mu.Unlock()
    return ch
}

func (b *Broker) Unsubscribe(tenantID string, ch chan Event) {
    b.mu.Lock()
    if m := b.subs[tenantID]; m != nil {
        delete(m, ch)
        if len(m) == 0 { delete(b.subs, tenantID) }
    }
    b.mu.Unlock()
    close(ch)
}

func (b *Broker) Publish(tenantID string, evt Event) {
    b.mu.Lock()
    m := b.subs[tenantID]
    for ch := range m {
        select { case ch <- evt: default: }
    }
    b.mu.Unlock()
}

// EventPublisher adapts the broker to the webhook processor's fanout hook.
type EventPublisher struct {
    Broker EventBroker
}

func (p *EventPublisher) PublishEvent(tenantID string, event model.WebhookEvent) {
    if p.Broker == nil || event == nil { return }
    meta := event.Meta()
    data := map[string]any{
        "provider":   string(meta.Provider),
        "eventId":    meta.EventID,
        "occurredAt": meta.OccurredAt.UTC().Format(time.RFC3339),
    }
    var typ string
    switch e := event.(type) {
    case model.MenuUpdatedEvent:
        typ = "menu.updated"
        data["menuId"] = e.MenuID
    case model.ItemAvailabilityChangedEvent:
        typ = "item.availability_changed"
        data["itemId"] = e.ItemID
        data["isAvailable"] = e.IsAvailable
    case model.OrderStatusChangedEvent:
        typ = "order.status_changed"
        data["orderId"] = e.OrderID
        data["status"] = e.Status
        if e.PreviousStatus != "" { data["previousStatus"] = e.PreviousStatus }
    default:
        typ = "pos.event"
    }
    p.Broker.Publish(tenantID, Event{Type: typ, Data: data})
}
