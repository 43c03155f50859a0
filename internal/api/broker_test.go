package api

import (
    "testing"
    "time"

    "posbridge/internal/model"
)

func TestBrokerPublishSubscribe(t *testing.T) {
    b := NewBroker()
    ch := b.Subscribe("t1")
    defer b.Unsubscribe("t1", ch)

    b.Publish("t1", Event{Type: "menu.updated", Data: map[string]any{"menuId": "main"}})
    select {
    case evt := <-ch:
        if evt.Type != "menu.updated" {
            t.Fatalf("event = %+v", evt)
        }
    case <-time.After(time.Second):
        t.Fatal("no event received")
    }
}

func TestBrokerTenantIsolation(t *testing.T) {
    b := NewBroker()
    ch := b.Subscribe("t1")
    defer b.Unsubscribe("t1", ch)

    b.Publish("t2", Event{Type: "menu.updated"})
    select {
    case evt := <-ch:
        t.Fatalf("unexpected event %+v", evt)
    case <-time.After(50 * time.Millisecond):
    }
}

func TestEventPublisherMapsEvents(t *testing.T) {
    b := NewBroker()
    ch := b.Subscribe("t1")
    defer b.Unsubscribe("t1", ch)

    p := &EventPublisher{Broker: b}
    p.PublishEvent("t1", model.ItemAvailabilityChangedEvent{
        EventMeta:   model.EventMeta{Provider: model.ProviderMock, EventID: "e-1", OccurredAt: time.Now()},
        ItemID:      "item-1",
        IsAvailable: false,
    })

    select {
    case evt := <-ch:
        if evt.Type != "item.availability_changed" {
            t.Fatalf("type = %s", evt.Type)
        }
        if evt.Data["itemId"] != "item-1" || evt.Data["isAvailable"] != false {
            t.Fatalf("data = %v", evt.Data)
        }
    case <-time.After(time.Second):
        t.Fatal("no event received")
    }
}
