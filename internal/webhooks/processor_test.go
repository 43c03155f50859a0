package webhooks

import (
    "context"
    "testing"

    "posbridge/internal/model"
    "posbridge/internal/pos"
    "posbridge/internal/pos/mock"
    "posbridge/internal/store"
)

type testSecrets struct {
    secret string
    url    string
}

func (s testSecrets) WebhookSecret(model.Provider) string   { return s.secret }
func (s testSecrets) NotificationURL(model.Provider) string { return s.url }

type capturePublisher struct {
    events []model.WebhookEvent
}

func (c *capturePublisher) PublishEvent(_ string, event model.WebhookEvent) {
    c.events = append(c.events, event)
}

func newTestProcessor(secrets Secrets) (*Processor, *store.Memory, *capturePublisher) {
    mem := store.NewMemory()
    reg := pos.NewRegistry()
    reg.Register(model.ProviderMock, mock.Factory)
    pub := &capturePublisher{}
    return NewProcessor(mem, reg, secrets, pub), mem, pub
}

func insertWebhook(t *testing.T, mem *store.Memory, payload string, sig string) model.WebhookRecord {
    t.Helper()
    rec, err := mem.InsertWebhook(context.Background(), model.WebhookRecord{
        TenantID:  "t1",
        Provider:  model.ProviderMock,
        Payload:   []byte(payload),
        Signature: sig,
    })
    if err != nil {
        t.Fatalf("insert: %v", err)
    }
    return rec
}

func TestProcessAvailabilityEvent(t *testing.T) {
    p, mem, pub := newTestProcessor(testSecrets{})
    mem.PutItem("t1", model.MenuItem{ID: "item-1", IsAvailable: true})

    rec := insertWebhook(t, mem, `{"event_type":"item_availability_changed","event_id":"e-1","item_id":"item-1","is_available":false}`, "")
    if err := p.Process(context.Background(), rec.ID); err != nil {
        t.Fatalf("process: %v", err)
    }

    avail, ok := mem.ItemAvailability("t1", "item-1")
    if !ok || avail {
        t.Fatalf("availability = %v, %v", avail, ok)
    }
    got, _ := mem.GetWebhook(context.Background(), rec.ID)
    if got.Status != model.WebhookProcessed {
        t.Fatalf("status = %s", got.Status)
    }
    if len(pub.events) != 1 {
        t.Fatalf("published events = %d, want 1", len(pub.events))
    }
}

func TestProcessModifierFallback(t *testing.T) {
    p, mem, _ := newTestProcessor(testSecrets{})
    mem.PutModifier("t1", model.Modifier{ID: "mod-cheddar", IsAvailable: true})

    rec := insertWebhook(t, mem, `{"event_type":"item_availability_changed","event_id":"e-2","item_id":"mod-cheddar","is_available":false}`, "")
    if err := p.Process(context.Background(), rec.ID); err != nil {
        t.Fatalf("process: %v", err)
    }
    mod, err := mem.GetModifier(context.Background(), "t1", "mod-cheddar")
    if err != nil {
        t.Fatalf("get modifier: %v", err)
    }
    if mod.IsAvailable {
        t.Fatal("modifier should be unavailable")
    }
}

func TestProcessOrderStatusEvent(t *testing.T) {
    p, mem, _ := newTestProcessor(testSecrets{})
    mem.PutOrder(model.Order{ID: "o-1", TenantID: "t1", ExternalID: "mock-order-9", Status: model.OrderConfirmed})

    rec := insertWebhook(t, mem, `{"event_type":"order_status_changed","event_id":"e-3","order_id":"mock-order-9","status":"ready","previous_status":"preparing"}`, "")
    if err := p.Process(context.Background(), rec.ID); err != nil {
        t.Fatalf("process: %v", err)
    }
    order, _ := mem.GetOrder(context.Background(), "t1", "o-1")
    if order.Status != model.OrderReady {
        t.Fatalf("order status = %s", order.Status)
    }
}

func TestProcessIdempotent(t *testing.T) {
    p, mem, pub := newTestProcessor(testSecrets{})
    mem.PutItem("t1", model.MenuItem{ID: "item-1", IsAvailable: true})

    rec := insertWebhook(t, mem, `{"event_type":"item_availability_changed","event_id":"e-4","item_id":"item-1","is_available":false}`, "")
    if err := p.Process(context.Background(), rec.ID); err != nil {
        t.Fatalf("first process: %v", err)
    }
    // Redelivery is a no-op on a terminal record.
    if err := p.Process(context.Background(), rec.ID); err != nil {
        t.Fatalf("second process: %v", err)
    }
    if len(pub.events) != 1 {
        t.Fatalf("published events = %d, want 1", len(pub.events))
    }
}

func TestProcessBadSignature(t *testing.T) {
    p, mem, pub := newTestProcessor(testSecrets{secret: "s3cret"})
    payload := `{"event_type":"menu_updated","event_id":"e-5","menu_id":"menu-breakfast"}`

    rec := insertWebhook(t, mem, payload, "deadbeef")
    if err := p.Process(context.Background(), rec.ID); err == nil {
        t.Fatal("expected signature failure")
    }
    got, _ := mem.GetWebhook(context.Background(), rec.ID)
    if got.Status != model.WebhookFailed {
        t.Fatalf("status = %s", got.Status)
    }
    if len(pub.events) != 0 {
        t.Fatal("failed webhook must not publish")
    }
}

func TestProcessGoodSignature(t *testing.T) {
    p, mem, _ := newTestProcessor(testSecrets{secret: "s3cret"})
    payload := `{"event_type":"menu_updated","event_id":"e-6","menu_id":"menu-breakfast"}`

    rec := insertWebhook(t, mem, payload, pos.SignHexHMAC("s3cret", []byte(payload)))
    if err := p.Process(context.Background(), rec.ID); err != nil {
        t.Fatalf("process: %v", err)
    }
}

func TestDuplicateIntakeSkipped(t *testing.T) {
    _, mem, _ := newTestProcessor(testSecrets{})
    first, _ := mem.InsertWebhook(context.Background(), model.WebhookRecord{
        TenantID: "t1", Provider: model.ProviderMock, ExternalEventID: "e-7", Payload: []byte(`{}`),
    })
    second, _ := mem.InsertWebhook(context.Background(), model.WebhookRecord{
        TenantID: "t1", Provider: model.ProviderMock, ExternalEventID: "e-7", Payload: []byte(`{}`),
    })
    if first.Status != model.WebhookPending {
        t.Fatalf("first status = %s", first.Status)
    }
    if second.Status != model.WebhookSkipped {
        t.Fatalf("second status = %s", second.Status)
    }
}

func TestProcessPendingSwallowsFailures(t *testing.T) {
    p, mem, _ := newTestProcessor(testSecrets{})
    mem.PutItem("t1", model.MenuItem{ID: "item-1", IsAvailable: true})

    insertWebhook(t, mem, `not json at all`, "")
    insertWebhook(t, mem, `{"event_type":"item_availability_changed","event_id":"e-8","item_id":"item-1","is_available":false}`, "")

    n, err := p.ProcessPending(context.Background(), 10)
    if err != nil {
        t.Fatalf("batch: %v", err)
    }
    if n != 1 {
        t.Fatalf("processed = %d, want 1", n)
    }
    avail, _ := mem.ItemAvailability("t1", "item-1")
    if avail {
        t.Fatal("good webhook in batch should still apply")
    }
}
