package webhooks

import (
    "context"
    "log"
    "time"

    "posbridge/internal/metrics"
    "posbridge/internal/model"
    "posbridge/internal/pos"
    "posbridge/internal/store"
)

// Secrets resolves the configured webhook secret per provider. An empty
// string means signature checking is skipped for that provider.
type Secrets interface {
    WebhookSecret(provider model.Provider) string
    // NotificationURL is the public webhook endpoint, needed for Square's
    // url+body signature.
    NotificationURL(provider model.Provider) string
}

// Publisher receives successfully routed events for fanout to dashboard
// subscribers.
type Publisher interface {
    PublishEvent(tenantID string, event model.WebhookEvent)
}

// Processor drives stored webhook records through
// pending -> processed | failed, exactly once per record.
type Processor struct {
    Store    store.Store
    Registry *pos.Registry
    Secrets  Secrets
    Pub      Publisher
}

func NewProcessor(s store.Store, reg *pos.Registry, secrets Secrets, pub Publisher) *Processor {
    return &Processor{Store: s, Registry: reg, Secrets: secrets, Pub: pub}
}

// ProcessPending handles up to limit pending records in received order.
// Per-record failures are logged and swallowed so one bad webhook cannot
// block the batch. Returns the number processed successfully.
func (p *Processor) ProcessPending(ctx context.Context, limit int) (int, error) {
    pending, err := p.Store.ListPendingWebhooks(ctx, limit)
    if err != nil {
        return 0, err
    }
    processed := 0
    for _, rec := range pending {
        if err := p.Process(ctx, rec.ID); err != nil {
            log.Printf("webhook %s failed: %v", rec.ID, err)
            continue
        }
        processed++
    }
    return processed, nil
}

// Process handles one webhook record under a row lock. Re-delivery of an
// already-terminal record is a no-op. On failure the record is marked
// failed before the error is returned, so the failure is durable.
func (p *Processor) Process(ctx context.Context, webhookID string) error {
    start := time.Now()
    claim, err := p.Store.ClaimWebhook(ctx, webhookID)
    if err != nil {
        return err
    }
    defer func() { _ = claim.Close() }()

    rec := claim.Record()
    if rec.Status != model.WebhookPending {
        log.Printf("webhook %s already handled (status %s)", webhookID, rec.Status)
        return nil
    }

    event, err := p.parse(rec)
    if err == nil {
        err = p.route(ctx, rec.TenantID, event)
    }
    durationMs := time.Since(start).Milliseconds()
    metrics.WebhookDuration.WithLabelValues(string(rec.Provider)).Observe(float64(durationMs))

    if err != nil {
        metrics.WebhooksProcessed.WithLabelValues(string(rec.Provider), string(model.WebhookFailed)).Inc()
        if mErr := claim.MarkFailed(ctx, err.Error(), durationMs); mErr != nil {
            return mErr
        }
        return err
    }

    if err := claim.MarkProcessed(ctx, durationMs); err != nil {
        return err
    }
    metrics.WebhooksProcessed.WithLabelValues(string(rec.Provider), string(model.WebhookProcessed)).Inc()
    log.Printf("processed webhook %s (%s:%s) in %dms", webhookID, rec.Provider, rec.EventType, durationMs)
    if p.Pub != nil && event != nil {
        p.Pub.PublishEvent(rec.TenantID, event)
    }
    return nil
}

func (p *Processor) parse(rec model.WebhookRecord) (model.WebhookEvent, error) {
    adapter, err := p.Registry.Get(rec.Provider, pos.Options{})
    if err != nil {
        return nil, &pos.WebhookError{Provider: string(rec.Provider), Msg: err.Error()}
    }
    if secret := p.Secrets.WebhookSecret(rec.Provider); secret != "" && rec.Signature != "" {
        if !adapter.VerifyWebhookSignature(rec.Payload, rec.Signature, secret, p.Secrets.NotificationURL(rec.Provider)) {
            return nil, &pos.WebhookError{Provider: string(rec.Provider), Msg: "invalid webhook signature"}
        }
    }
    return adapter.ParseWebhook(rec.Payload)
}

func (p *Processor) route(ctx context.Context, tenantID string, event model.WebhookEvent) error {
    switch e := event.(type) {
    case model.ItemAvailabilityChangedEvent:
        return p.applyAvailability(ctx, tenantID, e)
    case model.MenuUpdatedEvent:
        // Full resync needs a menu fetch against the provider; for now the
        // event is logged and published as a resync signal.
        log.Printf("menu updated for tenant %s: menu_id=%s", tenantID, e.MenuID)
        return nil
    case model.OrderStatusChangedEvent:
        found, err := p.Store.UpdateOrderStatusByExternalID(ctx, tenantID, e.OrderID, e.Status)
        if err != nil {
            return err
        }
        if !found {
            log.Printf("order not found for status update: %s", e.OrderID)
            return nil
        }
        log.Printf("updated order %s status: %s -> %s", e.OrderID, e.PreviousStatus, e.Status)
        return nil
    default:
        log.Printf("unhandled event type %T", event)
        return nil
    }
}

// applyAvailability updates the matching item, falling back to a modifier
// with the same external id when no item matches.
func (p *Processor) applyAvailability(ctx context.Context, tenantID string, e model.ItemAvailabilityChangedEvent) error {
    now := time.Now().UTC()
    found, err := p.Store.SetItemAvailability(ctx, tenantID, e.ItemID, e.IsAvailable, now)
    if err != nil {
        return err
    }
    if found {
        log.Printf("updated availability for item %s: available=%v", e.ItemID, e.IsAvailable)
        return nil
    }
    found, err = p.Store.SetModifierAvailability(ctx, tenantID, e.ItemID, e.IsAvailable, now)
    if err != nil {
        return err
    }
    if found {
        log.Printf("updated availability for modifier %s: available=%v", e.ItemID, e.IsAvailable)
    } else {
        log.Printf("item/modifier not found for availability update: %s", e.ItemID)
    }
    return nil
}
