package store

import (
    "context"
    "errors"
    "time"

    "posbridge/internal/model"
)

// Store is the persistence interface used by the webhook processor and the
// order submission orchestrator.
type Store interface {
    // Tenants
    GetTenant(ctx context.Context, tenantID string) (model.Tenant, error)

    // Orders
    CreateOrder(ctx context.Context, o model.Order) (model.Order, error)
    GetOrder(ctx context.Context, tenantID, orderID string) (model.Order, error)
    // MarkOrderSubmitted persists the submission result in one transaction.
    MarkOrderSubmitted(ctx context.Context, tenantID, orderID, externalID, confirmationCode string, estimatedReadyAt *time.Time, status model.OrderStatus) error
    UpdateOrderStatus(ctx context.Context, tenantID, orderID string, status model.OrderStatus) error
    // UpdateOrderStatusByExternalID reports whether a matching order existed.
    UpdateOrderStatusByExternalID(ctx context.Context, tenantID, externalID, status string) (bool, error)
    SetOrderPaymentStatus(ctx context.Context, tenantID, orderID string, status model.PaymentStatus) error
    IncrementOrderAttempts(ctx context.Context, tenantID, orderID string) (int, error)
    // ResetOrderForRetry moves a pos_failed order back to confirmed with a
    // fresh attempt counter.
    ResetOrderForRetry(ctx context.Context, tenantID, orderID string) error

    // Catalog availability. The bool result reports whether a matching
    // record existed.
    SetItemAvailability(ctx context.Context, tenantID, itemID string, available bool, at time.Time) (bool, error)
    SetModifierAvailability(ctx context.Context, tenantID, modifierID string, available bool, at time.Time) (bool, error)
    GetModifier(ctx context.Context, tenantID, modifierID string) (model.Modifier, error)

    // Webhook records
    // InsertWebhook stores an inbound callback. A duplicate
    // (tenant, provider, external_event_id) is stored with status skipped.
    InsertWebhook(ctx context.Context, rec model.WebhookRecord) (model.WebhookRecord, error)
    GetWebhook(ctx context.Context, id string) (model.WebhookRecord, error)
    // ClaimWebhook locks one record for processing. The caller must finish
    // the claim with MarkProcessed, MarkFailed, or Close.
    ClaimWebhook(ctx context.Context, id string) (WebhookClaim, error)
    ListPendingWebhooks(ctx context.Context, limit int) ([]model.WebhookRecord, error)
}

// WebhookClaim holds a row lock on a single webhook record so concurrent
// redeliveries cannot both apply side effects.
type WebhookClaim interface {
    Record() model.WebhookRecord
    MarkProcessed(ctx context.Context, durationMs int64) error
    MarkFailed(ctx context.Context, errMsg string, durationMs int64) error
    // Close releases the lock without a status change. Safe after Mark*.
    Close() error
}

var ErrNotFound = errors.New("not found")
