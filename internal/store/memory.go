package store

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/google/uuid"

    "posbridge/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set,
// and as the base for test fakes.
type Memory struct {
    mu        sync.Mutex
    tenants   map[string]model.Tenant
    orders    map[string]model.Order             // orderID -> order
    items     map[string]map[string]*memItem     // tenant -> itemID
    modifiers map[string]map[string]*memModifier // tenant -> modifierID
    webhooks  map[string]*memWebhook             // webhookID -> record
}

type memItem struct {
    model.MenuItem
    AvailabilityUpdatedAt time.Time
}

type memModifier struct {
    model.Modifier
    AvailabilityUpdatedAt time.Time
}

type memWebhook struct {
    mu  sync.Mutex
    rec model.WebhookRecord
}

func NewMemory() *Memory {
    return &Memory{
        tenants:   map[string]model.Tenant{},
        orders:    map[string]model.Order{},
        items:     map[string]map[string]*memItem{},
        modifiers: map[string]map[string]*memModifier{},
        webhooks:  map[string]*memWebhook{},
    }
}

// Seeding helpers for tests and demo mode.

func (m *Memory) PutTenant(t model.Tenant) {
    m.mu.Lock(); defer m.mu.Unlock()
    m.tenants[t.ID] = t
}

func (m *Memory) PutOrder(o model.Order) {
    m.mu.Lock(); defer m.mu.Unlock()
    m.orders[o.ID] = o
}

func (m *Memory) PutItem(tenantID string, item model.MenuItem) {
    m.mu.Lock(); defer m.mu.Unlock()
    if m.items[tenantID] == nil { m.items[tenantID] = map[string]*memItem{} }
    m.items[tenantID][item.ID] = &memItem{MenuItem: item}
}

func (m *Memory) PutModifier(tenantID string, mod model.Modifier) {
    m.mu.Lock(); defer m.mu.Unlock()
    if m.modifiers[tenantID] == nil { m.modifiers[tenantID] = map[string]*memModifier{} }
    m.modifiers[tenantID][mod.ID] = &memModifier{Modifier: mod}
}

// ItemAvailability reports the stored availability flag for tests.
func (m *Memory) ItemAvailability(tenantID, itemID string) (bool, bool) {
    m.mu.Lock(); defer m.mu.Unlock()
    it, ok := m.items[tenantID][itemID]
    if !ok { return false, false }
    return it.IsAvailable, true
}

func (m *Memory) GetTenant(_ context.Context, tenantID string) (model.Tenant, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    t, ok := m.tenants[tenantID]
    if !ok { return model.Tenant{}, ErrNotFound }
    return t, nil
}

func (m *Memory) CreateOrder(_ context.Context, o model.Order) (model.Order, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if o.ID == "" { o.ID = uuid.NewString() }
    now := time.Now().UTC()
    if o.CreatedAt.IsZero() { o.CreatedAt = now }
    o.UpdatedAt = now
    if o.Status == "" { o.Status = model.OrderPending }
    if o.PaymentStatus == "" { o.PaymentStatus = model.PaymentPending }
    m.orders[o.ID] = o
    return o, nil
}

func (m *Memory) GetOrder(_ context.Context, tenantID, orderID string) (model.Order, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    o, ok := m.orders[orderID]
    if !ok || o.TenantID != tenantID { return model.Order{}, ErrNotFound }
    return o, nil
}

func (m *Memory) MarkOrderSubmitted(_ context.Context, tenantID, orderID, externalID, confirmationCode string, estimatedReadyAt *time.Time, status model.OrderStatus) error {
    m.mu.Lock(); defer m.mu.Unlock()
    o, ok := m.orders[orderID]
    if !ok || o.TenantID != tenantID { return ErrNotFound }
    o.ExternalID = externalID
    if o.ConfirmationCode == "" { o.ConfirmationCode = confirmationCode }
    o.EstimatedReadyAt = estimatedReadyAt
    o.Status = status
    o.UpdatedAt = time.Now().UTC()
    m.orders[orderID] = o
    return nil
}

func (m *Memory) UpdateOrderStatus(_ context.Context, tenantID, orderID string, status model.OrderStatus) error {
    m.mu.Lock(); defer m.mu.Unlock()
    o, ok := m.orders[orderID]
    if !ok || o.TenantID != tenantID { return ErrNotFound }
    o.Status = status
    o.UpdatedAt = time.Now().UTC()
    m.orders[orderID] = o
    return nil
}

func (m *Memory) UpdateOrderStatusByExternalID(_ context.Context, tenantID, externalID, status string) (bool, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    for id, o := range m.orders {
        if o.TenantID == tenantID && o.ExternalID == externalID {
            o.Status = model.OrderStatus(status)
            o.UpdatedAt = time.Now().UTC()
            m.orders[id] = o
            return true, nil
        }
    }
    return false, nil
}

func (m *Memory) SetOrderPaymentStatus(_ context.Context, tenantID, orderID string, status model.PaymentStatus) error {
    m.mu.Lock(); defer m.mu.Unlock()
    o, ok := m.orders[orderID]
    if !ok || o.TenantID != tenantID { return ErrNotFound }
    o.PaymentStatus = status
    o.UpdatedAt = time.Now().UTC()
    m.orders[orderID] = o
    return nil
}

func (m *Memory) IncrementOrderAttempts(_ context.Context, tenantID, orderID string) (int, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    o, ok := m.orders[orderID]
    if !ok || o.TenantID != tenantID { return 0, ErrNotFound }
    o.SubmitAttempts++
    m.orders[orderID] = o
    return o.SubmitAttempts, nil
}

func (m *Memory) ResetOrderForRetry(_ context.Context, tenantID, orderID string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    o, ok := m.orders[orderID]
    if !ok || o.TenantID != tenantID { return ErrNotFound }
    o.Status = model.OrderConfirmed
    o.SubmitAttempts = 0
    o.UpdatedAt = time.Now().UTC()
    m.orders[orderID] = o
    return nil
}

func (m *Memory) SetItemAvailability(_ context.Context, tenantID, itemID string, available bool, at time.Time) (bool, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    it, ok := m.items[tenantID][itemID]
    if !ok { return false, nil }
    it.IsAvailable = available
    it.AvailabilityUpdatedAt = at
    return true, nil
}

func (m *Memory) SetModifierAvailability(_ context.Context, tenantID, modifierID string, available bool, at time.Time) (bool, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    mod, ok := m.modifiers[tenantID][modifierID]
    if !ok { return false, nil }
    mod.IsAvailable = available
    mod.AvailabilityUpdatedAt = at
    return true, nil
}

func (m *Memory) GetModifier(_ context.Context, tenantID, modifierID string) (model.Modifier, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    mod, ok := m.modifiers[tenantID][modifierID]
    if !ok { return model.Modifier{}, ErrNotFound }
    return mod.Modifier, nil
}

func (m *Memory) InsertWebhook(_ context.Context, rec model.WebhookRecord) (model.WebhookRecord, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if rec.ID == "" { rec.ID = uuid.NewString() }
    if rec.ReceivedAt.IsZero() { rec.ReceivedAt = time.Now().UTC() }
    rec.Status = model.WebhookPending
    if rec.ExternalEventID != "" {
        for _, w := range m.webhooks {
            if w.rec.TenantID == rec.TenantID && w.rec.Provider == rec.Provider && w.rec.ExternalEventID == rec.ExternalEventID {
                rec.Status = model.WebhookSkipped
                break
            }
        }
    }
    m.webhooks[rec.ID] = &memWebhook{rec: rec}
    return rec, nil
}

func (m *Memory) GetWebhook(_ context.Context, id string) (model.WebhookRecord, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    w, ok := m.webhooks[id]
    if !ok { return model.WebhookRecord{}, ErrNotFound }
    return w.rec, nil
}

func (m *Memory) ClaimWebhook(_ context.Context, id string) (WebhookClaim, error) {
    m.mu.Lock()
    w, ok := m.webhooks[id]
    m.mu.Unlock()
    if !ok { return nil, ErrNotFound }
    w.mu.Lock()
    return &memClaim{w: w}, nil
}

func (m *Memory) ListPendingWebhooks(_ context.Context, limit int) ([]model.WebhookRecord, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    var out []model.WebhookRecord
    for _, w := range m.webhooks {
        if w.rec.Status == model.WebhookPending {
            out = append(out, w.rec)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
    if limit > 0 && len(out) > limit {
        out = out[:limit]
    }
    return out, nil
}

type memClaim struct {
    w    *memWebhook
    done bool
}

func (c *memClaim) Record() model.WebhookRecord { return c.w.rec }

func (c *memClaim) MarkProcessed(_ context.Context, durationMs int64) error {
    now := time.Now().UTC()
    c.w.rec.Status = model.WebhookProcessed
    c.w.rec.DurationMs = durationMs
    c.w.rec.ProcessedAt = &now
    c.finish()
    return nil
}

func (c *memClaim) MarkFailed(_ context.Context, errMsg string, durationMs int64) error {
    now := time.Now().UTC()
    c.w.rec.Status = model.WebhookFailed
    c.w.rec.Error = errMsg
    c.w.rec.DurationMs = durationMs
    c.w.rec.ProcessedAt = &now
    c.finish()
    return nil
}

func (c *memClaim) Close() error {
    c.finish()
    return nil
}

func (c *memClaim) finish() {
    if !c.done {
        c.done = true
        c.w.mu.Unlock()
    }
}
