package mock

import (
    "context"
    "encoding/json"
    "fmt"
    "strings"
    "sync"
    "time"

    "github.com/google/uuid"

    "posbridge/internal/model"
    "posbridge/internal/pos"
)

// Adapter is the deterministic in-memory POS used for development, tests,
// and demo tenants with no real POS connected. Behavior is configurable:
// failure injection, artificial delays, and an 86 list.
type Adapter struct {
    mu sync.Mutex

    menus       []model.Menu
    unavailable map[string]struct{}
    failOrders  bool
    failAuth    bool
    authDelay   time.Duration
    apiDelay    time.Duration

    // created orders, tracked for status polls
    orders map[string]model.OrderStatusInfo
}

type Option func(*Adapter)

func WithMenus(menus []model.Menu) Option   { return func(a *Adapter) { a.menus = menus } }
func WithFailOrders() Option                { return func(a *Adapter) { a.failOrders = true } }
func WithFailAuth() Option                  { return func(a *Adapter) { a.failAuth = true } }
func WithAuthDelay(d time.Duration) Option  { return func(a *Adapter) { a.authDelay = d } }
func WithAPIDelay(d time.Duration) Option   { return func(a *Adapter) { a.apiDelay = d } }
func WithUnavailable(ids ...string) Option {
    return func(a *Adapter) {
        for _, id := range ids {
            a.unavailable[id] = struct{}{}
        }
    }
}

func New(opts ...Option) *Adapter {
    a := &Adapter{
        menus:       DefaultMenus(),
        unavailable: map[string]struct{}{},
        orders:      map[string]model.OrderStatusInfo{},
    }
    for _, o := range opts {
        o(a)
    }
    return a
}

// Factory adapts New to the registry signature.
func Factory(_ pos.Options) pos.Adapter { return New() }

func (a *Adapter) Provider() model.Provider { return model.ProviderMock }

// SetItemUnavailable marks an item as 86'd.
func (a *Adapter) SetItemUnavailable(itemID string) {
    a.mu.Lock()
    a.unavailable[itemID] = struct{}{}
    a.mu.Unlock()
}

func (a *Adapter) SetItemAvailable(itemID string) {
    a.mu.Lock()
    delete(a.unavailable, itemID)
    a.mu.Unlock()
}

// SetOrderStatus updates a tracked order's status for later polls.
func (a *Adapter) SetOrderStatus(orderID string, status model.OrderStatus) {
    a.mu.Lock()
    if _, ok := a.orders[orderID]; ok {
        a.orders[orderID] = model.OrderStatusInfo{ExternalID: orderID, Status: string(status), UpdatedAt: time.Now().UTC()}
    }
    a.mu.Unlock()
}

func (a *Adapter) delay(d time.Duration) {
    if d > 0 {
        time.Sleep(d)
    }
}

func (a *Adapter) Authenticate(_ context.Context, _ model.Credentials) (model.Session, error) {
    a.delay(a.authDelay)
    if a.failAuth {
        return model.Session{}, &pos.AuthError{Provider: "mock", Msg: "authentication failure"}
    }
    return model.Session{
        Provider:     model.ProviderMock,
        AccessToken:  "mock-token-" + shortID(),
        RefreshToken: "mock-refresh-" + shortID(),
        ExpiresAt:    time.Now().UTC().Add(time.Hour),
    }, nil
}

func (a *Adapter) RefreshToken(_ context.Context, session model.Session, _ model.Credentials) (model.Session, error) {
    a.delay(a.authDelay)
    if a.failAuth {
        return model.Session{}, &pos.AuthError{Provider: "mock", Msg: "token refresh failure"}
    }
    return model.Session{
        Provider:     model.ProviderMock,
        AccessToken:  "mock-token-" + shortID(),
        RefreshToken: session.RefreshToken,
        ExpiresAt:    time.Now().UTC().Add(time.Hour),
    }, nil
}

func (a *Adapter) GetMenus(_ context.Context, _ model.Session, _ string) ([]model.Menu, error) {
    a.delay(a.apiDelay)
    a.mu.Lock()
    defer a.mu.Unlock()
    out := make([]model.Menu, 0, len(a.menus))
    for _, m := range a.menus {
        out = append(out, a.applyAvailability(m))
    }
    return out, nil
}

func (a *Adapter) GetMenu(_ context.Context, _ model.Session, _, menuID string) (model.Menu, error) {
    a.delay(a.apiDelay)
    a.mu.Lock()
    defer a.mu.Unlock()
    for _, m := range a.menus {
        if m.ID == menuID {
            return a.applyAvailability(m), nil
        }
    }
    return model.Menu{}, &pos.APIError{Provider: "mock", Msg: "menu not found: " + menuID, StatusCode: 404}
}

func (a *Adapter) GetItemAvailability(_ context.Context, _ model.Session, _ string) (map[string]bool, error) {
    a.delay(a.apiDelay)
    a.mu.Lock()
    defer a.mu.Unlock()
    availability := map[string]bool{}
    for _, m := range a.menus {
        for _, c := range m.Categories {
            for _, it := range c.Items {
                _, down := a.unavailable[it.ID]
                availability[it.ID] = !down
            }
        }
    }
    return availability, nil
}

func (a *Adapter) CreateOrder(_ context.Context, _ model.Session, _ string, order model.POSOrder) (model.OrderResult, error) {
    a.delay(a.apiDelay)
    a.mu.Lock()
    defer a.mu.Unlock()
    if a.failOrders {
        return model.OrderResult{}, &pos.OrderError{Provider: "mock", Msg: "order creation failure"}
    }
    for _, it := range order.Items {
        if _, down := a.unavailable[it.ExternalID]; down {
            return model.OrderResult{}, &pos.OrderError{Provider: "mock", Msg: "Item is unavailable: " + it.ExternalID}
        }
    }
    orderID := "mock-order-" + shortID()
    ready := time.Now().UTC().Add(20 * time.Minute)
    a.orders[orderID] = model.OrderStatusInfo{
        ExternalID: orderID,
        Status:     string(model.OrderConfirmed),
        UpdatedAt:  time.Now().UTC(),
    }
    return model.OrderResult{
        ExternalID:       orderID,
        Status:           string(model.OrderConfirmed),
        EstimatedReadyAt: &ready,
        ConfirmationCode: strings.ToUpper(shortID())[:6],
    }, nil
}

func (a *Adapter) GetOrderStatus(_ context.Context, _ model.Session, _, externalID string) (model.OrderStatusInfo, error) {
    a.delay(a.apiDelay)
    a.mu.Lock()
    defer a.mu.Unlock()
    if st, ok := a.orders[externalID]; ok {
        return st, nil
    }
    return model.OrderStatusInfo{}, &pos.APIError{Provider: "mock", Msg: "order not found: " + externalID, StatusCode: 404}
}

func (a *Adapter) VerifyWebhookSignature(payload []byte, signature, secret, _ string) bool {
    return pos.VerifyHexHMAC(secret, payload, signature)
}

// ParseWebhook accepts canonical event_type payloads mirroring the event
// union directly.
func (a *Adapter) ParseWebhook(payload []byte) (model.WebhookEvent, error) {
    var raw struct {
        EventType      string `json:"event_type"`
        EventID        string `json:"event_id"`
        OccurredAt     string `json:"occurred_at"`
        MenuID         string `json:"menu_id"`
        ItemID         string `json:"item_id"`
        IsAvailable    *bool  `json:"is_available"`
        OrderID        string `json:"order_id"`
        Status         string `json:"status"`
        PreviousStatus string `json:"previous_status"`
    }
    if err := json.Unmarshal(payload, &raw); err != nil {
        return nil, &pos.WebhookError{Provider: "mock", Msg: "invalid payload", Err: err}
    }
    if raw.EventType == "" {
        return nil, &pos.WebhookError{Provider: "mock", Msg: "missing event_type in payload"}
    }
    occurredAt := time.Now().UTC()
    if raw.OccurredAt != "" {
        t, err := time.Parse(time.RFC3339, raw.OccurredAt)
        if err != nil {
            return nil, &pos.WebhookError{Provider: "mock", Msg: "invalid occurred_at", Err: err}
        }
        occurredAt = t
    }
    eventID := raw.EventID
    if eventID == "" {
        eventID = shortID()
    }
    meta := model.EventMeta{Provider: model.ProviderMock, EventID: eventID, OccurredAt: occurredAt}

    switch raw.EventType {
    case "menu_updated":
        return model.MenuUpdatedEvent{EventMeta: meta, MenuID: raw.MenuID}, nil
    case "item_availability_changed":
        available := true
        if raw.IsAvailable != nil {
            available = *raw.IsAvailable
        }
        return model.ItemAvailabilityChangedEvent{EventMeta: meta, ItemID: raw.ItemID, IsAvailable: available}, nil
    case "order_status_changed":
        status := raw.Status
        if status == "" {
            status = string(model.OrderPending)
        }
        return model.OrderStatusChangedEvent{EventMeta: meta, OrderID: raw.OrderID, Status: status, PreviousStatus: raw.PreviousStatus}, nil
    default:
        return nil, &pos.WebhookError{Provider: "mock", Msg: fmt.Sprintf("unknown event type %q", raw.EventType)}
    }
}

func (a *Adapter) applyAvailability(m model.Menu) model.Menu {
    out := m
    out.Categories = make([]model.MenuCategory, len(m.Categories))
    for i, c := range m.Categories {
        cat := c
        cat.Items = make([]model.MenuItem, len(c.Items))
        for j, it := range c.Items {
            _, down := a.unavailable[it.ID]
            it.IsAvailable = !down
            cat.Items[j] = it
        }
        out.Categories[i] = cat
    }
    return out
}

func shortID() string {
    return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
