package pos

import (
    "context"
    "fmt"
    "sync"

    "posbridge/internal/model"
)

// Adapter defines the common contract every POS integration implements.
type Adapter interface {
    Provider() model.Provider
    Authenticate(ctx context.Context, creds model.Credentials) (model.Session, error)
    // RefreshToken exchanges a session for a fresh one. Square requires the
    // original client credentials; other providers ignore them.
    RefreshToken(ctx context.Context, session model.Session, creds model.Credentials) (model.Session, error)
    GetMenus(ctx context.Context, session model.Session, locationID string) ([]model.Menu, error)
    GetMenu(ctx context.Context, session model.Session, locationID, menuID string) (model.Menu, error)
    GetItemAvailability(ctx context.Context, session model.Session, locationID string) (map[string]bool, error)
    CreateOrder(ctx context.Context, session model.Session, locationID string, order model.POSOrder) (model.OrderResult, error)
    GetOrderStatus(ctx context.Context, session model.Session, locationID, externalID string) (model.OrderStatusInfo, error)
    // VerifyWebhookSignature checks a raw payload against a provider
    // signature. notificationURL is only meaningful for Square.
    VerifyWebhookSignature(payload []byte, signature, secret, notificationURL string) bool
    ParseWebhook(payload []byte) (model.WebhookEvent, error)
}

// Options tune adapter construction.
type Options struct {
    Sandbox bool
}

// Factory builds an adapter instance for a provider.
type Factory func(opts Options) Adapter

// Registry maps providers to factories. Provider packages register
// themselves at wiring time; adapters are cached per (provider, sandbox)
// so limiter state is shared by callers of the same provider.
type Registry struct {
    mu        sync.Mutex
    factories map[model.Provider]Factory
    cache     map[string]Adapter
}

func NewRegistry() *Registry {
    return &Registry{factories: map[model.Provider]Factory{}, cache: map[string]Adapter{}}
}

func (r *Registry) Register(p model.Provider, f Factory) {
    r.mu.Lock()
    r.factories[p] = f
    r.mu.Unlock()
}

func (r *Registry) Get(p model.Provider, opts Options) (Adapter, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    key := string(p)
    if opts.Sandbox {
        key += ":sandbox"
    }
    if a, ok := r.cache[key]; ok {
        return a, nil
    }
    f, ok := r.factories[p]
    if !ok {
        return nil, fmt.Errorf("unknown pos provider %q", p)
    }
    a := f(opts)
    r.cache[key] = a
    return a, nil
}
