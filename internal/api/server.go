package api

import (
    "context"
    "net/http"
    "strings"

    "posbridge/internal/config"
    "posbridge/internal/model"
    "posbridge/internal/orders"
    "posbridge/internal/payments"
    "posbridge/internal/pos"
    "posbridge/internal/pos/clover"
    "posbridge/internal/pos/mock"
    "posbridge/internal/pos/square"
    "posbridge/internal/pos/toast"
    "posbridge/internal/store"
    "posbridge/internal/webhooks"
)

type Server struct {
    Store        store.Store
    Cfg          *config.Config
    Registry     *pos.Registry
    Processor    *webhooks.Processor
    Orchestrator *orders.Orchestrator
    Broker       EventBroker
}

// NewServer creates a Server. If DATABASE_URL is unset, uses in-memory store.
func NewServer() (*Server, error) {
    cfg, err := config.Load()
    if err != nil {
        return nil, err
    }

    var s store.Store
    if strings.TrimSpace(cfg.DatabaseURL) == "" {
        mem := store.NewMemory()
        seedDemo(mem)
        s = mem
    } else {
        sp, err := store.NewPostgres(cfg.DatabaseURL)
        if err != nil {
            return nil, err
        }
        s = sp
    }

    reg := pos.NewRegistry()
    reg.Register(model.ProviderToast, toast.New)
    reg.Register(model.ProviderClover, clover.New)
    reg.Register(model.ProviderSquare, square.New)
    reg.Register(model.ProviderMock, mock.Factory)

    // Broker selection
    var broker EventBroker
    if cfg.RedisURL != "" {
        if rb, err := NewRedisBroker(); err == nil { broker = rb } else { broker = NewBroker() }
    } else {
        broker = NewBroker()
    }

    var refunder payments.Refunder
    if cfg.StripeAPIKey != "" {
        refunder = payments.NewStripeRefunder(cfg.StripeAPIKey)
    }
    sub := orders.NewSubmitter(s, reg, cfg)

    return &Server{
        Store:        s,
        Cfg:          cfg,
        Registry:     reg,
        Processor:    webhooks.NewProcessor(s, reg, cfg, &EventPublisher{Broker: broker}),
        Orchestrator: orders.NewOrchestrator(sub, s, refunder),
        Broker:       broker,
    }, nil
}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
    // For now, get tenant from header; in production decode from JWT.
    tenant := r.Header.Get("X-Tenant-Id")
    if tenant == "" { tenant = "t_demo" }
    ctx := context.WithValue(r.Context(), ctxKeyTenant{}, tenant)
    return ctx, tenant
}

type ctxKeyTenant struct{}

// NewWebhookWorker creates the background drainer for pending webhooks.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
    return webhooks.NewWorker(s.Processor)
}

// seedDemo gives the in-memory store a tenant wired to the mock provider
// so the API works out of the box.
func seedDemo(mem *store.Memory) {
    mem.PutTenant(model.Tenant{
        ID:          "t_demo",
        Name:        "Demo Restaurant",
        POSProvider: model.ProviderMock,
        LocationID:  "loc-demo",
        Sandbox:     true,
    })
}
