package api

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "log"
    "net/http"
    "strings"
    "time"

    "posbridge/internal/buildinfo"
    "posbridge/internal/model"
    "posbridge/internal/orders"
    "posbridge/internal/pos"
    "posbridge/internal/store"
)

const maxWebhookBody = 1 << 20

// OrdersHandler handles POST /v1/orders
func (s *Server) OrdersHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        var req createOrderRequest
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if err := validate.Struct(req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid order", validationDetail(err), r.URL.Path)
            return
        }
        _, tenant := s.withTenant(r)
        order, err := s.Store.CreateOrder(r.Context(), req.toOrder(tenant))
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Create order failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusCreated, order)
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// OrderByIDHandler handles /v1/orders/{id} plus the /submit, /retry and
// /pos-status sub-resources.
func (s *Server) OrderByIDHandler(w http.ResponseWriter, r *http.Request) {
    rest := strings.TrimPrefix(r.URL.Path, "/v1/orders/")
    parts := strings.Split(strings.Trim(rest, "/"), "/")
    if len(parts) == 0 || parts[0] == "" {
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
        return
    }
    id := parts[0]
    _, tenant := s.withTenant(r)

    if len(parts) == 1 {
        if r.Method != http.MethodGet {
            w.WriteHeader(http.StatusMethodNotAllowed)
            return
        }
        order, err := s.Store.GetOrder(r.Context(), tenant, id)
        if err != nil {
            writeProblem(w, http.StatusNotFound, "Order not found", "", r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, order)
        return
    }

    switch parts[1] {
    case "submit":
        if r.Method != http.MethodPost {
            w.WriteHeader(http.StatusMethodNotAllowed)
            return
        }
        retryCount := 0
        if v := r.URL.Query().Get("retryCount"); v != "" { fmt.Sscanf(v, "%d", &retryCount) }
        outcome := s.Orchestrator.SubmitWithPolicy(r.Context(), tenant, id, retryCount)
        writeJSON(w, outcomeStatus(outcome), outcome)
    case "retry":
        if r.Method != http.MethodPost {
            w.WriteHeader(http.StatusMethodNotAllowed)
            return
        }
        outcome := s.Orchestrator.RetryFailed(r.Context(), tenant, id)
        writeJSON(w, outcomeStatus(outcome), outcome)
    case "pos-status":
        if r.Method != http.MethodGet {
            w.WriteHeader(http.StatusMethodNotAllowed)
            return
        }
        s.posStatus(w, r, tenant, id)
    default:
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
    }
}

func outcomeStatus(o orders.Outcome) int {
    switch o.Kind {
    case orders.OutcomeSuccess:
        return http.StatusOK
    case orders.OutcomeRetry:
        return http.StatusAccepted
    default:
        return http.StatusBadGateway
    }
}

// posStatus polls the provider for the live state of a submitted order.
func (s *Server) posStatus(w http.ResponseWriter, r *http.Request, tenant, orderID string) {
    order, err := s.Store.GetOrder(r.Context(), tenant, orderID)
    if err != nil {
        writeProblem(w, http.StatusNotFound, "Order not found", "", r.URL.Path)
        return
    }
    if order.ExternalID == "" {
        writeProblem(w, http.StatusConflict, "Order not submitted", "order has no external id", r.URL.Path)
        return
    }
    adapter, session, t, err := s.posFor(r.Context(), tenant)
    if err != nil {
        writeProblem(w, http.StatusBadGateway, "POS unavailable", err.Error(), r.URL.Path)
        return
    }
    info, err := adapter.GetOrderStatus(r.Context(), session, t.LocationID, order.ExternalID)
    if err != nil {
        writeProblem(w, http.StatusBadGateway, "POS status failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, info)
}

// MenusHandler handles GET /v1/menus and GET /v1/menus/{id}, a live
// passthrough to the tenant's provider.
func (s *Server) MenusHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    _, tenant := s.withTenant(r)
    adapter, session, t, err := s.posFor(r.Context(), tenant)
    if err != nil {
        writeProblem(w, http.StatusBadGateway, "POS unavailable", err.Error(), r.URL.Path)
        return
    }

    menuID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/menus"), "/")
    if menuID == "" {
        menus, err := adapter.GetMenus(r.Context(), session, t.LocationID)
        if err != nil {
            writeProblem(w, posErrStatus(err), "Menu fetch failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"menus": menus})
        return
    }
    menu, err := adapter.GetMenu(r.Context(), session, t.LocationID, menuID)
    if err != nil {
        writeProblem(w, posErrStatus(err), "Menu fetch failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, menu)
}

// AvailabilityHandler handles GET /v1/availability, the provider's live
// item availability map.
func (s *Server) AvailabilityHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    _, tenant := s.withTenant(r)
    adapter, session, t, err := s.posFor(r.Context(), tenant)
    if err != nil {
        writeProblem(w, http.StatusBadGateway, "POS unavailable", err.Error(), r.URL.Path)
        return
    }
    avail, err := adapter.GetItemAvailability(r.Context(), session, t.LocationID)
    if err != nil {
        writeProblem(w, posErrStatus(err), "Availability fetch failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, map[string]any{"items": avail})
}

func posErrStatus(err error) int {
    if pos.IsAuth(err) {
        return http.StatusBadGateway
    }
    var apiErr *pos.APIError
    if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
        return http.StatusNotFound
    }
    return http.StatusBadGateway
}

// WebhooksHandler handles POST /v1/webhooks/{provider} (intake),
// POST /v1/webhooks/process (batch drain) and GET /v1/webhooks/{id}.
func (s *Server) WebhooksHandler(w http.ResponseWriter, r *http.Request) {
    tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/webhooks"), "/")
    switch {
    case r.Method == http.MethodPost && tail == "process":
        limit := 100
        if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
        n, err := s.Processor.ProcessPending(r.Context(), limit)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Batch failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"processed": n})
    case r.Method == http.MethodPost:
        s.webhookIntake(w, r, tail)
    case r.Method == http.MethodGet && tail != "":
        rec, err := s.Store.GetWebhook(r.Context(), tail)
        if err != nil {
            writeProblem(w, http.StatusNotFound, "Webhook not found", "", r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, rec)
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

func (s *Server) webhookIntake(w http.ResponseWriter, r *http.Request, providerName string) {
    provider := model.Provider(providerName)
    if !provider.Valid() {
        writeProblem(w, http.StatusNotFound, "Unknown provider", providerName, r.URL.Path)
        return
    }
    payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
    if err != nil || len(payload) == 0 {
        writeProblem(w, http.StatusBadRequest, "Empty payload", "", r.URL.Path)
        return
    }
    _, tenant := s.withTenant(r)

    rec := model.WebhookRecord{
        TenantID:  tenant,
        Provider:  provider,
        Payload:   payload,
        Signature: webhookSignature(r, provider),
    }
    // Best-effort parse for dedup; a bad payload is stored anyway and
    // marked failed by the processor.
    if adapter, aerr := s.Registry.Get(provider, pos.Options{}); aerr == nil {
        if event, perr := adapter.ParseWebhook(payload); perr == nil {
            meta := event.Meta()
            rec.ExternalEventID = meta.EventID
            rec.EventType = eventTypeName(event)
        }
    }

    rec, err = s.Store.InsertWebhook(r.Context(), rec)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "Webhook store failed", err.Error(), r.URL.Path)
        return
    }
    if rec.Status == model.WebhookSkipped {
        log.Printf("duplicate %s webhook %s skipped", provider, rec.ExternalEventID)
        writeJSON(w, http.StatusOK, map[string]any{"id": rec.ID, "status": rec.Status})
        return
    }

    if r.URL.Query().Get("sync") == "1" {
        if err := s.Processor.Process(r.Context(), rec.ID); err != nil {
            writeProblem(w, http.StatusUnprocessableEntity, "Webhook processing failed", err.Error(), r.URL.Path)
            return
        }
        rec, _ = s.Store.GetWebhook(r.Context(), rec.ID)
        writeJSON(w, http.StatusOK, map[string]any{"id": rec.ID, "status": rec.Status})
        return
    }
    writeJSON(w, http.StatusAccepted, map[string]any{"id": rec.ID, "status": rec.Status})
}

// webhookSignature pulls the provider's signature header, falling back to
// a generic one.
func webhookSignature(r *http.Request, provider model.Provider) string {
    var h string
    switch provider {
    case model.ProviderToast:
        h = r.Header.Get("Toast-Signature")
    case model.ProviderClover:
        h = r.Header.Get("X-Clover-Auth")
    case model.ProviderSquare:
        h = r.Header.Get("X-Square-Hmacsha256-Signature")
    }
    if h == "" {
        h = r.Header.Get("X-Webhook-Signature")
    }
    return h
}

func eventTypeName(event model.WebhookEvent) string {
    switch event.(type) {
    case model.MenuUpdatedEvent:
        return "menu_updated"
    case model.ItemAvailabilityChangedEvent:
        return "item_availability_changed"
    case model.OrderStatusChangedEvent:
        return "order_status_changed"
    }
    return ""
}

// posFor resolves the adapter and an authenticated session for a tenant.
// Tenants without configured credentials get a placeholder session, which
// the mock provider accepts.
func (s *Server) posFor(ctx context.Context, tenantID string) (pos.Adapter, model.Session, model.Tenant, error) {
    tenant, err := s.Store.GetTenant(ctx, tenantID)
    if err != nil {
        return nil, model.Session{}, tenant, fmt.Errorf("tenant %s not found", tenantID)
    }
    if !tenant.HasPOS() {
        return nil, model.Session{}, tenant, fmt.Errorf("tenant %s has no POS configured", tenantID)
    }
    adapter, err := s.Registry.Get(tenant.POSProvider, pos.Options{Sandbox: tenant.Sandbox})
    if err != nil {
        return nil, model.Session{}, tenant, err
    }
    if creds, ok := s.Cfg.Credentials(tenantID, tenant.POSProvider); ok {
        session, err := adapter.Authenticate(ctx, creds)
        if err == nil {
            return adapter, session, tenant, nil
        }
        log.Printf("authentication failed for tenant %s, using placeholder session: %v", tenantID, err)
    }
    session := model.Session{
        Provider:    tenant.POSProvider,
        AccessToken: "placeholder-token",
        ExpiresAt:   time.Now().Add(time.Hour),
    }
    return adapter, session, tenant, nil
}

// HealthHandler handles GET /healthz
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "build": buildinfo.Info()})
}

// ReadyHandler handles GET /readyz
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    if p, ok := s.Store.(*store.Postgres); ok {
        if err := p.Ping(r.Context()); err != nil {
            writeProblem(w, http.StatusServiceUnavailable, "Not ready", err.Error(), r.URL.Path)
            return
        }
    }
    writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
