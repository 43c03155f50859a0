package api

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "posbridge/internal/config"
    "posbridge/internal/model"
    "posbridge/internal/orders"
    "posbridge/internal/pos"
    "posbridge/internal/pos/mock"
    "posbridge/internal/store"
    "posbridge/internal/webhooks"
)

func newTestServer(t *testing.T) (*Server, *store.Memory) {
    t.Helper()
    mem := store.NewMemory()
    mem.PutTenant(model.Tenant{ID: "t_demo", Name: "Demo", POSProvider: model.ProviderMock, LocationID: "loc-demo"})

    reg := pos.NewRegistry()
    reg.Register(model.ProviderMock, mock.Factory)

    cfg := &config.Config{
        Providers: map[string]config.ProviderConfig{},
        Tenants:   map[string]config.TenantConfig{},
    }
    broker := NewBroker()
    sub := orders.NewSubmitter(mem, reg, cfg)
    return &Server{
        Store:        mem,
        Cfg:          cfg,
        Registry:     reg,
        Processor:    webhooks.NewProcessor(mem, reg, cfg, &EventPublisher{Broker: broker}),
        Orchestrator: orders.NewOrchestrator(sub, mem, nil),
        Broker:       broker,
    }, mem
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
    t.Helper()
    var rdr *strings.Reader
    if body != "" {
        rdr = strings.NewReader(body)
    } else {
        rdr = strings.NewReader("")
    }
    req := httptest.NewRequest(method, path, rdr)
    req.Header.Set("Content-Type", "application/json")
    w := httptest.NewRecorder()
    handler(w, req)
    return w
}

func TestCreateOrder(t *testing.T) {
    s, _ := newTestServer(t)
    w := doJSON(t, s.OrdersHandler, http.MethodPost, "/v1/orders", `{
        "customerName":"Pat","totalCents":1049,
        "items":[{"itemId":"item-scrambled","name":"Scrambled Eggs","quantity":1,"unitPriceCents":899,
            "modifiers":[{"modifierId":"mod-cheddar","name":"Cheddar","priceCents":150}]}]
    }`)
    if w.Code != http.StatusCreated {
        t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
    }
    var order model.Order
    if err := json.Unmarshal(w.Body.Bytes(), &order); err != nil {
        t.Fatalf("decode: %v", err)
    }
    if order.ID == "" || order.TenantID != "t_demo" || order.Status != model.OrderPending {
        t.Fatalf("order = %+v", order)
    }
}

func TestCreateOrderTotalMismatch(t *testing.T) {
    s, _ := newTestServer(t)
    w := doJSON(t, s.OrdersHandler, http.MethodPost, "/v1/orders", `{
        "customerName":"Pat","totalCents":100,
        "items":[{"itemId":"i","name":"Thing","quantity":1,"unitPriceCents":899}]
    }`)
    if w.Code != http.StatusBadRequest {
        t.Fatalf("status = %d", w.Code)
    }
    if !strings.Contains(w.Body.String(), "totalCents") {
        t.Fatalf("body = %s", w.Body.String())
    }
}

func TestCreateOrderMissingItems(t *testing.T) {
    s, _ := newTestServer(t)
    w := doJSON(t, s.OrdersHandler, http.MethodPost, "/v1/orders", `{"customerName":"Pat","totalCents":100,"items":[]}`)
    if w.Code != http.StatusBadRequest {
        t.Fatalf("status = %d", w.Code)
    }
}

func TestSubmitOrder(t *testing.T) {
    s, mem := newTestServer(t)
    mem.PutOrder(model.Order{
        ID: "o-1", TenantID: "t_demo", Status: model.OrderConfirmed,
        CustomerName: "Pat", TotalCents: 899,
        Items: []model.OrderItem{{ItemID: "item-scrambled", Name: "Scrambled Eggs", Quantity: 1, UnitPriceCents: 899}},
    })
    w := doJSON(t, s.OrderByIDHandler, http.MethodPost, "/v1/orders/o-1/submit", "")
    if w.Code != http.StatusOK {
        t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
    }
    var outcome orders.Outcome
    _ = json.Unmarshal(w.Body.Bytes(), &outcome)
    if outcome.Kind != orders.OutcomeSuccess || outcome.ExternalID == "" {
        t.Fatalf("outcome = %+v", outcome)
    }
    order, _ := mem.GetOrder(context.Background(), "t_demo", "o-1")
    if order.ExternalID != outcome.ExternalID {
        t.Fatalf("stored order = %+v", order)
    }
}

func TestSubmitMissingOrderIsFailure(t *testing.T) {
    s, _ := newTestServer(t)
    w := doJSON(t, s.OrderByIDHandler, http.MethodPost, "/v1/orders/nope/submit", "")
    if w.Code != http.StatusBadGateway {
        t.Fatalf("status = %d", w.Code)
    }
}

func TestRetryRequiresFailedState(t *testing.T) {
    s, mem := newTestServer(t)
    mem.PutOrder(model.Order{ID: "o-2", TenantID: "t_demo", Status: model.OrderConfirmed})
    w := doJSON(t, s.OrderByIDHandler, http.MethodPost, "/v1/orders/o-2/retry", "")
    if w.Code != http.StatusBadGateway {
        t.Fatalf("status = %d", w.Code)
    }
}

func TestGetOrder(t *testing.T) {
    s, mem := newTestServer(t)
    mem.PutOrder(model.Order{ID: "o-3", TenantID: "t_demo", Status: model.OrderPending, CustomerName: "Pat"})
    w := doJSON(t, s.OrderByIDHandler, http.MethodGet, "/v1/orders/o-3", "")
    if w.Code != http.StatusOK {
        t.Fatalf("status = %d", w.Code)
    }
    w = doJSON(t, s.OrderByIDHandler, http.MethodGet, "/v1/orders/missing", "")
    if w.Code != http.StatusNotFound {
        t.Fatalf("status = %d", w.Code)
    }
}

func TestMenusPassthrough(t *testing.T) {
    s, _ := newTestServer(t)
    w := doJSON(t, s.MenusHandler, http.MethodGet, "/v1/menus", "")
    if w.Code != http.StatusOK {
        t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
    }
    var resp struct {
        Menus []model.Menu `json:"menus"`
    }
    _ = json.Unmarshal(w.Body.Bytes(), &resp)
    if len(resp.Menus) != 2 {
        t.Fatalf("menus = %d, want 2", len(resp.Menus))
    }

    w = doJSON(t, s.MenusHandler, http.MethodGet, "/v1/menus/menu-breakfast", "")
    if w.Code != http.StatusOK {
        t.Fatalf("status = %d", w.Code)
    }
    w = doJSON(t, s.MenusHandler, http.MethodGet, "/v1/menus/menu-dinner", "")
    if w.Code != http.StatusNotFound {
        t.Fatalf("status = %d, want 404 for unknown menu", w.Code)
    }
}

func TestAvailabilityPassthrough(t *testing.T) {
    s, _ := newTestServer(t)
    w := doJSON(t, s.AvailabilityHandler, http.MethodGet, "/v1/availability", "")
    if w.Code != http.StatusOK {
        t.Fatalf("status = %d", w.Code)
    }
    var resp struct {
        Items map[string]bool `json:"items"`
    }
    _ = json.Unmarshal(w.Body.Bytes(), &resp)
    if !resp.Items["item-scrambled"] {
        t.Fatalf("items = %v", resp.Items)
    }
}

func TestWebhookIntakeSync(t *testing.T) {
    s, mem := newTestServer(t)
    mem.PutItem("t_demo", model.MenuItem{ID: "item-club", IsAvailable: true})

    w := doJSON(t, s.WebhooksHandler, http.MethodPost, "/v1/webhooks/mock?sync=1",
        `{"event_type":"item_availability_changed","event_id":"e-1","item_id":"item-club","is_available":false}`)
    if w.Code != http.StatusOK {
        t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
    }
    var resp struct {
        ID     string              `json:"id"`
        Status model.WebhookStatus `json:"status"`
    }
    _ = json.Unmarshal(w.Body.Bytes(), &resp)
    if resp.Status != model.WebhookProcessed {
        t.Fatalf("status = %s", resp.Status)
    }
    avail, _ := mem.ItemAvailability("t_demo", "item-club")
    if avail {
        t.Fatal("availability should be applied")
    }
}

func TestWebhookIntakeAsync(t *testing.T) {
    s, mem := newTestServer(t)
    w := doJSON(t, s.WebhooksHandler, http.MethodPost, "/v1/webhooks/mock",
        `{"event_type":"menu_updated","event_id":"e-2","menu_id":"menu-breakfast"}`)
    if w.Code != http.StatusAccepted {
        t.Fatalf("status = %d", w.Code)
    }
    pending, _ := mem.ListPendingWebhooks(context.Background(), 10)
    if len(pending) != 1 || pending[0].EventType != "menu_updated" {
        t.Fatalf("pending = %+v", pending)
    }
}

func TestWebhookDuplicateSkipped(t *testing.T) {
    s, _ := newTestServer(t)
    payload := `{"event_type":"menu_updated","event_id":"dup-1","menu_id":"menu-breakfast"}`
    doJSON(t, s.WebhooksHandler, http.MethodPost, "/v1/webhooks/mock", payload)
    w := doJSON(t, s.WebhooksHandler, http.MethodPost, "/v1/webhooks/mock", payload)
    if w.Code != http.StatusOK {
        t.Fatalf("status = %d", w.Code)
    }
    if !strings.Contains(w.Body.String(), string(model.WebhookSkipped)) {
        t.Fatalf("body = %s", w.Body.String())
    }
}

func TestWebhookUnknownProvider(t *testing.T) {
    s, _ := newTestServer(t)
    w := doJSON(t, s.WebhooksHandler, http.MethodPost, "/v1/webhooks/micros", `{}`)
    if w.Code != http.StatusNotFound {
        t.Fatalf("status = %d", w.Code)
    }
}

func TestWebhookBatchProcess(t *testing.T) {
    s, mem := newTestServer(t)
    mem.PutItem("t_demo", model.MenuItem{ID: "item-veggie-wrap", IsAvailable: true})
    doJSON(t, s.WebhooksHandler, http.MethodPost, "/v1/webhooks/mock",
        `{"event_type":"item_availability_changed","event_id":"e-3","item_id":"item-veggie-wrap","is_available":false}`)

    w := doJSON(t, s.WebhooksHandler, http.MethodPost, "/v1/webhooks/process", "")
    if w.Code != http.StatusOK {
        t.Fatalf("status = %d", w.Code)
    }
    var resp struct {
        Processed int `json:"processed"`
    }
    _ = json.Unmarshal(w.Body.Bytes(), &resp)
    if resp.Processed != 1 {
        t.Fatalf("processed = %d", resp.Processed)
    }
}
