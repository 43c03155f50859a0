package clover

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "posbridge/internal/model"
    "posbridge/internal/pos"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
    t.Helper()
    srv := httptest.NewServer(handler)
    t.Cleanup(srv.Close)
    a := New(pos.Options{}).(*Adapter)
    a.client.BaseURL = srv.URL
    a.client.Sleep = func(time.Duration) {}
    return a
}

func TestAuthenticateRequiresAuthCode(t *testing.T) {
    a := New(pos.Options{}).(*Adapter)
    _, err := a.Authenticate(context.Background(), model.Credentials{ClientID: "id", ClientSecret: "sec"})
    if !pos.IsAuth(err) {
        t.Fatalf("expected AuthError, got %v", err)
    }
}

func TestAuthenticate(t *testing.T) {
    a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/oauth/token" {
            t.Errorf("unexpected path %s", r.URL.Path)
        }
        w.Write([]byte(`{"access_token":"clv-tok"}`))
    })
    session, err := a.Authenticate(context.Background(), model.Credentials{
        ClientID: "id", ClientSecret: "sec",
        Extra: map[string]string{"auth_code": "code-1"},
    })
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if session.AccessToken != "clv-tok" {
        t.Fatalf("token = %q", session.AccessToken)
    }
    if session.Expired(time.Now().AddDate(5, 0, 0)) {
        t.Fatal("token should outlive five years")
    }
}

func TestRefreshTokenReturnsSameSession(t *testing.T) {
    a := New(pos.Options{}).(*Adapter)
    in := model.Session{Provider: model.ProviderClover, AccessToken: "keep-me"}
    out, err := a.RefreshToken(context.Background(), in, model.Credentials{})
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if out.AccessToken != "keep-me" {
        t.Fatalf("token changed to %q", out.AccessToken)
    }
}

func TestGetMenusGroupsItems(t *testing.T) {
    a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
        switch {
        case strings.Contains(r.URL.Path, "/categories"):
            w.Write([]byte(`{"elements":[{"id":"cat-1","name":"Sandwiches"}]}`))
        case strings.Contains(r.URL.Path, "/items"):
            w.Write([]byte(`{"elements":[
                {"id":"it-1","name":"Club","alternateName":"Triple decker","price":1399,
                 "categories":{"elements":[{"id":"cat-1"}]},
                 "modifierGroups":{"elements":[{"id":"mg-1","name":"Bread","minRequired":1,
                     "modifiers":{"elements":[{"id":"m-1","name":"Rye","price":0}]}}]}},
                {"id":"it-2","name":"Loose Snack","price":250,"hidden":true,
                 "categories":{"elements":[]}}
            ]}`))
        default:
            t.Errorf("unexpected path %s", r.URL.Path)
        }
    })
    menus, err := a.GetMenus(context.Background(), model.Session{AccessToken: "t"}, "MID")
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if len(menus) != 1 || menus[0].ID != "main" {
        t.Fatalf("menus = %+v", menus)
    }
    cats := menus[0].Categories
    if len(cats) != 2 {
        t.Fatalf("categories = %d, want 2", len(cats))
    }
    if cats[0].Items[0].Description != "Triple decker" || cats[0].Items[0].PriceCents != 1399 {
        t.Errorf("item = %+v", cats[0].Items[0])
    }
    if cats[1].ID != "uncategorized" || cats[1].Name != "Other Items" {
        t.Errorf("synthetic category = %+v", cats[1])
    }
    if cats[1].Items[0].IsAvailable {
        t.Error("hidden item should be unavailable")
    }
}

func TestGetMenuOnlyMain(t *testing.T) {
    a := New(pos.Options{}).(*Adapter)
    _, err := a.GetMenu(context.Background(), model.Session{}, "MID", "breakfast")
    var apiErr *pos.APIError
    if !errors.As(err, &apiErr) || apiErr.StatusCode != 404 {
        t.Fatalf("expected 404 APIError, got %v", err)
    }
}

func TestGetItemAvailabilityNullStockCount(t *testing.T) {
    a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
        w.Write([]byte(`{"elements":[
            {"item":{"id":"it-1"},"quantity":0,"stockCount":null},
            {"item":{"id":"it-2"},"quantity":0,"stockCount":0},
            {"item":{"id":"it-3"},"quantity":4,"stockCount":4}
        ]}`))
    })
    avail, err := a.GetItemAvailability(context.Background(), model.Session{AccessToken: "t"}, "MID")
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if !avail["it-1"] {
        t.Error("untracked item should be available")
    }
    if avail["it-2"] {
        t.Error("zero-quantity item should be unavailable")
    }
    if !avail["it-3"] {
        t.Error("stocked item should be available")
    }
}

func TestCreateOrderNotImplemented(t *testing.T) {
    a := New(pos.Options{}).(*Adapter)
    if _, err := a.CreateOrder(context.Background(), model.Session{}, "MID", model.POSOrder{}); err == nil {
        t.Fatal("expected error")
    }
}

func TestParseWebhookInventory(t *testing.T) {
    a := New(pos.Options{}).(*Adapter)
    event, err := a.ParseWebhook([]byte(`{"appId":"APP","ts":1756600000000,"merchants":{"MID":{"I":[{"objectId":"it-1","type":"UPDATE"}]}}}`))
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    av, ok := event.(model.ItemAvailabilityChangedEvent)
    if !ok {
        t.Fatalf("event type %T", event)
    }
    if av.ItemID != "it-1" || !av.IsAvailable {
        t.Errorf("event = %+v", av)
    }
    if av.Meta().EventID != "APP-1756600000000" {
        t.Errorf("event id = %q", av.Meta().EventID)
    }
}

func TestParseWebhookItemDelete(t *testing.T) {
    a := New(pos.Options{}).(*Adapter)
    event, err := a.ParseWebhook([]byte(`{"appId":"APP","ts":1,"merchants":{"MID":{"ITEM":[{"objectId":"it-9","type":"DELETE"}]}}}`))
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    av, ok := event.(model.ItemAvailabilityChangedEvent)
    if !ok {
        t.Fatalf("event type %T", event)
    }
    if av.IsAvailable {
        t.Error("deleted item should be unavailable")
    }
}

func TestParseWebhookItemUpdateIsMenuUpdate(t *testing.T) {
    a := New(pos.Options{}).(*Adapter)
    event, err := a.ParseWebhook([]byte(`{"appId":"APP","ts":1,"merchants":{"MID":{"ITEM":[{"objectId":"it-9","type":"UPDATE"}]}}}`))
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    mu, ok := event.(model.MenuUpdatedEvent)
    if !ok {
        t.Fatalf("event type %T", event)
    }
    if mu.MenuID != "main" {
        t.Errorf("menu id = %q", mu.MenuID)
    }
}

func TestParseWebhookMissingMerchants(t *testing.T) {
    a := New(pos.Options{}).(*Adapter)
    if _, err := a.ParseWebhook([]byte(`{"appId":"APP","ts":1}`)); err == nil {
        t.Fatal("expected error for missing merchants")
    }
}
