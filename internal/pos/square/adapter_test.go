package square

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
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

func TestAuthenticate(t *testing.T) {
    a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/oauth2/token" {
            t.Errorf("unexpected path %s", r.URL.Path)
        }
        var req map[string]string
        _ = json.NewDecoder(r.Body).Decode(&req)
        if req["grant_type"] != "authorization_code" {
            t.Errorf("grant_type = %q", req["grant_type"])
        }
        w.Write([]byte(`{"access_token":"sq-tok","refresh_token":"sq-ref","expires_at":"2026-10-01T00:00:00Z"}`))
    })
    session, err := a.Authenticate(context.Background(), model.Credentials{
        ClientID: "id", ClientSecret: "sec",
        Extra: map[string]string{"auth_code": "code-1"},
    })
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if session.AccessToken != "sq-tok" || session.RefreshToken != "sq-ref" {
        t.Fatalf("session = %+v", session)
    }
    if session.ExpiresAt.Month() != time.October {
        t.Errorf("expires at = %v", session.ExpiresAt)
    }
}

func TestRefreshTokenRequiresCredentials(t *testing.T) {
    a := New(pos.Options{}).(*Adapter)
    _, err := a.RefreshToken(context.Background(), model.Session{RefreshToken: "r"}, model.Credentials{})
    if !pos.IsAuth(err) {
        t.Fatalf("expected AuthError, got %v", err)
    }
    _, err = a.RefreshToken(context.Background(), model.Session{}, model.Credentials{ClientID: "id", ClientSecret: "sec"})
    if !pos.IsAuth(err) {
        t.Fatalf("expected AuthError for missing refresh token, got %v", err)
    }
}

func TestRefreshTokenKeepsOldRefreshToken(t *testing.T) {
    a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
        var req map[string]string
        _ = json.NewDecoder(r.Body).Decode(&req)
        if req["grant_type"] != "refresh_token" || req["refresh_token"] != "old-ref" {
            t.Errorf("request = %v", req)
        }
        w.Write([]byte(`{"access_token":"new-tok"}`))
    })
    session, err := a.RefreshToken(context.Background(),
        model.Session{RefreshToken: "old-ref"},
        model.Credentials{ClientID: "id", ClientSecret: "sec"})
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if session.RefreshToken != "old-ref" {
        t.Fatalf("refresh token = %q, want old-ref kept", session.RefreshToken)
    }
}

func TestGetMenusPaginatedCatalog(t *testing.T) {
    page := 0
    a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/v2/catalog/search" {
            t.Errorf("unexpected path %s", r.URL.Path)
        }
        if got := r.Header.Get("Square-Version"); got != "2024-01-18" {
            t.Errorf("square version = %q", got)
        }
        page++
        if page == 1 {
            w.Write([]byte(`{"cursor":"next","objects":[
                {"id":"cat-1","type":"CATEGORY","category_data":{"name":"Drinks"}},
                {"id":"item-1","type":"ITEM","item_data":{"name":"Latte","category_id":"cat-1",
                    "variations":[{"id":"var-1","item_variation_data":{
                        "price_money":{"amount":450},
                        "location_overrides":[{"location_id":"LOC","price_money":{"amount":500}}]
                    }}],
                    "modifier_list_info":[{"modifier_list_id":"ml-1","min_selected_modifiers":0,"max_selected_modifiers":2}]}}
            ]}`))
            return
        }
        w.Write([]byte(`{"objects":[],"related_objects":[
            {"id":"ml-1","type":"MODIFIER_LIST","modifier_list_data":{"name":"Milk",
                "modifiers":[{"id":"m-1","modifier_data":{"name":"Oat","price_money":{"amount":75}}}]}}
        ]}`))
    })
    menus, err := a.GetMenus(context.Background(), model.Session{AccessToken: "t"}, "LOC")
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if page != 2 {
        t.Fatalf("pages fetched = %d, want 2", page)
    }
    if len(menus) != 1 || len(menus[0].Categories) != 1 {
        t.Fatalf("menus = %+v", menus)
    }
    item := menus[0].Categories[0].Items[0]
    if item.PriceCents != 500 {
        t.Errorf("price = %d, want location override 500", item.PriceCents)
    }
    if len(item.ModifierGroups) != 1 || item.ModifierGroups[0].Name != "Milk" {
        t.Errorf("modifier groups = %+v", item.ModifierGroups)
    }
    if item.ModifierGroups[0].Modifiers[0].PriceCents != 75 {
        t.Errorf("modifier price = %d", item.ModifierGroups[0].Modifiers[0].PriceCents)
    }
}

func TestGetItemAvailability(t *testing.T) {
    a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
        switch r.URL.Path {
        case "/v2/catalog/search":
            w.Write([]byte(`{"objects":[
                {"id":"item-1","type":"ITEM","item_data":{"name":"Tracked out","variations":[{"id":"var-1"}]}},
                {"id":"item-2","type":"ITEM","item_data":{"name":"Tracked in","variations":[{"id":"var-2"}]}},
                {"id":"item-3","type":"ITEM","item_data":{"name":"Untracked","variations":[{"id":"var-3"}]}}
            ]}`))
        case "/v2/inventory/counts/batch-retrieve":
            w.Write([]byte(`{"counts":[
                {"catalog_object_id":"var-1","state":"SOLD_OUT","quantity":"0"},
                {"catalog_object_id":"var-2","state":"IN_STOCK","quantity":"3"}
            ]}`))
        default:
            t.Errorf("unexpected path %s", r.URL.Path)
        }
    })
    avail, err := a.GetItemAvailability(context.Background(), model.Session{AccessToken: "t"}, "LOC")
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if avail["item-1"] {
        t.Error("sold-out item should be unavailable")
    }
    if !avail["item-2"] {
        t.Error("in-stock item should be available")
    }
    if !avail["item-3"] {
        t.Error("untracked item should be available")
    }
}

func TestVerifyWebhookSignature(t *testing.T) {
    a := New(pos.Options{}).(*Adapter)
    url := "https://example.com/v1/webhooks/square"
    payload := []byte(`{"type":"catalog.version.updated"}`)
    sig := pos.SignBase64HMAC("secret", url, payload)
    if !a.VerifyWebhookSignature(payload, sig, "secret", url) {
        t.Fatal("valid signature rejected")
    }
    if a.VerifyWebhookSignature(payload, sig, "secret", "https://other.example.com") {
        t.Fatal("wrong url accepted")
    }
    // Without a notification URL the check cannot be computed and passes.
    if !a.VerifyWebhookSignature(payload, "garbage", "secret", "") {
        t.Fatal("missing notification url should pass")
    }
}

func TestParseWebhookInventoryCount(t *testing.T) {
    a := New(pos.Options{}).(*Adapter)
    event, err := a.ParseWebhook([]byte(`{
        "type":"inventory.count.updated","event_id":"ev-1","created_at":"2026-03-01T09:00:00Z",
        "data":{"object":{"inventory_counts":[{"catalog_object_id":"var-1","state":"SOLD_OUT","quantity":"0"}]}}
    }`))
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    av, ok := event.(model.ItemAvailabilityChangedEvent)
    if !ok {
        t.Fatalf("event type %T", event)
    }
    if av.IsAvailable || av.ItemID != "var-1" {
        t.Errorf("event = %+v", av)
    }
}

func TestParseWebhookCatalogVersion(t *testing.T) {
    a := New(pos.Options{}).(*Adapter)
    event, err := a.ParseWebhook([]byte(`{"type":"catalog.version.updated","event_id":"ev-2","created_at":"2026-03-01T09:00:00Z"}`))
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if _, ok := event.(model.MenuUpdatedEvent); !ok {
        t.Fatalf("event type %T", event)
    }
}

func TestParseWebhookUnknownType(t *testing.T) {
    a := New(pos.Options{}).(*Adapter)
    if _, err := a.ParseWebhook([]byte(`{"type":"payment.updated"}`)); err == nil {
        t.Fatal("expected error")
    }
}
