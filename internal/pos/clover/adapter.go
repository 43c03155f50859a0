package clover

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "time"

    "posbridge/internal/model"
    "posbridge/internal/pos"
)

const (
    prodBaseURL    = "https://api.clover.com"
    sandboxBaseURL = "https://sandbox.dev.clover.com"

    requestsPerSecond = 10.0
)

// Adapter integrates with Clover. Clover has no menu concept of its own:
// the catalog is flat categories plus items, surfaced here as one "main"
// menu. Tokens never expire and there is no refresh flow.
type Adapter struct {
    client *pos.Client
}

func New(opts pos.Options) pos.Adapter {
    url := prodBaseURL
    if opts.Sandbox {
        url = sandboxBaseURL
    }
    return &Adapter{client: pos.NewClient("clover", url, requestsPerSecond)}
}

func (a *Adapter) Provider() model.Provider { return model.ProviderClover }

// Authenticate exchanges the OAuth authorization code from
// creds.Extra["auth_code"] for an access token.
func (a *Adapter) Authenticate(ctx context.Context, creds model.Credentials) (model.Session, error) {
    authCode := creds.Extra["auth_code"]
    if authCode == "" {
        return model.Session{}, &pos.AuthError{Provider: "clover", Msg: "authentication requires auth_code in credentials extra"}
    }
    body, _ := json.Marshal(map[string]string{
        "client_id":     creds.ClientID,
        "client_secret": creds.ClientSecret,
        "code":          authCode,
    })
    var resp struct {
        AccessToken string `json:"access_token"`
    }
    err := a.client.DoJSON(ctx, http.MethodPost, "/oauth/token", map[string]string{"Content-Type": "application/json"}, body, "", &resp)
    if err != nil {
        if pos.IsAuth(err) {
            return model.Session{}, &pos.AuthError{Provider: "clover", Msg: "invalid credentials or expired auth code"}
        }
        return model.Session{}, &pos.AuthError{Provider: "clover", Msg: fmt.Sprintf("authentication failed: %v", err)}
    }
    if resp.AccessToken == "" {
        return model.Session{}, &pos.AuthError{Provider: "clover", Msg: "no access token in response"}
    }
    // Tokens never expire; a far-future expiry satisfies the session contract.
    return model.Session{
        Provider:    model.ProviderClover,
        AccessToken: resp.AccessToken,
        ExpiresAt:   time.Now().UTC().AddDate(10, 0, 0),
    }, nil
}

// RefreshToken returns the session unchanged: Clover tokens do not expire.
func (a *Adapter) RefreshToken(_ context.Context, session model.Session, _ model.Credentials) (model.Session, error) {
    return session, nil
}

func (a *Adapter) headers(session model.Session) map[string]string {
    return map[string]string{"Authorization": "Bearer " + session.AccessToken}
}

func (a *Adapter) GetMenus(ctx context.Context, session model.Session, locationID string) ([]model.Menu, error) {
    categories, err := a.fetchCategories(ctx, session, locationID)
    if err != nil {
        return nil, err
    }
    items, err := a.fetchItems(ctx, session, locationID)
    if err != nil {
        return nil, err
    }
    return []model.Menu{buildMenu(categories, items)}, nil
}

// GetMenu only supports the synthetic "main" menu id.
func (a *Adapter) GetMenu(ctx context.Context, session model.Session, locationID, menuID string) (model.Menu, error) {
    if menuID != "main" {
        return model.Menu{}, &pos.APIError{Provider: "clover", Msg: fmt.Sprintf("menu not found: %s, only 'main' is supported", menuID), StatusCode: 404}
    }
    menus, err := a.GetMenus(ctx, session, locationID)
    if err != nil {
        return model.Menu{}, err
    }
    return menus[0], nil
}

// GetItemAvailability reads item_stocks. A null stockCount means stock
// tracking is off for the item, which counts as always available.
func (a *Adapter) GetItemAvailability(ctx context.Context, session model.Session, locationID string) (map[string]bool, error) {
    var resp struct {
        Elements []struct {
            Item struct {
                ID string `json:"id"`
            } `json:"item"`
            Quantity   float64  `json:"quantity"`
            StockCount *float64 `json:"stockCount"`
        } `json:"elements"`
    }
    path := fmt.Sprintf("/v3/merchants/%s/item_stocks", locationID)
    if err := a.client.DoJSON(ctx, http.MethodGet, path, a.headers(session), nil, "", &resp); err != nil {
        return nil, err
    }
    availability := make(map[string]bool, len(resp.Elements))
    for _, stock := range resp.Elements {
        if stock.StockCount == nil {
            availability[stock.Item.ID] = true
        } else {
            availability[stock.Item.ID] = stock.Quantity > 0
        }
    }
    return availability, nil
}

func (a *Adapter) fetchCategories(ctx context.Context, session model.Session, merchantID string) ([]rawCategory, error) {
    var resp struct {
        Elements []rawCategory `json:"elements"`
    }
    path := fmt.Sprintf("/v3/merchants/%s/categories?orderBy=sortOrder", merchantID)
    if err := a.client.DoJSON(ctx, http.MethodGet, path, a.headers(session), nil, "", &resp); err != nil {
        return nil, err
    }
    return resp.Elements, nil
}

func (a *Adapter) fetchItems(ctx context.Context, session model.Session, merchantID string) ([]rawItem, error) {
    var resp struct {
        Elements []rawItem `json:"elements"`
    }
    path := fmt.Sprintf("/v3/merchants/%s/items?expand=categories%%2CmodifierGroups", merchantID)
    if err := a.client.DoJSON(ctx, http.MethodGet, path, a.headers(session), nil, "", &resp); err != nil {
        return nil, err
    }
    return resp.Elements, nil
}

func (a *Adapter) CreateOrder(_ context.Context, _ model.Session, _ string, _ model.POSOrder) (model.OrderResult, error) {
    return model.OrderResult{}, &pos.APIError{Provider: "clover", Msg: "order creation not implemented"}
}

func (a *Adapter) GetOrderStatus(_ context.Context, _ model.Session, _, _ string) (model.OrderStatusInfo, error) {
    return model.OrderStatusInfo{}, &pos.APIError{Provider: "clover", Msg: "order status not implemented"}
}

// VerifyWebhookSignature checks the hex HMAC-SHA256 from the
// X-Clover-Signature header, case-insensitively.
func (a *Adapter) VerifyWebhookSignature(payload []byte, signature, secret, _ string) bool {
    return pos.VerifyHexHMAC(secret, payload, signature)
}

// ParseWebhook handles Clover's nested merchants payload. Object updates
// arrive keyed by type: I (inventory), ITEM, CATEGORY.
func (a *Adapter) ParseWebhook(payload []byte) (model.WebhookEvent, error) {
    var raw struct {
        AppID     string                      `json:"appId"`
        Ts        int64                       `json:"ts"`
        Merchants map[string]map[string][]struct {
            ObjectID string `json:"objectId"`
            Type     string `json:"type"`
        } `json:"merchants"`
    }
    if err := json.Unmarshal(payload, &raw); err != nil {
        return nil, &pos.WebhookError{Provider: "clover", Msg: "invalid payload", Err: err}
    }
    if len(raw.Merchants) == 0 {
        return nil, &pos.WebhookError{Provider: "clover", Msg: "missing merchants data"}
    }
    var merchantData map[string][]struct {
        ObjectID string `json:"objectId"`
        Type     string `json:"type"`
    }
    for _, md := range raw.Merchants {
        merchantData = md
        break
    }

    occurredAt := time.Now().UTC()
    if raw.Ts != 0 {
        occurredAt = time.UnixMilli(raw.Ts).UTC()
    }
    meta := model.EventMeta{
        Provider:   model.ProviderClover,
        EventID:    fmt.Sprintf("%s-%d", raw.AppID, raw.Ts),
        OccurredAt: occurredAt,
    }

    if updates := merchantData["I"]; len(updates) > 0 {
        return model.ItemAvailabilityChangedEvent{
            EventMeta:   meta,
            ItemID:      updates[0].ObjectID,
            IsAvailable: updates[0].Type != "DELETE",
        }, nil
    }
    if updates := merchantData["ITEM"]; len(updates) > 0 {
        if updates[0].Type == "DELETE" {
            return model.ItemAvailabilityChangedEvent{EventMeta: meta, ItemID: updates[0].ObjectID, IsAvailable: false}, nil
        }
        return model.MenuUpdatedEvent{EventMeta: meta, MenuID: "main"}, nil
    }
    if _, ok := merchantData["CATEGORY"]; ok {
        return model.MenuUpdatedEvent{EventMeta: meta, MenuID: "main"}, nil
    }

    keys := make([]string, 0, len(merchantData))
    for k := range merchantData {
        keys = append(keys, k)
    }
    return nil, &pos.WebhookError{Provider: "clover", Msg: fmt.Sprintf("unknown event types %v", keys)}
}
