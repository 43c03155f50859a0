package square

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "net/http"
    "strconv"
    "time"

    "posbridge/internal/model"
    "posbridge/internal/pos"
)

const (
    prodBaseURL    = "https://connect.squareup.com"
    sandboxBaseURL = "https://connect.squareupsandbox.com"

    apiVersion = "2024-01-18"

    requestsPerSecond  = 10.0
    inventoryBatchSize = 100
)

// Adapter integrates with Square. OAuth with real refresh tokens, a
// cursor-paginated catalog surfaced as one "main" menu, and inventory
// tracked per item variation.
type Adapter struct {
    client *pos.Client
}

func New(opts pos.Options) pos.Adapter {
    url := prodBaseURL
    if opts.Sandbox {
        url = sandboxBaseURL
    }
    return &Adapter{client: pos.NewClient("square", url, requestsPerSecond)}
}

func (a *Adapter) Provider() model.Provider { return model.ProviderSquare }

func (a *Adapter) Authenticate(ctx context.Context, creds model.Credentials) (model.Session, error) {
    authCode := creds.Extra["auth_code"]
    if authCode == "" {
        return model.Session{}, &pos.AuthError{Provider: "square", Msg: "authentication requires auth_code in credentials extra"}
    }
    body, _ := json.Marshal(map[string]string{
        "client_id":     creds.ClientID,
        "client_secret": creds.ClientSecret,
        "code":          authCode,
        "grant_type":    "authorization_code",
    })
    return a.tokenExchange(ctx, body, "")
}

// RefreshToken exchanges the refresh token for a new session. Square
// requires the original client credentials for the exchange.
func (a *Adapter) RefreshToken(ctx context.Context, session model.Session, creds model.Credentials) (model.Session, error) {
    if session.RefreshToken == "" {
        return model.Session{}, &pos.AuthError{Provider: "square", Msg: "no refresh token available"}
    }
    if creds.ClientID == "" || creds.ClientSecret == "" {
        return model.Session{}, &pos.AuthError{Provider: "square", Msg: "token refresh requires client credentials"}
    }
    body, _ := json.Marshal(map[string]string{
        "client_id":     creds.ClientID,
        "client_secret": creds.ClientSecret,
        "refresh_token": session.RefreshToken,
        "grant_type":    "refresh_token",
    })
    return a.tokenExchange(ctx, body, session.RefreshToken)
}

func (a *Adapter) tokenExchange(ctx context.Context, body []byte, fallbackRefresh string) (model.Session, error) {
    var resp struct {
        AccessToken  string `json:"access_token"`
        RefreshToken string `json:"refresh_token"`
        ExpiresAt    string `json:"expires_at"`
    }
    err := a.client.DoJSON(ctx, http.MethodPost, "/oauth2/token", map[string]string{"Content-Type": "application/json"}, body, "", &resp)
    if err != nil {
        if pos.IsAuth(err) {
            return model.Session{}, &pos.AuthError{Provider: "square", Msg: "invalid credentials or token"}
        }
        return model.Session{}, &pos.AuthError{Provider: "square", Msg: fmt.Sprintf("token exchange failed: %v", err)}
    }
    if resp.AccessToken == "" {
        return model.Session{}, &pos.AuthError{Provider: "square", Msg: "no access token in response"}
    }
    expiresAt := time.Now().UTC().AddDate(0, 0, 30)
    if resp.ExpiresAt != "" {
        if t, err := time.Parse(time.RFC3339, resp.ExpiresAt); err == nil {
            expiresAt = t
        }
    }
    refresh := resp.RefreshToken
    if refresh == "" {
        refresh = fallbackRefresh
    }
    return model.Session{
        Provider:     model.ProviderSquare,
        AccessToken:  resp.AccessToken,
        RefreshToken: refresh,
        ExpiresAt:    expiresAt,
    }, nil
}

func (a *Adapter) headers(session model.Session) map[string]string {
    return map[string]string{
        "Authorization":  "Bearer " + session.AccessToken,
        "Square-Version": apiVersion,
        "Content-Type":   "application/json",
    }
}

func (a *Adapter) GetMenus(ctx context.Context, session model.Session, locationID string) ([]model.Menu, error) {
    catalog, err := a.fetchCatalog(ctx, session)
    if err != nil {
        return nil, err
    }
    return []model.Menu{buildMenu(catalog, locationID)}, nil
}

func (a *Adapter) GetMenu(ctx context.Context, session model.Session, locationID, menuID string) (model.Menu, error) {
    if menuID != "main" {
        return model.Menu{}, &pos.APIError{Provider: "square", Msg: fmt.Sprintf("menu not found: %s, only 'main' is supported", menuID), StatusCode: 404}
    }
    menus, err := a.GetMenus(ctx, session, locationID)
    if err != nil {
        return model.Menu{}, err
    }
    return menus[0], nil
}

// GetItemAvailability computes item-level availability: an item is
// available when any variation is in stock, and items without inventory
// records count as always available.
func (a *Adapter) GetItemAvailability(ctx context.Context, session model.Session, locationID string) (map[string]bool, error) {
    catalog, err := a.fetchCatalog(ctx, session)
    if err != nil {
        return nil, err
    }

    variationToItem := map[string]string{}
    for _, obj := range catalog {
        if obj.Type != "ITEM" {
            continue
        }
        for _, v := range obj.ItemData.Variations {
            variationToItem[v.ID] = obj.ID
        }
    }
    if len(variationToItem) == 0 {
        return map[string]bool{}, nil
    }

    variationIDs := make([]string, 0, len(variationToItem))
    for id := range variationToItem {
        variationIDs = append(variationIDs, id)
    }

    type count struct {
        CatalogObjectID string `json:"catalog_object_id"`
        State           string `json:"state"`
        Quantity        string `json:"quantity"`
    }
    var allCounts []count
    for i := 0; i < len(variationIDs); i += inventoryBatchSize {
        end := min(i+inventoryBatchSize, len(variationIDs))
        body, _ := json.Marshal(map[string]any{
            "catalog_object_ids": variationIDs[i:end],
            "location_ids":       []string{locationID},
        })
        var resp struct {
            Counts []count `json:"counts"`
        }
        if err := a.client.DoJSON(ctx, http.MethodPost, "/v2/inventory/counts/batch-retrieve", a.headers(session), body, "", &resp); err != nil {
            return nil, err
        }
        allCounts = append(allCounts, resp.Counts...)
    }

    tracked := map[string]bool{}
    hasStock := map[string]bool{}
    for _, c := range allCounts {
        itemID := variationToItem[c.CatalogObjectID]
        if itemID == "" {
            continue
        }
        tracked[itemID] = true
        qty, _ := strconv.ParseFloat(c.Quantity, 64)
        if c.State == "IN_STOCK" || qty > 0 {
            hasStock[itemID] = true
        }
    }

    availability := map[string]bool{}
    for _, itemID := range variationToItem {
        if tracked[itemID] {
            availability[itemID] = hasStock[itemID]
        } else {
            availability[itemID] = true
        }
    }
    return availability, nil
}

func (a *Adapter) fetchCatalog(ctx context.Context, session model.Session) ([]catalogObject, error) {
    var all []catalogObject
    cursor := ""
    for {
        body := map[string]any{
            "object_types":            []string{"ITEM", "CATEGORY", "MODIFIER_LIST"},
            "include_related_objects": true,
        }
        if cursor != "" {
            body["cursor"] = cursor
        }
        raw, _ := json.Marshal(body)
        var resp struct {
            Objects        []catalogObject `json:"objects"`
            RelatedObjects []catalogObject `json:"related_objects"`
            Cursor         string          `json:"cursor"`
        }
        if err := a.client.DoJSON(ctx, http.MethodPost, "/v2/catalog/search", a.headers(session), raw, "", &resp); err != nil {
            return nil, err
        }
        all = append(all, resp.Objects...)
        all = append(all, resp.RelatedObjects...)
        if resp.Cursor == "" {
            return all, nil
        }
        cursor = resp.Cursor
    }
}

func (a *Adapter) CreateOrder(_ context.Context, _ model.Session, _ string, _ model.POSOrder) (model.OrderResult, error) {
    return model.OrderResult{}, &pos.APIError{Provider: "square", Msg: "order creation not implemented"}
}

func (a *Adapter) GetOrderStatus(_ context.Context, _ model.Session, _, _ string) (model.OrderStatusInfo, error) {
    return model.OrderStatusInfo{}, &pos.APIError{Provider: "square", Msg: "order status not implemented"}
}

// VerifyWebhookSignature checks the base64 HMAC-SHA256 over
// notification URL + body from x-square-hmacsha256-signature. Without a
// known notification URL the signature cannot be computed, so the check
// warns and passes.
func (a *Adapter) VerifyWebhookSignature(payload []byte, signature, secret, notificationURL string) bool {
    if notificationURL == "" {
        log.Printf("square webhook verification called without notification url, accepting")
        return true
    }
    return pos.VerifyBase64HMAC(secret, notificationURL, payload, signature)
}

func (a *Adapter) ParseWebhook(payload []byte) (model.WebhookEvent, error) {
    var raw struct {
        Type      string `json:"type"`
        EventID   string `json:"event_id"`
        CreatedAt string `json:"created_at"`
        Data      struct {
            Object struct {
                InventoryCounts []struct {
                    CatalogObjectID string `json:"catalog_object_id"`
                    State           string `json:"state"`
                    Quantity        string `json:"quantity"`
                } `json:"inventory_counts"`
            } `json:"object"`
        } `json:"data"`
    }
    if err := json.Unmarshal(payload, &raw); err != nil {
        return nil, &pos.WebhookError{Provider: "square", Msg: "invalid payload", Err: err}
    }
    occurredAt := time.Now().UTC()
    if raw.CreatedAt != "" {
        t, err := time.Parse(time.RFC3339, raw.CreatedAt)
        if err != nil {
            return nil, &pos.WebhookError{Provider: "square", Msg: "invalid timestamp", Err: err}
        }
        occurredAt = t
    }
    meta := model.EventMeta{Provider: model.ProviderSquare, EventID: raw.EventID, OccurredAt: occurredAt}

    switch raw.Type {
    case "inventory.count.updated":
        counts := raw.Data.Object.InventoryCounts
        if len(counts) == 0 {
            return nil, &pos.WebhookError{Provider: "square", Msg: "no inventory counts in payload"}
        }
        qty, _ := strconv.ParseFloat(counts[0].Quantity, 64)
        return model.ItemAvailabilityChangedEvent{
            EventMeta:   meta,
            ItemID:      counts[0].CatalogObjectID,
            IsAvailable: counts[0].State == "IN_STOCK" || qty > 0,
        }, nil
    case "catalog.version.updated":
        return model.MenuUpdatedEvent{EventMeta: meta, MenuID: "main"}, nil
    default:
        return nil, &pos.WebhookError{Provider: "square", Msg: fmt.Sprintf("unknown event type %q", raw.Type)}
    }
}
