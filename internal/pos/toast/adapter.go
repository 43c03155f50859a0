package toast

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/google/uuid"

    "posbridge/internal/model"
    "posbridge/internal/pos"
)

const (
    baseURL        = "https://ws-api.toasttab.com"
    sandboxBaseURL = "https://ws-sandbox-api.toasttab.com"
    authPath       = "/authentication/v1/authentication/login"
    menusPath      = "/menus/v2/menus"
    stockPath      = "/stock/v1/inventory"

    // Toast limits requests per restaurant, so the limiter is keyed by location.
    requestsPerSecond = 1.0
)

// Adapter integrates with Toast. Order creation requires Toast Partner API
// access and currently runs in placeholder mode simulating confirmation.
type Adapter struct {
    client *pos.Client
}

func New(opts pos.Options) pos.Adapter {
    url := baseURL
    if opts.Sandbox {
        url = sandboxBaseURL
    }
    return &Adapter{client: pos.NewClient("toast", url, requestsPerSecond)}
}

func (a *Adapter) Provider() model.Provider { return model.ProviderToast }

func (a *Adapter) Authenticate(ctx context.Context, creds model.Credentials) (model.Session, error) {
    body, _ := json.Marshal(map[string]string{
        "clientId":       creds.ClientID,
        "clientSecret":   creds.ClientSecret,
        "userAccessType": "TOAST_MACHINE_CLIENT",
    })
    var resp struct {
        Token struct {
            AccessToken string `json:"accessToken"`
            ExpiresIn   int    `json:"expiresIn"`
        } `json:"token"`
    }
    err := a.client.DoJSON(ctx, http.MethodPost, authPath, map[string]string{"Content-Type": "application/json"}, body, "auth", &resp)
    if err != nil {
        if pos.IsAuth(err) {
            return model.Session{}, &pos.AuthError{Provider: "toast", Msg: "invalid credentials"}
        }
        return model.Session{}, &pos.AuthError{Provider: "toast", Msg: fmt.Sprintf("authentication failed: %v", err)}
    }
    if resp.Token.AccessToken == "" {
        return model.Session{}, &pos.AuthError{Provider: "toast", Msg: "no access token in response"}
    }
    expiresIn := resp.Token.ExpiresIn
    if expiresIn == 0 {
        expiresIn = 86400
    }
    return model.Session{
        Provider:    model.ProviderToast,
        AccessToken: resp.Token.AccessToken,
        ExpiresAt:   time.Now().UTC().Add(time.Duration(expiresIn) * time.Second),
    }, nil
}

// RefreshToken always fails: Toast issues no refresh tokens, callers
// re-authenticate when the access token expires.
func (a *Adapter) RefreshToken(_ context.Context, _ model.Session, _ model.Credentials) (model.Session, error) {
    return model.Session{}, &pos.AuthError{Provider: "toast", Msg: "token refresh not supported, re-authenticate instead"}
}

func (a *Adapter) headers(session model.Session, locationID string) map[string]string {
    return map[string]string{
        "Authorization":                "Bearer " + session.AccessToken,
        "Toast-Restaurant-External-ID": locationID,
    }
}

func (a *Adapter) GetMenus(ctx context.Context, session model.Session, locationID string) ([]model.Menu, error) {
    var raw []rawMenu
    if err := a.client.DoJSON(ctx, http.MethodGet, menusPath, a.headers(session, locationID), nil, locationID, &raw); err != nil {
        return nil, err
    }
    menus := make([]model.Menu, 0, len(raw))
    for _, m := range raw {
        menus = append(menus, parseMenu(m))
    }
    return menus, nil
}

func (a *Adapter) GetMenu(ctx context.Context, session model.Session, locationID, menuID string) (model.Menu, error) {
    var raw rawMenu
    if err := a.client.DoJSON(ctx, http.MethodGet, menusPath+"/"+menuID, a.headers(session, locationID), nil, locationID, &raw); err != nil {
        return model.Menu{}, err
    }
    return parseMenu(raw), nil
}

func (a *Adapter) GetItemAvailability(ctx context.Context, session model.Session, locationID string) (map[string]bool, error) {
    var resp struct {
        StockItems []struct {
            GUID       string `json:"guid"`
            OutOfStock bool   `json:"outOfStock"`
        } `json:"stockItems"`
    }
    if err := a.client.DoJSON(ctx, http.MethodGet, stockPath, a.headers(session, locationID), nil, locationID, &resp); err != nil {
        return nil, err
    }
    availability := make(map[string]bool, len(resp.StockItems))
    for _, it := range resp.StockItems {
        availability[it.GUID] = !it.OutOfStock
    }
    return availability, nil
}

// CreateOrder simulates submission until Partner API access is configured.
func (a *Adapter) CreateOrder(_ context.Context, _ model.Session, _ string, order model.POSOrder) (model.OrderResult, error) {
    ready := time.Now().UTC().Add(25 * time.Minute)
    return model.OrderResult{
        ExternalID:       "toast-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
        Status:           string(model.OrderConfirmed),
        EstimatedReadyAt: &ready,
        ConfirmationCode: strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6]),
    }, nil
}

func (a *Adapter) GetOrderStatus(_ context.Context, _ model.Session, _ string, externalID string) (model.OrderStatusInfo, error) {
    return model.OrderStatusInfo{
        ExternalID: externalID,
        Status:     string(model.OrderConfirmed),
        UpdatedAt:  time.Now().UTC(),
    }, nil
}

// VerifyWebhookSignature checks the hex HMAC-SHA256 from the
// Toast-Signature header. Comparison is case-insensitive.
func (a *Adapter) VerifyWebhookSignature(payload []byte, signature, secret, _ string) bool {
    return pos.VerifyHexHMAC(secret, payload, signature)
}

func (a *Adapter) ParseWebhook(payload []byte) (model.WebhookEvent, error) {
    var raw struct {
        EventType  string `json:"eventType"`
        EventID    string `json:"eventId"`
        WebhookID  string `json:"webhookId"`
        OccurredAt string `json:"occurredAt"`
        Timestamp  string `json:"timestamp"`
        MenuGUID   string `json:"menuGuid"`
        ItemGUID   string `json:"itemGuid"`
        EntityGUID string `json:"entityGuid"`
        OutOfStock bool   `json:"outOfStock"`
    }
    if err := json.Unmarshal(payload, &raw); err != nil {
        return nil, &pos.WebhookError{Provider: "toast", Msg: "invalid payload", Err: err}
    }
    eventID := raw.EventID
    if eventID == "" {
        eventID = raw.WebhookID
    }
    ts := raw.OccurredAt
    if ts == "" {
        ts = raw.Timestamp
    }
    occurredAt := time.Now().UTC()
    if ts != "" {
        t, err := time.Parse(time.RFC3339, ts)
        if err != nil {
            return nil, &pos.WebhookError{Provider: "toast", Msg: "invalid timestamp", Err: err}
        }
        occurredAt = t
    }
    meta := model.EventMeta{Provider: model.ProviderToast, EventID: eventID, OccurredAt: occurredAt}

    switch raw.EventType {
    case "MENU_UPDATED":
        menuID := raw.MenuGUID
        if menuID == "" {
            menuID = raw.EntityGUID
        }
        return model.MenuUpdatedEvent{EventMeta: meta, MenuID: menuID}, nil
    case "ITEM_AVAILABILITY_CHANGED":
        itemID := raw.ItemGUID
        if itemID == "" {
            itemID = raw.EntityGUID
        }
        return model.ItemAvailabilityChangedEvent{EventMeta: meta, ItemID: itemID, IsAvailable: !raw.OutOfStock}, nil
    default:
        return nil, &pos.WebhookError{Provider: "toast", Msg: fmt.Sprintf("unknown event type %q", raw.EventType)}
    }
}
