package model

import "time"

// Provider identifies a POS backend.
type Provider string

const (
    ProviderToast  Provider = "toast"
    ProviderClover Provider = "clover"
    ProviderSquare Provider = "square"
    ProviderMock   Provider = "mock"
)

func (p Provider) Valid() bool {
    switch p {
    case ProviderToast, ProviderClover, ProviderSquare, ProviderMock:
        return true
    }
    return false
}

// OrderStatus is the lifecycle state of an internal order.
type OrderStatus string

const (
    OrderPending   OrderStatus = "pending"
    OrderConfirmed OrderStatus = "confirmed"
    OrderPreparing OrderStatus = "preparing"
    OrderReady     OrderStatus = "ready"
    OrderCompleted OrderStatus = "completed"
    OrderCancelled OrderStatus = "cancelled"
    OrderPOSFailed OrderStatus = "pos_failed"
)

// PaymentStatus mirrors the payment collaborator's view of an order.
type PaymentStatus string

const (
    PaymentPending  PaymentStatus = "pending"
    PaymentCaptured PaymentStatus = "captured"
    PaymentRefunded PaymentStatus = "refunded"
    PaymentFailed   PaymentStatus = "failed"
)

// OrderType distinguishes pickup from delivery submissions.
type OrderType string

const (
    OrderTypePickup   OrderType = "pickup"
    OrderTypeDelivery OrderType = "delivery"
)

// Credentials carry everything needed for one authentication attempt.
// They are supplied per call and never stored by adapter code.
type Credentials struct {
    Provider     Provider          `json:"provider"`
    ClientID     string            `json:"clientId"`
    ClientSecret string            `json:"clientSecret"`
    LocationID   string            `json:"locationId"`
    Extra        map[string]string `json:"extra,omitempty"` // provider-specific, e.g. auth_code for Clover
}

// Session is an immutable access token bundle. Refresh replaces it wholesale.
type Session struct {
    Provider     Provider  `json:"provider"`
    AccessToken  string    `json:"accessToken"`
    RefreshToken string    `json:"refreshToken,omitempty"`
    ExpiresAt    time.Time `json:"expiresAt"`
}

func (s Session) Expired(now time.Time) bool {
    return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Menu is the root of the read-only catalog tree fetched from a provider.
type Menu struct {
    ID          string         `json:"id"`
    Name        string         `json:"name"`
    Description string         `json:"description,omitempty"`
    IsActive    bool           `json:"isActive"`
    Categories  []MenuCategory `json:"categories"`
}

type MenuCategory struct {
    ID          string     `json:"id"`
    Name        string     `json:"name"`
    Description string     `json:"description,omitempty"`
    SortOrder   int        `json:"sortOrder"`
    Items       []MenuItem `json:"items"`
}

type MenuItem struct {
    ID             string          `json:"id"`
    Name           string          `json:"name"`
    Description    string          `json:"description,omitempty"`
    PriceCents     int64           `json:"priceCents"`
    IsAvailable    bool            `json:"isAvailable"`
    ImageURL       string          `json:"imageUrl,omitempty"`
    DietaryTags    []string        `json:"dietaryTags,omitempty"`
    Allergens      []string        `json:"allergens,omitempty"`
    AvailableFrom  string          `json:"availableFrom,omitempty"`  // HH:MM, empty = all day
    AvailableUntil string          `json:"availableUntil,omitempty"` // HH:MM
    ModifierGroups []ModifierGroup `json:"modifierGroups,omitempty"`
}

type ModifierGroup struct {
    ID            string     `json:"id"`
    Name          string     `json:"name"`
    MinSelections int        `json:"minSelections"`
    MaxSelections int        `json:"maxSelections"`
    Required      bool       `json:"required"`
    Modifiers     []Modifier `json:"modifiers"`
}

type Modifier struct {
    ID          string `json:"id"`
    Name        string `json:"name"`
    PriceCents  int64  `json:"priceCents"`
    IsAvailable bool   `json:"isAvailable"`
}

// Order is the internal order row as the orchestrator sees it.
type Order struct {
    ID                    string        `json:"id"`
    TenantID              string        `json:"tenantId"`
    Status                OrderStatus   `json:"status"`
    Type                  OrderType     `json:"type"`
    CustomerName          string        `json:"customerName"`
    CustomerPhone         string        `json:"customerPhone,omitempty"`
    Notes                 string        `json:"notes,omitempty"`
    TotalCents            int64         `json:"totalCents"`
    PaymentStatus         PaymentStatus `json:"paymentStatus"`
    StripePaymentIntentID string        `json:"stripePaymentIntentId,omitempty"`
    ExternalID            string        `json:"externalId,omitempty"`
    ConfirmationCode      string        `json:"confirmationCode,omitempty"`
    EstimatedReadyAt      *time.Time    `json:"estimatedReadyAt,omitempty"`
    SubmitAttempts        int           `json:"submitAttempts"`
    Items                 []OrderItem   `json:"items"`
    CreatedAt             time.Time     `json:"createdAt"`
    UpdatedAt             time.Time     `json:"updatedAt"`
}

type OrderItem struct {
    ID             string              `json:"id"`
    ItemID         string              `json:"itemId"`
    Name           string              `json:"name"`
    Quantity       int                 `json:"quantity"`
    UnitPriceCents int64               `json:"unitPriceCents"`
    Notes          string              `json:"notes,omitempty"`
    Modifiers      []OrderItemModifier `json:"modifiers,omitempty"`
}

// OrderItemModifier is the stored modifier snapshot on a line item. The
// orchestrator prefers current modifier records and falls back to this.
type OrderItemModifier struct {
    ModifierID string `json:"modifierId"`
    Name       string `json:"name"`
    PriceCents int64  `json:"priceCents"`
}

// POSOrder is the provider-neutral snapshot sent to create_order.
// Built once at submission time, never re-derived from the POS side.
type POSOrder struct {
    ReferenceID   string         `json:"referenceId"`
    Type          OrderType      `json:"type"`
    CustomerName  string         `json:"customerName"`
    CustomerPhone string         `json:"customerPhone,omitempty"`
    Notes         string         `json:"notes,omitempty"`
    TotalCents    int64          `json:"totalCents"`
    Items         []POSOrderItem `json:"items"`
}

type POSOrderItem struct {
    ExternalID     string             `json:"externalId"`
    Name           string             `json:"name"`
    Quantity       int                `json:"quantity"`
    UnitPriceCents int64              `json:"unitPriceCents"`
    Notes          string             `json:"notes,omitempty"`
    Modifiers      []POSOrderModifier `json:"modifiers,omitempty"`
}

type POSOrderModifier struct {
    ExternalID string `json:"externalId"`
    Name       string `json:"name"`
    PriceCents int64  `json:"priceCents"`
}

// OrderResult is the adapter's answer to create_order.
type OrderResult struct {
    ExternalID       string     `json:"externalId"`
    Status           string     `json:"status"`
    EstimatedReadyAt *time.Time `json:"estimatedReadyAt,omitempty"`
    ConfirmationCode string     `json:"confirmationCode,omitempty"`
}

// OrderStatusInfo is the adapter's answer to a status poll.
type OrderStatusInfo struct {
    ExternalID string    `json:"externalId"`
    Status     string    `json:"status"`
    CreatedAt  time.Time `json:"createdAt,omitempty"`
    UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// WebhookStatus tracks a stored webhook record through processing.
type WebhookStatus string

const (
    WebhookPending   WebhookStatus = "pending"
    WebhookProcessed WebhookStatus = "processed"
    WebhookFailed    WebhookStatus = "failed"
    WebhookSkipped   WebhookStatus = "skipped"
)

// WebhookRecord is one persisted inbound callback. Idempotency key is
// (TenantID, Provider, ExternalEventID) when the external id is non-empty.
type WebhookRecord struct {
    ID              string        `json:"id"`
    TenantID        string        `json:"tenantId"`
    Provider        Provider      `json:"provider"`
    EventType       string        `json:"eventType,omitempty"`
    Payload         []byte        `json:"payload"`
    Signature       string        `json:"signature,omitempty"`
    ExternalEventID string        `json:"externalEventId,omitempty"`
    Status          WebhookStatus `json:"status"`
    Error           string        `json:"error,omitempty"`
    DurationMs      int64         `json:"durationMs,omitempty"`
    ReceivedAt      time.Time     `json:"receivedAt"`
    ProcessedAt     *time.Time    `json:"processedAt,omitempty"`
}

// Tenant is the slice of the client record the POS layer needs.
type Tenant struct {
    ID          string   `json:"id"`
    Name        string   `json:"name"`
    POSProvider Provider `json:"posProvider,omitempty"` // empty = no POS configured
    LocationID  string   `json:"locationId,omitempty"`
    Sandbox     bool     `json:"sandbox"`
}

func (t Tenant) HasPOS() bool { return t.POSProvider != "" }
