package payments

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strings"
    "time"
)

// Refunder issues a full refund against a payment intent. Used only by
// saga compensation when POS submission permanently fails.
type Refunder interface {
    Refund(ctx context.Context, paymentIntentID string) error
}

// StripeRefunder calls the Stripe refunds endpoint.
type StripeRefunder struct {
    APIKey  string
    BaseURL string
    HTTP    *http.Client
}

func NewStripeRefunder(apiKey string) *StripeRefunder {
    return &StripeRefunder{
        APIKey:  apiKey,
        BaseURL: "https://api.stripe.com",
        HTTP:    &http.Client{Timeout: 30 * time.Second},
    }
}

func (s *StripeRefunder) Refund(ctx context.Context, paymentIntentID string) error {
    form := url.Values{}
    form.Set("payment_intent", paymentIntentID)
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/v1/refunds", strings.NewReader(form.Encode()))
    if err != nil {
        return err
    }
    req.Header.Set("Authorization", "Bearer "+s.APIKey)
    req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
    resp, err := s.HTTP.Do(req)
    if err != nil {
        return fmt.Errorf("stripe refund request: %w", err)
    }
    defer func() { _ = resp.Body.Close() }()
    body, _ := io.ReadAll(resp.Body)
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        var apiErr struct {
            Error struct {
                Message string `json:"message"`
            } `json:"error"`
        }
        _ = json.Unmarshal(body, &apiErr)
        if apiErr.Error.Message != "" {
            return fmt.Errorf("stripe refund failed: %s", apiErr.Error.Message)
        }
        return fmt.Errorf("stripe refund failed: status %d", resp.StatusCode)
    }
    return nil
}
