package orders

import (
    "context"
    "errors"
    "fmt"
    "log"
    "time"

    "posbridge/internal/metrics"
    "posbridge/internal/model"
    "posbridge/internal/pos"
    "posbridge/internal/store"
)

// SubmissionError is the only error type the orchestrator surfaces.
// Adapter-level errors are mapped into it with a retryability flag.
type SubmissionError struct {
    Msg       string
    OrderID   string
    Retryable bool
}

func (e *SubmissionError) Error() string { return e.Msg }

// CredentialSource resolves real POS credentials for a tenant. A false
// return means demo mode: submission proceeds with a placeholder session.
type CredentialSource interface {
    Credentials(tenantID string, provider model.Provider) (model.Credentials, bool)
}

// Result is the successful submission outcome.
type Result struct {
    ExternalID       string `json:"externalId"`
    ConfirmationCode string `json:"confirmationCode,omitempty"`
}

// Submitter pushes confirmed orders into the tenant's POS.
type Submitter struct {
    Store    store.Store
    Registry *pos.Registry
    Creds    CredentialSource
}

func NewSubmitter(s store.Store, reg *pos.Registry, creds CredentialSource) *Submitter {
    return &Submitter{Store: s, Registry: reg, Creds: creds}
}

// Submit sends one order to the POS. Idempotent: an order that already
// carries an external id returns it without a network call. Tenants
// without a POS get confirmed locally.
func (s *Submitter) Submit(ctx context.Context, tenantID, orderID string) (Result, error) {
    order, err := s.Store.GetOrder(ctx, tenantID, orderID)
    if err != nil {
        if errors.Is(err, store.ErrNotFound) {
            return Result{}, &SubmissionError{Msg: fmt.Sprintf("order %s not found", orderID), OrderID: orderID, Retryable: false}
        }
        return Result{}, &SubmissionError{Msg: err.Error(), OrderID: orderID, Retryable: true}
    }

    if order.ExternalID != "" {
        log.Printf("order %s already submitted (external_id=%s)", orderID, order.ExternalID)
        return Result{ExternalID: order.ExternalID, ConfirmationCode: order.ConfirmationCode}, nil
    }

    if order.Status != model.OrderConfirmed && order.Status != model.OrderPending {
        return Result{}, &SubmissionError{Msg: fmt.Sprintf("order %s is not ready for submission (status=%s)", orderID, order.Status), OrderID: orderID, Retryable: false}
    }

    tenant, err := s.Store.GetTenant(ctx, tenantID)
    if err != nil || !tenant.HasPOS() {
        // No POS configured: confirm locally with no external id.
        log.Printf("no POS configured for order %s, confirming locally", orderID)
        if uerr := s.Store.UpdateOrderStatus(ctx, tenantID, orderID, model.OrderConfirmed); uerr != nil {
            return Result{}, &SubmissionError{Msg: uerr.Error(), OrderID: orderID, Retryable: true}
        }
        metrics.OrderSubmissions.WithLabelValues("none", "local").Inc()
        return Result{ConfirmationCode: order.ConfirmationCode}, nil
    }

    provider := tenant.POSProvider
    if !provider.Valid() {
        provider = model.ProviderMock
    }
    adapter, err := s.Registry.Get(provider, pos.Options{Sandbox: tenant.Sandbox})
    if err != nil {
        return Result{}, &SubmissionError{Msg: err.Error(), OrderID: orderID, Retryable: false}
    }

    session := s.resolveSession(ctx, adapter, tenant, provider)
    posOrder := s.buildPOSOrder(ctx, order)

    result, err := adapter.CreateOrder(ctx, session, tenant.LocationID, posOrder)
    if err != nil {
        metrics.OrderSubmissions.WithLabelValues(string(provider), "error").Inc()
        return Result{}, &SubmissionError{Msg: err.Error(), OrderID: orderID, Retryable: true}
    }

    status := model.OrderConfirmed
    if err := s.Store.MarkOrderSubmitted(ctx, tenantID, orderID, result.ExternalID, result.ConfirmationCode, result.EstimatedReadyAt, status); err != nil {
        return Result{}, &SubmissionError{Msg: err.Error(), OrderID: orderID, Retryable: true}
    }

    metrics.OrderSubmissions.WithLabelValues(string(provider), "success").Inc()
    log.Printf("order %s submitted to POS: external_id=%s", orderID, result.ExternalID)

    code := order.ConfirmationCode
    if code == "" {
        code = result.ConfirmationCode
    }
    return Result{ExternalID: result.ExternalID, ConfirmationCode: code}, nil
}

// resolveSession authenticates with real credentials when configured,
// falling back to a placeholder session for demo mode or auth failure.
func (s *Submitter) resolveSession(ctx context.Context, adapter pos.Adapter, tenant model.Tenant, provider model.Provider) model.Session {
    if s.Creds != nil {
        if creds, ok := s.Creds.Credentials(tenant.ID, provider); ok {
            session, err := adapter.Authenticate(ctx, creds)
            if err == nil {
                return session
            }
            log.Printf("POS authentication failed for tenant %s, using placeholder session: %v", tenant.ID, err)
        } else {
            log.Printf("no POS credentials for tenant %s/%s, using placeholder session", tenant.ID, provider)
        }
    }
    return model.Session{
        Provider:    provider,
        AccessToken: "placeholder-token",
        ExpiresAt:   time.Now().UTC().Add(time.Hour),
    }
}

// buildPOSOrder flattens the order into the provider-neutral snapshot.
// Modifier names and prices come from current records when they still
// exist, otherwise from the snapshot stored on the line item.
func (s *Submitter) buildPOSOrder(ctx context.Context, order model.Order) model.POSOrder {
    posOrder := model.POSOrder{
        ReferenceID:   order.ID,
        Type:          order.Type,
        CustomerName:  order.CustomerName,
        CustomerPhone: order.CustomerPhone,
        Notes:         order.Notes,
        TotalCents:    order.TotalCents,
    }
    for _, item := range order.Items {
        posItem := model.POSOrderItem{
            ExternalID:     item.ItemID,
            Name:           item.Name,
            Quantity:       item.Quantity,
            UnitPriceCents: item.UnitPriceCents,
            Notes:          item.Notes,
        }
        for _, snap := range item.Modifiers {
            mod := model.POSOrderModifier{ExternalID: snap.ModifierID, Name: snap.Name, PriceCents: snap.PriceCents}
            if current, err := s.Store.GetModifier(ctx, order.TenantID, snap.ModifierID); err == nil {
                mod.ExternalID = current.ID
                mod.Name = current.Name
                mod.PriceCents = current.PriceCents
            }
            posItem.Modifiers = append(posItem.Modifiers, mod)
        }
        posOrder.Items = append(posOrder.Items, posItem)
    }
    return posOrder
}
