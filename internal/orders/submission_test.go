package orders

import (
    "context"
    "errors"
    "strings"
    "testing"

    "posbridge/internal/model"
    "posbridge/internal/pos"
    "posbridge/internal/pos/mock"
    "posbridge/internal/store"
)

func newTestSubmitter(adapter *mock.Adapter) (*Submitter, *store.Memory) {
    mem := store.NewMemory()
    reg := pos.NewRegistry()
    reg.Register(model.ProviderMock, func(pos.Options) pos.Adapter { return adapter })
    mem.PutTenant(model.Tenant{ID: "t1", POSProvider: model.ProviderMock, LocationID: "loc-1"})
    return NewSubmitter(mem, reg, nil), mem
}

func confirmedOrder(id string) model.Order {
    return model.Order{
        ID:           id,
        TenantID:     "t1",
        Status:       model.OrderConfirmed,
        CustomerName: "Pat",
        TotalCents:   899,
        Items:        []model.OrderItem{{ItemID: "item-scrambled", Name: "Scrambled Eggs", Quantity: 1, UnitPriceCents: 899}},
    }
}

func TestSubmitSuccess(t *testing.T) {
    sub, mem := newTestSubmitter(mock.New())
    mem.PutOrder(confirmedOrder("o-1"))

    result, err := sub.Submit(context.Background(), "t1", "o-1")
    if err != nil {
        t.Fatalf("submit: %v", err)
    }
    if !strings.HasPrefix(result.ExternalID, "mock-order-") {
        t.Fatalf("external id = %q", result.ExternalID)
    }
    order, _ := mem.GetOrder(context.Background(), "t1", "o-1")
    if order.ExternalID != result.ExternalID || order.Status != model.OrderConfirmed {
        t.Fatalf("stored order = %+v", order)
    }
    if order.ConfirmationCode == "" || order.EstimatedReadyAt == nil {
        t.Fatalf("missing confirmation fields: %+v", order)
    }
}

func TestSubmitAlreadySubmitted(t *testing.T) {
    adapter := mock.New(mock.WithFailOrders())
    sub, mem := newTestSubmitter(adapter)
    o := confirmedOrder("o-2")
    o.ExternalID = "mock-order-existing"
    o.ConfirmationCode = "ABC123"
    mem.PutOrder(o)

    // Adapter would fail, so a network call would surface as an error.
    result, err := sub.Submit(context.Background(), "t1", "o-2")
    if err != nil {
        t.Fatalf("submit: %v", err)
    }
    if result.ExternalID != "mock-order-existing" || result.ConfirmationCode != "ABC123" {
        t.Fatalf("result = %+v", result)
    }
}

func TestSubmitOrderNotFound(t *testing.T) {
    sub, _ := newTestSubmitter(mock.New())
    _, err := sub.Submit(context.Background(), "t1", "missing")
    var subErr *SubmissionError
    if !errors.As(err, &subErr) || subErr.Retryable {
        t.Fatalf("err = %v", err)
    }
}

func TestSubmitIneligibleStatus(t *testing.T) {
    sub, mem := newTestSubmitter(mock.New())
    o := confirmedOrder("o-3")
    o.Status = model.OrderCancelled
    mem.PutOrder(o)

    _, err := sub.Submit(context.Background(), "t1", "o-3")
    var subErr *SubmissionError
    if !errors.As(err, &subErr) || subErr.Retryable {
        t.Fatalf("err = %v", err)
    }
}

func TestSubmitNoPOSConfirmsLocally(t *testing.T) {
    sub, mem := newTestSubmitter(mock.New())
    mem.PutTenant(model.Tenant{ID: "t2"})
    o := confirmedOrder("o-4")
    o.TenantID = "t2"
    o.Status = model.OrderPending
    mem.PutOrder(o)

    result, err := sub.Submit(context.Background(), "t2", "o-4")
    if err != nil {
        t.Fatalf("submit: %v", err)
    }
    if result.ExternalID != "" {
        t.Fatalf("external id = %q, want empty", result.ExternalID)
    }
    order, _ := mem.GetOrder(context.Background(), "t2", "o-4")
    if order.Status != model.OrderConfirmed {
        t.Fatalf("status = %s", order.Status)
    }
}

func TestSubmitUnavailableItem(t *testing.T) {
    adapter := mock.New(mock.WithUnavailable("item-scrambled"))
    sub, mem := newTestSubmitter(adapter)
    mem.PutOrder(confirmedOrder("o-5"))

    _, err := sub.Submit(context.Background(), "t1", "o-5")
    var subErr *SubmissionError
    if !errors.As(err, &subErr) || !subErr.Retryable {
        t.Fatalf("err = %v", err)
    }
    order, _ := mem.GetOrder(context.Background(), "t1", "o-5")
    if order.ExternalID != "" {
        t.Fatal("failed submission must not record an external id")
    }
}

func TestSubmitResolvesCurrentModifier(t *testing.T) {
    adapter := mock.New()
    sub, mem := newTestSubmitter(adapter)
    mem.PutModifier("t1", model.Modifier{ID: "mod-cheddar", Name: "Sharp Cheddar", PriceCents: 175, IsAvailable: true})
    o := confirmedOrder("o-6")
    o.Items[0].Modifiers = []model.OrderItemModifier{{ModifierID: "mod-cheddar", Name: "Cheddar", PriceCents: 150}}
    mem.PutOrder(o)

    built := sub.buildPOSOrder(context.Background(), o)
    mod := built.Items[0].Modifiers[0]
    if mod.Name != "Sharp Cheddar" || mod.PriceCents != 175 {
        t.Fatalf("modifier = %+v, want current record values", mod)
    }

    // Snapshot wins when the record is gone.
    o.Items[0].Modifiers[0].ModifierID = "mod-gone"
    built = sub.buildPOSOrder(context.Background(), o)
    mod = built.Items[0].Modifiers[0]
    if mod.Name != "Cheddar" || mod.PriceCents != 150 {
        t.Fatalf("modifier = %+v, want snapshot values", mod)
    }
}
