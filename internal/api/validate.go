package api

import (
    "strings"

    "github.com/go-playground/validator/v10"

    "posbridge/internal/model"
)

var validate = newValidator()

type createOrderRequest struct {
    Type            string            `json:"type" validate:"omitempty,oneof=pickup delivery"`
    CustomerName    string            `json:"customerName" validate:"required,max=120"`
    CustomerPhone   string            `json:"customerPhone" validate:"omitempty,max=32"`
    Notes           string            `json:"notes" validate:"omitempty,max=500"`
    TotalCents      int64             `json:"totalCents" validate:"gt=0"`
    PaymentIntentID string            `json:"paymentIntentId"`
    Items           []createOrderItem `json:"items" validate:"required,min=1,dive"`
}

type createOrderItem struct {
    ItemID         string                `json:"itemId" validate:"required"`
    Name           string                `json:"name" validate:"required,max=200"`
    Quantity       int                   `json:"quantity" validate:"required,gt=0,lte=50"`
    UnitPriceCents int64                 `json:"unitPriceCents" validate:"gte=0"`
    Notes          string                `json:"notes" validate:"omitempty,max=500"`
    Modifiers      []createOrderModifier `json:"modifiers" validate:"dive"`
}

type createOrderModifier struct {
    ModifierID string `json:"modifierId" validate:"required"`
    Name       string `json:"name" validate:"required,max=200"`
    PriceCents int64  `json:"priceCents" validate:"gte=0"`
}

func newValidator() *validator.Validate {
    v := validator.New(validator.WithRequiredStructEnabled())
    v.RegisterStructValidation(orderTotalCheck, createOrderRequest{})
    return v
}

// orderTotalCheck requires totalCents to equal the sum of the line items,
// modifiers included.
func orderTotalCheck(sl validator.StructLevel) {
    req := sl.Current().Interface().(createOrderRequest)
    var sum int64
    for _, it := range req.Items {
        line := it.UnitPriceCents
        for _, m := range it.Modifiers {
            line += m.PriceCents
        }
        sum += line * int64(it.Quantity)
    }
    if sum != req.TotalCents {
        sl.ReportError(req.TotalCents, "TotalCents", "totalCents", "ordertotal", "")
    }
}

// validationDetail flattens validator errors into one human-readable line.
func validationDetail(err error) string {
    verrs, ok := err.(validator.ValidationErrors)
    if !ok {
        return err.Error()
    }
    parts := make([]string, 0, len(verrs))
    for _, fe := range verrs {
        switch fe.Tag() {
        case "ordertotal":
            parts = append(parts, "totalCents must equal the sum of item prices")
        case "required":
            parts = append(parts, fe.Field()+" is required")
        default:
            parts = append(parts, fe.Field()+" failed "+fe.Tag())
        }
    }
    return strings.Join(parts, "; ")
}

func (req createOrderRequest) toOrder(tenantID string) model.Order {
    typ := model.OrderType(req.Type)
    if typ == "" {
        typ = model.OrderTypePickup
    }
    o := model.Order{
        TenantID:              tenantID,
        Status:                model.OrderPending,
        Type:                  typ,
        CustomerName:          req.CustomerName,
        CustomerPhone:         req.CustomerPhone,
        Notes:                 req.Notes,
        TotalCents:            req.TotalCents,
        PaymentStatus:         model.PaymentPending,
        StripePaymentIntentID: req.PaymentIntentID,
    }
    for _, it := range req.Items {
        item := model.OrderItem{
            ItemID:         it.ItemID,
            Name:           it.Name,
            Quantity:       it.Quantity,
            UnitPriceCents: it.UnitPriceCents,
            Notes:          it.Notes,
        }
        for _, m := range it.Modifiers {
            item.Modifiers = append(item.Modifiers, model.OrderItemModifier{
                ModifierID: m.ModifierID,
                Name:       m.Name,
                PriceCents: m.PriceCents,
            })
        }
        o.Items = append(o.Items, item)
    }
    return o
}
