package orders

import (
    "context"
    "errors"
    "log"
    "time"

    "posbridge/internal/metrics"
    "posbridge/internal/model"
    "posbridge/internal/payments"
    "posbridge/internal/store"
)

const MaxAttempts = 3

// RetryDelays is the backoff schedule keyed by attempt index, clamped to
// the last entry.
var RetryDelays = []time.Duration{60 * time.Second, 120 * time.Second, 300 * time.Second}

// OutcomeKind is the three-state submission result the scheduler acts on.
type OutcomeKind string

const (
    OutcomeSuccess OutcomeKind = "success"
    OutcomeRetry   OutcomeKind = "retry"
    OutcomeFailed  OutcomeKind = "failed"
)

// Outcome reports one submission attempt. Retry outcomes carry the delay
// before the caller should re-invoke; failed outcomes are terminal and
// have already triggered compensation.
type Outcome struct {
    Kind             OutcomeKind   `json:"kind"`
    OrderID          string        `json:"orderId"`
    ExternalID       string        `json:"externalId,omitempty"`
    ConfirmationCode string        `json:"confirmationCode,omitempty"`
    Error            string        `json:"error,omitempty"`
    RetryCount       int           `json:"retryCount,omitempty"`
    RetryDelay       time.Duration `json:"retryDelay,omitempty"`
}

// Orchestrator wraps the submitter with the retry policy and saga
// compensation.
type Orchestrator struct {
    Submitter *Submitter
    Store     store.Store
    Refunder  payments.Refunder
}

func NewOrchestrator(sub *Submitter, s store.Store, refunder payments.Refunder) *Orchestrator {
    return &Orchestrator{Submitter: sub, Store: s, Refunder: refunder}
}

// SubmitWithPolicy performs one submission attempt. retryCount is the
// zero-indexed attempt number the caller is on.
func (o *Orchestrator) SubmitWithPolicy(ctx context.Context, tenantID, orderID string, retryCount int) Outcome {
    if attempts, err := o.Store.IncrementOrderAttempts(ctx, tenantID, orderID); err == nil {
        log.Printf("order %s submission attempt %d", orderID, attempts)
    }
    result, err := o.Submitter.Submit(ctx, tenantID, orderID)
    if err == nil {
        return Outcome{Kind: OutcomeSuccess, OrderID: orderID, ExternalID: result.ExternalID, ConfirmationCode: result.ConfirmationCode}
    }

    var subErr *SubmissionError
    if !errors.As(err, &subErr) {
        subErr = &SubmissionError{Msg: err.Error(), OrderID: orderID, Retryable: false}
    }

    if subErr.Retryable && retryCount < MaxAttempts {
        delay := RetryDelays[min(retryCount, len(RetryDelays)-1)]
        log.Printf("order %s submission failed (attempt %d/%d), retry in %s: %s", orderID, retryCount+1, MaxAttempts, delay, subErr.Msg)
        return Outcome{Kind: OutcomeRetry, OrderID: orderID, Error: subErr.Msg, RetryCount: retryCount, RetryDelay: delay}
    }

    log.Printf("order %s submission permanently failed after %d attempts: %s", orderID, retryCount+1, subErr.Msg)
    o.handlePermanentFailure(ctx, tenantID, orderID, subErr.Msg)
    return Outcome{Kind: OutcomeFailed, OrderID: orderID, Error: subErr.Msg, RetryCount: retryCount}
}

// RetryFailed is the manual entry point: a pos_failed order is reset to
// confirmed and submitted with a fresh attempt counter.
func (o *Orchestrator) RetryFailed(ctx context.Context, tenantID, orderID string) Outcome {
    order, err := o.Store.GetOrder(ctx, tenantID, orderID)
    if err != nil {
        return Outcome{Kind: OutcomeFailed, OrderID: orderID, Error: "order not found"}
    }
    if order.Status != model.OrderPOSFailed {
        return Outcome{Kind: OutcomeFailed, OrderID: orderID, Error: "order is not in pos_failed state (current: " + string(order.Status) + ")"}
    }
    if err := o.Store.ResetOrderForRetry(ctx, tenantID, orderID); err != nil {
        return Outcome{Kind: OutcomeFailed, OrderID: orderID, Error: err.Error()}
    }
    log.Printf("retrying POS submission for order %s", orderID)
    return o.SubmitWithPolicy(ctx, tenantID, orderID, 0)
}

func (o *Orchestrator) handlePermanentFailure(ctx context.Context, tenantID, orderID, errMsg string) {
    if err := o.Store.UpdateOrderStatus(ctx, tenantID, orderID, model.OrderPOSFailed); err != nil {
        log.Printf("failed to mark order %s pos_failed: %v", orderID, err)
        return
    }
    log.Printf("order %s permanently failed POS submission: %s", orderID, errMsg)
    if _, err := o.Compensate(ctx, tenantID, orderID); err != nil {
        log.Printf("compensation failed for order %s: %v", orderID, err)
    }
}

// Compensate refunds a captured payment after permanent failure. Returns
// whether a refund was issued. A refund failure leaves payment state
// untouched for manual follow-up.
func (o *Orchestrator) Compensate(ctx context.Context, tenantID, orderID string) (bool, error) {
    order, err := o.Store.GetOrder(ctx, tenantID, orderID)
    if err != nil {
        return false, err
    }
    if order.PaymentStatus != model.PaymentCaptured && order.PaymentStatus != "succeeded" {
        log.Printf("order %s payment status is %s, no refund needed", orderID, order.PaymentStatus)
        metrics.Refunds.WithLabelValues("skipped").Inc()
        return false, nil
    }
    if order.StripePaymentIntentID == "" {
        log.Printf("order %s has no payment intent id", orderID)
        metrics.Refunds.WithLabelValues("skipped").Inc()
        return false, nil
    }
    if o.Refunder == nil {
        return false, errors.New("no refunder configured")
    }
    if err := o.Refunder.Refund(ctx, order.StripePaymentIntentID); err != nil {
        log.Printf("failed to refund order %s: %v", orderID, err)
        metrics.Refunds.WithLabelValues("error").Inc()
        return false, err
    }
    if err := o.Store.SetOrderPaymentStatus(ctx, tenantID, orderID, model.PaymentRefunded); err != nil {
        return true, err
    }
    if err := o.Store.UpdateOrderStatus(ctx, tenantID, orderID, model.OrderCancelled); err != nil {
        return true, err
    }
    metrics.Refunds.WithLabelValues("success").Inc()
    log.Printf("refunded order %s after POS submission failure", orderID)
    return true, nil
}
