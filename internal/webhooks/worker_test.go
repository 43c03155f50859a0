package webhooks

import (
    "context"
    "testing"
    "time"

    "posbridge/internal/model"
)

func TestWorkerDrainsPending(t *testing.T) {
    p, mem, _ := newTestProcessor(testSecrets{})
    mem.PutItem("t1", model.MenuItem{ID: "item-1", IsAvailable: true})
    rec := insertWebhook(t, mem, `{"event_type":"item_availability_changed","event_id":"w-1","item_id":"item-1","is_available":false}`, "")

    w := NewWorker(p)
    w.Interval = 10 * time.Millisecond
    w.Start()
    defer close(w.Stop)

    deadline := time.After(2 * time.Second)
    for {
        got, _ := mem.GetWebhook(context.Background(), rec.ID)
        if got.Status == model.WebhookProcessed {
            return
        }
        select {
        case <-deadline:
            t.Fatalf("webhook not processed, status = %s", got.Status)
        case <-time.After(10 * time.Millisecond):
        }
    }
}

func TestWorkerBatchSizeFromEnv(t *testing.T) {
    t.Setenv("WEBHOOK_BATCH_SIZE", "7")
    w := NewWorker(nil)
    if w.BatchSize != 7 {
        t.Fatalf("batch size = %d", w.BatchSize)
    }
}
