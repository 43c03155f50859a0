package webhooks

import (
    "context"
    "log"
    "os"
    "strconv"
    "time"
)

// Worker drains pending webhook records on a ticker.
type Worker struct {
    Processor *Processor
    Stop      chan struct{}
    Interval  time.Duration
    BatchSize int
}

func NewWorker(p *Processor) *Worker {
    batch := 100
    if v := os.Getenv("WEBHOOK_BATCH_SIZE"); v != "" { if n, err := strconv.Atoi(v); err == nil && n > 0 { batch = n } }
    return &Worker{Processor: p, Stop: make(chan struct{}), Interval: time.Second, BatchSize: batch}
}

func (w *Worker) Start() {
    go func() {
        ticker := time.NewTicker(w.Interval)
        defer ticker.Stop()
        for {
            select {
            case <-w.Stop:
                return
            case <-ticker.C:
                w.processOnce()
            }
        }
    }()
}

func (w *Worker) processOnce() {
    ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    defer cancel()
    if _, err := w.Processor.ProcessPending(ctx, w.BatchSize); err != nil {
        log.Printf("webhook batch failed: %v", err)
    }
}
