package pos

import (
    "context"
    "sync"

    "golang.org/x/time/rate"
)

// Limiter enforces a minimum interval between outbound calls, keyed so
// providers with location-scoped limits (Toast) get one gate per location.
// State is owned by the adapter instance, never process-wide.
type Limiter struct {
    mu       sync.Mutex
    perKey   map[string]*rate.Limiter
    perSec   float64
}

func NewLimiter(requestsPerSecond float64) *Limiter {
    if requestsPerSecond <= 0 {
        requestsPerSecond = 1
    }
    return &Limiter{perKey: map[string]*rate.Limiter{}, perSec: requestsPerSecond}
}

// Wait blocks until a slot is free for the key or the context is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
    l.mu.Lock()
    rl := l.perKey[key]
    if rl == nil {
        rl = rate.NewLimiter(rate.Limit(l.perSec), 1)
        l.perKey[key] = rl
    }
    l.mu.Unlock()
    return rl.Wait(ctx)
}
