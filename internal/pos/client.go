package pos

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "math"
    "net/http"
    "strconv"
    "time"

    "posbridge/internal/metrics"
)

const (
    // MaxRetries bounds transient-failure retries per logical call.
    MaxRetries = 3
    backoffBase = 2.0
    httpTimeout = 30 * time.Second
)

// Client is the shared outbound transport: rate-limit gate, retry loop,
// and typed-error mapping. Adapters parameterize it with their base URL
// and auth header construction; everything else is identical per provider.
type Client struct {
    Provider string
    BaseURL  string
    HTTP     *http.Client
    Limiter  *Limiter

    // Sleep is swapped out in tests. Defaults to time.Sleep.
    Sleep func(time.Duration)
}

func NewClient(provider, baseURL string, requestsPerSecond float64) *Client {
    return &Client{
        Provider: provider,
        BaseURL:  baseURL,
        HTTP:     &http.Client{Timeout: httpTimeout},
        Limiter:  NewLimiter(requestsPerSecond),
        Sleep:    time.Sleep,
    }
}

// Do issues method path with headers and optional body, retrying transient
// failures. limiterKey scopes the rate gate (location id for Toast, "" for
// providers with instance-wide limits).
//
// 429 surfaces immediately as a RateLimitError carrying Retry-After.
// 401 surfaces immediately as an AuthError. Other non-2xx statuses and
// transport errors are retried up to MaxRetries with exponential backoff.
func (c *Client) Do(ctx context.Context, method, path string, headers map[string]string, body []byte, limiterKey string) ([]byte, error) {
    var lastErr error
    for attempt := 0; attempt < MaxRetries; attempt++ {
        if err := c.Limiter.Wait(ctx, limiterKey); err != nil {
            return nil, &APIError{Provider: c.Provider, Msg: "rate limiter wait", Err: err}
        }
        var rdr io.Reader
        if body != nil {
            rdr = bytes.NewReader(body)
        }
        req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
        if err != nil {
            return nil, &APIError{Provider: c.Provider, Msg: "build request", Err: err}
        }
        for k, v := range headers {
            req.Header.Set(k, v)
        }
        start := time.Now()
        resp, err := c.HTTP.Do(req)
        if err != nil {
            metrics.POSRequests.WithLabelValues(c.Provider, "transport_error").Inc()
            lastErr = err
            c.Sleep(backoff(attempt))
            continue
        }
        respBody, readErr := io.ReadAll(resp.Body)
        _ = resp.Body.Close()
        metrics.POSRequests.WithLabelValues(c.Provider, strconv.Itoa(resp.StatusCode)).Inc()
        metrics.POSRequestDuration.WithLabelValues(c.Provider).Observe(time.Since(start).Seconds())

        switch {
        case resp.StatusCode == http.StatusTooManyRequests:
            retryAfter := 60
            if v := resp.Header.Get("Retry-After"); v != "" {
                if n, err := strconv.Atoi(v); err == nil {
                    retryAfter = n
                }
            }
            return nil, &RateLimitError{
                APIError:   APIError{Provider: c.Provider, Msg: "rate limited", StatusCode: resp.StatusCode, Body: string(respBody)},
                RetryAfter: retryAfter,
            }
        case resp.StatusCode == http.StatusUnauthorized:
            return nil, &AuthError{Provider: c.Provider, Msg: "unauthorized"}
        case resp.StatusCode >= 200 && resp.StatusCode < 300:
            if readErr != nil {
                return nil, &APIError{Provider: c.Provider, Msg: "read response", Err: readErr}
            }
            return respBody, nil
        default:
            lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
            c.Sleep(backoff(attempt))
        }
    }
    return nil, &APIError{Provider: c.Provider, Msg: fmt.Sprintf("request failed after %d attempts", MaxRetries), Err: lastErr}
}

// DoJSON runs Do and unmarshals the response into out when out is non-nil.
func (c *Client) DoJSON(ctx context.Context, method, path string, headers map[string]string, body []byte, limiterKey string, out any) error {
    respBody, err := c.Do(ctx, method, path, headers, body, limiterKey)
    if err != nil {
        return err
    }
    if out == nil || len(respBody) == 0 {
        return nil
    }
    if err := json.Unmarshal(respBody, out); err != nil {
        return &APIError{Provider: c.Provider, Msg: "decode response", Err: err}
    }
    return nil
}

func backoff(attempt int) time.Duration {
    return time.Duration(math.Pow(backoffBase, float64(attempt)) * float64(time.Second))
}

func truncate(s string, n int) string {
    if len(s) <= n {
        return s
    }
    return s[:n]
}
