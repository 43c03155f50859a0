package metrics

import (
    "sync"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the API
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, path, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // POSRequests counts outbound POS calls by provider and status
    POSRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "pos_requests_total", Help: "Outbound POS API requests by provider and status."},
        []string{"provider", "status"},
    )
    // POSRequestDuration records outbound POS call durations in seconds
    POSRequestDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "pos_request_duration_seconds", Help: "Outbound POS API request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"provider"},
    )

    // WebhooksProcessed counts webhook processing outcomes by provider and final status
    WebhooksProcessed = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "pos_webhooks_processed_total", Help: "Webhook records processed by provider and final status."},
        []string{"provider", "status"},
    )
    // WebhookDuration tracks webhook processing time in milliseconds
    WebhookDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "pos_webhook_processing_ms", Help: "Webhook processing duration in ms.", Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000}},
        []string{"provider"},
    )

    // OrderSubmissions counts submission outcomes by provider
    OrderSubmissions = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "pos_order_submissions_total", Help: "Order submission outcomes."},
        []string{"provider", "outcome"},
    )
    // Refunds counts compensation refund outcomes
    Refunds = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "pos_compensation_refunds_total", Help: "Saga compensation refund outcomes."},
        []string{"outcome"},
    )
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
    regOnce.Do(func(){
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(POSRequests)
        Registry.MustRegister(POSRequestDuration)
        Registry.MustRegister(WebhooksProcessed)
        Registry.MustRegister(WebhookDuration)
        Registry.MustRegister(OrderSubmissions)
        Registry.MustRegister(Refunds)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
