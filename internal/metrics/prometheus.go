package metrics

import (
    "fmt"
    "net/http"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "github.com/dialerhub/core/pkg/logger"
)

type PrometheusMetrics struct {
    counters   map[string]*prometheus.CounterVec
    histograms map[string]*prometheus.HistogramVec
    gauges     map[string]*prometheus.GaugeVec
}

func NewPrometheusMetrics() *PrometheusMetrics {
    pm := &PrometheusMetrics{
        counters:   make(map[string]*prometheus.CounterVec),
        histograms: make(map[string]*prometheus.HistogramVec),
        gauges:     make(map[string]*prometheus.GaugeVec),
    }
    
    // Register common metrics
    pm.registerMetrics()
    
    return pm
}

func (pm *PrometheusMetrics) registerMetrics() {
    // Counters
    pm.counters["batch_numbers_claimed"] = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "batch_numbers_claimed_total",
            Help: "Total numbers claimed into a dialer batch",
        },
        []string{"tenant"},
    )

    pm.counters["batch_gate_denied"] = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "batch_gate_denied_total",
            Help: "Total fetchNextBatch calls denied by the scheduling gate",
        },
        []string{"tenant", "reason"},
    )

    pm.counters["call_results_reported"] = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "call_results_reported_total",
            Help: "Total call outcomes ingested",
        },
        []string{"tenant", "status"},
    )

    pm.counters["wallet_charges"] = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "wallet_charges_total",
            Help: "Total per-connected-call wallet charges applied",
        },
        []string{"tenant"},
    )

    pm.counters["bank_sms_matched"] = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Name: "bank_sms_matched_total",
            Help: "Total bank deposit SMS matched to a tenant wallet",
        },
        []string{"tenant"},
    )

    // Histograms
    pm.histograms["batch_fetch_duration"] = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Name:    "batch_fetch_duration_seconds",
            Help:    "fetchNextBatch wall-clock duration",
            Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
        },
        []string{"tenant"},
    )

    pm.histograms["report_ingest_duration"] = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Name:    "report_ingest_duration_seconds",
            Help:    "reportResult wall-clock duration",
            Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
        },
        []string{"tenant"},
    )

    // Gauges
    pm.gauges["tenant_wallet_balance"] = prometheus.NewGaugeVec(
        prometheus.GaugeOpts{
            Name: "tenant_wallet_balance_toman",
            Help: "Current tenant wallet balance in toman",
        },
        []string{"tenant"},
    )

    pm.gauges["tenant_call_allowed"] = prometheus.NewGaugeVec(
        prometheus.GaugeOpts{
            Name: "tenant_call_allowed",
            Help: "1 if the scheduling gate currently allows calls for this tenant, else 0",
        },
        []string{"tenant"},
    )

    // Register all metrics
    for _, counter := range pm.counters {
        prometheus.MustRegister(counter)
    }
    for _, histogram := range pm.histograms {
        prometheus.MustRegister(histogram)
    }
    for _, gauge := range pm.gauges {
        prometheus.MustRegister(gauge)
    }
}

func (pm *PrometheusMetrics) IncrementCounter(name string, labels map[string]string) {
    if counter, exists := pm.counters[name]; exists {
        counter.With(prometheus.Labels(labels)).Inc()
    }
}

func (pm *PrometheusMetrics) ObserveHistogram(name string, value float64, labels map[string]string) {
    if histogram, exists := pm.histograms[name]; exists {
        histogram.With(prometheus.Labels(labels)).Observe(value)
    }
}

func (pm *PrometheusMetrics) SetGauge(name string, value float64, labels map[string]string) {
    if gauge, exists := pm.gauges[name]; exists {
        if labels == nil {
            labels = make(map[string]string)
        }
        gauge.With(prometheus.Labels(labels)).Set(value)
    }
}

func (pm *PrometheusMetrics) ServeHTTP(port int) error {
    http.Handle("/metrics", promhttp.Handler())
    addr := fmt.Sprintf(":%d", port)
    logger.WithField("addr", addr).Info("Metrics server started")
    return http.ListenAndServe(addr, nil)
}
