package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	TriggerItemAdded       = "item_added"
	TriggerItemUpdated     = "item_updated"
	TriggerItemDeleted     = "item_deleted"
	TriggerMarkup          = "markup"
	TriggerBulkCoefficient = "bulk_coefficients"
	TriggerManual          = "manual"
	TriggerOrderCreated    = "order_created"
)

const (
	DocumentQuotePDF     = "quote_pdf"
	DocumentDetailedPDF  = "detailed_pdf"
	DocumentWorksheetPDF = "worksheet_pdf"
	DocumentWorksheetXLS = "worksheet_xlsx"
	DocumentReportXLSX   = "orders_report_xlsx"
)

// Config labels every series with the running service. The Otel fields
// control OTLP push export alongside the Prometheus registry.
type Config struct {
	ServiceName string
	Environment string

	OtelEnabled      bool
	ExporterEndpoint string
	ExporterProtocol string
}

// Metrics captures pricing engine and HTTP health signals.
type Metrics struct {
	recalculations      *prometheus.CounterVec
	recalculationTime   prometheus.Histogram
	documentsRendered   *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func New(registerer prometheus.Registerer, cfg Config) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "doorcalc"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	recalculations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "doorcalc_order_recalculations_total",
		Help:        "Order total recalculations by triggering mutation.",
		ConstLabels: constLabels,
	}, []string{"trigger"})
	recalculationTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "doorcalc_order_recalculation_duration_seconds",
		Help:        "Time spent reloading and revaluing all lines of an order.",
		Buckets:     []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		ConstLabels: constLabels,
	})
	documentsRendered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "doorcalc_documents_rendered_total",
		Help:        "Rendered order documents by kind.",
		ConstLabels: constLabels,
	}, []string{"kind"})
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "doorcalc_http_requests_total",
		Help:        "HTTP requests by route and status code.",
		ConstLabels: constLabels,
	}, []string{"method", "route", "status"})
	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "doorcalc_http_request_duration_seconds",
		Help:        "HTTP request latency by route.",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: constLabels,
	}, []string{"method", "route"})

	registerer.MustRegister(
		recalculations,
		recalculationTime,
		documentsRendered,
		httpRequests,
		httpRequestDuration,
	)

	return &Metrics{
		recalculations:      recalculations,
		recalculationTime:   recalculationTime,
		documentsRendered:   documentsRendered,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
	}
}

// ObserveRecalculation counts one recalculation and records its duration.
func (m *Metrics) ObserveRecalculation(trigger string, duration time.Duration) {
	if m == nil {
		return
	}
	trigger = strings.TrimSpace(trigger)
	if trigger == "" {
		trigger = TriggerManual
	}
	m.recalculations.WithLabelValues(trigger).Inc()
	if duration < 0 {
		duration = 0
	}
	m.recalculationTime.Observe(duration.Seconds())
}

func (m *Metrics) IncDocumentRendered(kind string) {
	if m == nil {
		return
	}
	m.documentsRendered.WithLabelValues(kind).Inc()
}

// GinMiddleware records request counts and latency keyed by the route template.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		method := c.Request.Method
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
