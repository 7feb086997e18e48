// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 图像生成指标
	imagesGeneratedTotal    *prometheus.CounterVec
	imageGenerationDuration *prometheus.HistogramVec
	imageGenerationFailures *prometheus.CounterVec

	// 工具调用指标
	toolCallsTotal   *prometheus.CounterVec
	toolCallsDropped prometheus.Counter
	fanoutSize       prometheus.Histogram

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// 图像生成指标
	c.imagesGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_generated_total",
			Help:      "Total number of images generated",
		},
		[]string{"tool"},
	)

	c.imageGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_generation_duration_seconds",
			Help:      "Image generation duration in seconds (per request, including fan-out)",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"tool"},
	)

	c.imageGenerationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_generation_failures_total",
			Help:      "Total number of failed image generation requests",
		},
		[]string{"tool"},
	)

	// 工具调用指标
	c.toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "toolcalls_total",
			Help:      "Total number of webhook tool calls processed",
		},
		[]string{"tool", "outcome"},
	)

	c.toolCallsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "toolcalls_dropped_total",
			Help:      "Total number of malformed tool-call entries dropped without a result",
		},
	)

	c.fanoutSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fanout_size",
			Help:      "Number of concurrent provider calls issued per generation request",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
	)

	return c
}

// =============================================================================
// 🎯 记录方法
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, responseSize int64) {
	statusStr := strconv.Itoa(status)
	c.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// RecordGeneration 记录一次图像生成请求（含 fan-out）。
// count 为本次请求发出的 provider 调用数。
func (c *Collector) RecordGeneration(tool string, count int, duration time.Duration, err error) {
	if c == nil {
		return
	}
	c.fanoutSize.Observe(float64(count))
	c.imageGenerationDuration.WithLabelValues(tool).Observe(duration.Seconds())
	if err != nil {
		c.imageGenerationFailures.WithLabelValues(tool).Inc()
		return
	}
	c.imagesGeneratedTotal.WithLabelValues(tool).Add(float64(count))
}

// RecordToolCall 记录一次 webhook 工具调用的处理结果。
// outcome 取值: success / error / unknown
func (c *Collector) RecordToolCall(tool, outcome string) {
	if c == nil {
		return
	}
	c.toolCallsTotal.WithLabelValues(tool, outcome).Inc()
}

// RecordDroppedToolCall 记录一条被静默丢弃的畸形工具调用。
func (c *Collector) RecordDroppedToolCall() {
	if c == nil {
		return
	}
	c.toolCallsDropped.Inc()
}
