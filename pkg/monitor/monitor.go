package monitor

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const unmatchedRoute = "unmatched"

var (
	// HTTPRequestsTotal 记录 HTTP 请求总量
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poa",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route template.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration 记录 HTTP 请求耗时 (Histogram)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "poa",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distributions.",
			// 领取接口只做入队，身份查询会走 RPC
			Buckets: []float64{0.01, 0.05, 0.1, 0.3, 1.0, 3.0},
		},
		[]string{"method", "path"},
	)

	initOnce sync.Once
)

// Init 初始化并注册监控指标 (可重复调用)
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
		// 初始化业务指标
		InitBusinessMetrics()
	})
}

// PrometheusMiddleware returns a gin middleware for monitoring
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath() // 使用路由模板 /api/v1/claims/:address 而不是具体路径
		if path == "" {
			// 未匹配的路由合并为一个标签
			path = unmatchedRoute
		}

		// 处理请求
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}
