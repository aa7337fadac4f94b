package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics 定义业务监控指标
type BusinessMetrics struct {
	ClaimSubmittedTotal     prometheus.Counter
	ClaimStatusTotal        *prometheus.CounterVec
	ClaimConfirmDuration    prometheus.Histogram
	SubmissionsInFlight     prometheus.Gauge
	ClaimEventConsumedTotal *prometheus.CounterVec
	ReconciledTotal         *prometheus.CounterVec
	FrameAddedTotal         prometheus.Counter
}

// Global Metrics Instance
var Business *BusinessMetrics

// InitBusinessMetrics 初始化业务指标
func InitBusinessMetrics() {
	Business = &BusinessMetrics{
		ClaimSubmittedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "poa_claim_submitted_total",
			Help: "The total number of attendance claims submitted",
		}),
		ClaimStatusTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "poa_claim_status_total",
			Help: "Lifecycle statuses observed for claims",
		}, []string{"status"}),
		ClaimConfirmDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "poa_claim_confirm_duration_seconds",
			Help:    "Time from submit to a terminal lifecycle status",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
		}),
		SubmissionsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "poa_submissions_in_flight",
			Help: "Accounts currently in the submitting state",
		}),
		ClaimEventConsumedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "poa_claim_event_consumed_total",
			Help: "Claim events consumed from the message queue",
		}, []string{"result"}),
		ReconciledTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "poa_claim_reconciled_total",
			Help: "Pending claims resolved by the reconciler",
		}, []string{"status"}),
		FrameAddedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "poa_frame_added_total",
			Help: "Number of host-platform users that saved the mini app",
		}),
	}
}

// 以下辅助方法允许 Business 为 nil (单元测试中未调用 Init)

func (m *BusinessMetrics) IncSubmitted() {
	if m == nil {
		return
	}
	m.ClaimSubmittedTotal.Inc()
}

// SetInFlight 取自 Registry.InFlight()
func (m *BusinessMetrics) SetInFlight(n int) {
	if m == nil {
		return
	}
	m.SubmissionsInFlight.Set(float64(n))
}

func (m *BusinessMetrics) ObserveStatus(status string) {
	if m == nil {
		return
	}
	m.ClaimStatusTotal.WithLabelValues(status).Inc()
}

// ObserveSettled 提交进入终态 (回到 idle)
func (m *BusinessMetrics) ObserveSettled(seconds float64) {
	if m == nil {
		return
	}
	m.ClaimConfirmDuration.Observe(seconds)
}

func (m *BusinessMetrics) IncConsumed(result string) {
	if m == nil {
		return
	}
	m.ClaimEventConsumedTotal.WithLabelValues(result).Inc()
}

func (m *BusinessMetrics) IncReconciled(status string) {
	if m == nil {
		return
	}
	m.ReconciledTotal.WithLabelValues(status).Inc()
}

func (m *BusinessMetrics) IncFrameAdded() {
	if m == nil {
		return
	}
	m.FrameAddedTotal.Inc()
}
