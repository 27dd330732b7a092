// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層やミドルウェアから利用する。
type MetricsCollector interface {
	RecordSummaryBuilt(rangeValue string, duration time.Duration)
	RecordSummaryFailure()
	RecordSessionDivergence(rangeValue string)
	RecordEventRecorded(eventType string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	summaryBuilt      *prometheus.CounterVec
	summaryFailure    prometheus.Counter
	summaryLatency    prometheus.Histogram
	sessionDivergence *prometheus.CounterVec
	eventsRecorded    *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		summaryBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identityx_summary_built_total",
			Help: "期間別のサマリー生成成功数",
		}, []string{"range"}),
		summaryFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "identityx_summary_failure_total",
			Help: "ストア障害によるサマリー生成失敗の合計数",
		}),
		summaryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "identityx_summary_latency_seconds",
			Help:    "サマリー生成のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sessionDivergence: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identityx_session_divergence_total",
			Help: "算術カウントと再生カウントのアクティブセッション数が一致しなかった回数",
		}, []string{"range"}),
		eventsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identityx_events_recorded_total",
			Help: "種別ごとの記録済みイベント数",
		}, []string{"type"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identityx_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.summaryBuilt,
		c.summaryFailure,
		c.summaryLatency,
		c.sessionDivergence,
		c.eventsRecorded,
		c.httpStatus,
	)

	return c
}

// RecordSummaryBuilt はサマリー生成の成功とレイテンシを記録する。
func (c *Collector) RecordSummaryBuilt(rangeValue string, duration time.Duration) {
	c.summaryBuilt.WithLabelValues(rangeValue).Inc()
	c.summaryLatency.Observe(duration.Seconds())
}

// RecordSummaryFailure はサマリー生成の失敗を記録する。
func (c *Collector) RecordSummaryFailure() {
	c.summaryFailure.Inc()
}

// RecordSessionDivergence は2種類のアクティブセッション数の不一致を記録する。
func (c *Collector) RecordSessionDivergence(rangeValue string) {
	c.sessionDivergence.WithLabelValues(rangeValue).Inc()
}

// RecordEventRecorded はイベントの記録を種別ごとに数える。
func (c *Collector) RecordEventRecorded(eventType string) {
	c.eventsRecorded.WithLabelValues(eventType).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
