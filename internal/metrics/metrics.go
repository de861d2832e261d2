// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// アップストリーム呼び出し系はクライアント側から、HTTPステータス系は
// ミドルウェア側から記録される。
type Collector struct {
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  prometheus.Histogram
	upstreamRetries  prometheus.Counter
	commentsDropped  prometheus.Counter
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hnlens_upstream_requests_total",
			Help: "アップストリームAPI呼び出しのステータスコード別合計数",
		}, []string{"status_code"}),
		upstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hnlens_upstream_latency_seconds",
			Help:    "アップストリームAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		upstreamRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hnlens_upstream_retries_total",
			Help: "アップストリーム呼び出し再試行の合計数",
		}),
		commentsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hnlens_comments_dropped_total",
			Help: "ツリー構築中に脱落したコメントの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hnlens_http_status_total",
			Help: "APIレスポンスのステータスコード別合計数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.upstreamRequests,
		c.upstreamLatency,
		c.upstreamRetries,
		c.commentsDropped,
		c.httpStatus,
	)

	return c
}

// RecordUpstreamRequest はアップストリーム応答のステータスコードを記録する。
func (c *Collector) RecordUpstreamRequest(statusCode int) {
	c.upstreamRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordUpstreamLatency はアップストリーム呼び出しのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(d time.Duration) {
	c.upstreamLatency.Observe(d.Seconds())
}

// RecordUpstreamRetry はアップストリーム呼び出しの再試行を記録する。
func (c *Collector) RecordUpstreamRetry() {
	c.upstreamRetries.Inc()
}

// RecordCommentDropped はツリー構築中のコメント脱落を記録する。
func (c *Collector) RecordCommentDropped() {
	c.commentsDropped.Inc()
}

// RecordHTTPStatus はAPIレスポンスのステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
