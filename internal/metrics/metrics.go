// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 競合の種別ラベル
const (
	ConflictUsername   = "username"
	ConflictSleepEntry = "sleep_entry"
)

// 統計リクエストの結果ラベル
const (
	StatisticsComputed = "computed"
	StatisticsNoData   = "no_data"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層やミドルウェアから利用する。
type MetricsCollector interface {
	RecordSubscriberRegistered()
	RecordSleepEntryCreated(feeling string)
	RecordConflict(kind string)
	RecordStatisticsRequest(result string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	subscribersRegistered prometheus.Counter
	entriesCreated        *prometheus.CounterVec
	conflicts             *prometheus.CounterVec
	statisticsRequests    *prometheus.CounterVec
	httpStatus            *prometheus.CounterVec
	requestLatency        prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		subscribersRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sleeplog_subscribers_registered_total",
			Help: "登録されたユーザーの合計数",
		}),
		entriesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sleeplog_sleep_entries_created_total",
			Help: "目覚めの気分別の睡眠記録作成数",
		}, []string{"morning_feeling"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sleeplog_conflicts_total",
			Help: "一意性違反で拒否されたリクエスト数",
		}, []string{"kind"}),
		statisticsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sleeplog_statistics_requests_total",
			Help: "結果別の30日統計リクエスト数",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sleeplog_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sleeplog_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.subscribersRegistered,
		c.entriesCreated,
		c.conflicts,
		c.statisticsRequests,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordSubscriberRegistered はユーザー登録を記録する。
func (c *Collector) RecordSubscriberRegistered() {
	c.subscribersRegistered.Inc()
}

// RecordSleepEntryCreated は睡眠記録の作成を記録する。
func (c *Collector) RecordSleepEntryCreated(feeling string) {
	c.entriesCreated.WithLabelValues(feeling).Inc()
}

// RecordConflict は一意性違反による拒否を記録する。
func (c *Collector) RecordConflict(kind string) {
	c.conflicts.WithLabelValues(kind).Inc()
}

// RecordStatisticsRequest は統計リクエストの結果を記録する。
func (c *Collector) RecordStatisticsRequest(result string) {
	c.statisticsRequests.WithLabelValues(result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
