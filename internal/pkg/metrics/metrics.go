package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal 按方法/路径/状态统计请求数。
	HTTPRequestsTotal *prometheus.CounterVec
	// MessagesSentTotal 成功发送的站内消息数。
	MessagesSentTotal prometheus.Counter
	// ReviewsRejectedTotal 因重复而被拒绝的评论数。
	ReviewsRejectedTotal prometheus.Counter
	// ItemViewsTotal 记录的商品浏览事件数。
	ItemViewsTotal prometheus.Counter
	// RateLimitWaitDuration 限流等待耗时。
	RateLimitWaitDuration prometheus.Histogram
	// RateLimitTimeoutTotal 限流等待超时次数。
	RateLimitTimeoutTotal prometheus.Counter

	initOnce sync.Once
)

// InitMetrics 注册所有 Prometheus 指标，重复调用是安全的。
func InitMetrics() {
	initOnce.Do(func() {
		HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sellerhub_http_requests_total",
			Help: "Total HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"})

		MessagesSentTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "sellerhub_messages_sent_total",
			Help: "Total seller messages stored.",
		})

		ReviewsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "sellerhub_reviews_rejected_total",
			Help: "Total reviews rejected as duplicates.",
		})

		ItemViewsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "sellerhub_item_views_total",
			Help: "Total item view events recorded.",
		})

		RateLimitWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sellerhub_ratelimit_wait_seconds",
			Help:    "Time spent waiting for a rate limit token.",
			Buckets: prometheus.DefBuckets,
		})

		RateLimitTimeoutTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "sellerhub_ratelimit_timeout_total",
			Help: "Total rate limit waits that timed out.",
		})
	})
}
