package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesEnqueuedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "delivery_queue",
			Name:      "messages_enqueued_total",
			Help:      "Total messages accepted into the delivery queue.",
		},
		[]string{"kind"},
	)

	messagesSentCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "delivery_queue",
			Name:      "messages_sent_total",
			Help:      "Total messages delivered successfully.",
		},
		[]string{"kind"},
	)

	messagesDroppedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "delivery_queue",
			Name:      "messages_dropped_total",
			Help:      "Total messages dropped permanently.",
		},
		[]string{"reason"}, // "retries_exhausted" or "recipient_blocked"
	)

	messagesThrottledCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "delivery_queue",
			Name:      "messages_throttled_total",
			Help:      "Total sends rescheduled after a rate limit response.",
		},
	)

	messagesRetriedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "delivery_queue",
			Name:      "messages_retried_total",
			Help:      "Total sends rescheduled with backoff after a transient failure.",
		},
	)

	queueDepthGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "delivery_queue",
			Name:      "depth",
			Help:      "Messages currently waiting in the queue.",
		},
	)

	sendDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "delivery_queue",
			Name:      "send_duration_seconds",
			Help:      "Duration of individual send attempts.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)
