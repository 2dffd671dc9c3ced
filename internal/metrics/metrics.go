package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	liveUpdatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatpad_live_updates_total",
			Help: "Total number of live full-state updates applied to the active timeline.",
		},
	)
	messagesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatpad_messages_sent_total",
			Help: "Total number of outbound messages by dispatch outcome.",
		},
		[]string{"outcome"},
	)
	noticesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatpad_notices_total",
			Help: "Total number of user-visible notices by error code.",
		},
		[]string{"code"},
	)
	heartbeatsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatpad_heartbeats_total",
			Help: "Total number of activity heartbeats by outcome.",
		},
		[]string{"outcome"},
	)
	feedReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatpad_feed_reconnects_total",
			Help: "Total number of push feed reconnect attempts.",
		},
		[]string{"feed"},
	)
	timelineEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatpad_timeline_entries",
			Help: "Number of entries rendered in the active timeline.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		liveUpdatesTotal,
		messagesSentTotal,
		noticesTotal,
		heartbeatsTotal,
		feedReconnectsTotal,
		timelineEntries,
	)
}

func IncLiveUpdate() {
	liveUpdatesTotal.Inc()
}

func IncMessageSent(outcome string) {
	messagesSentTotal.WithLabelValues(outcome).Inc()
}

func IncNotice(code string) {
	noticesTotal.WithLabelValues(code).Inc()
}

func IncHeartbeat(outcome string) {
	heartbeatsTotal.WithLabelValues(outcome).Inc()
}

func IncFeedReconnect(feed string) {
	feedReconnectsTotal.WithLabelValues(feed).Inc()
}

func SetTimelineEntries(n int) {
	timelineEntries.Set(float64(n))
}
