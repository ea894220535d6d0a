package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SubscriptionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newsletter_subscriptions_created_total",
			Help: "Subscription rows inserted by the creation workflow",
		},
	)

	ListPages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsletter_list_pages_total",
			Help: "Subscription list pages served by travel direction",
		},
		[]string{"direction"}, // forward|backward
	)

	OutboxPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsletter_outbox_published_total",
			Help: "Outbox events handled by the relay",
		},
		[]string{"status"}, // ok|error
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		SubscriptionsCreated,
		ListPages,
		OutboxPublished,
	)
}
