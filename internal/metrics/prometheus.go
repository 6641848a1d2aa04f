package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "itdx_mm_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry *prometheus.Registry
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	ticks := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "strategy_ticks_total",
		Help:      "Total number of control loop ticks executed.",
	})
	tickFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "tick_failures_total",
		Help:      "Total number of ticks that ended in an error.",
	})
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "orders_placed_total",
		Help:      "Total number of orders submitted.",
	})
	ordersCanceled := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "orders_canceled_total",
		Help:      "Total number of cancel requests issued.",
	})
	orderFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "order_failures_total",
		Help:      "Total number of failed order commands.",
	})
	feedMessages := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "feed_messages_total",
		Help:      "Total number of routed feed messages.",
	})

	registry.MustRegister(ticks, tickFailures, ordersPlaced, ordersCanceled, orderFailures, feedMessages)

	return &Prometheus{
		Metrics: &Metrics{
			Ticks:          promCounter{ticks},
			TickFailures:   promCounter{tickFailures},
			OrdersPlaced:   promCounter{ordersPlaced},
			OrdersCanceled: promCounter{ordersCanceled},
			OrderFailures:  promCounter{orderFailures},
			FeedMessages:   promCounter{feedMessages},
		},
		registry: registry,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
