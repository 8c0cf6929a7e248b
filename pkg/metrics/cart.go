package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records cart mutations, coupon outcomes and state persistence latency.
type CartMetrics struct {
	mutations *prometheus.CounterVec
	coupons   *prometheus.CounterVec
	persist   *prometheus.HistogramVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart state changes by operation.",
	}, []string{"op"})
	coupons := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_coupon_attempts_total",
		Help: "Coupon applications by result.",
	}, []string{"result"})
	persist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_state_persist_seconds",
		Help:    "Time spent writing cart state to storage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	reg.MustRegister(mutations, coupons, persist)
	return &CartMetrics{
		mutations: mutations,
		coupons:   coupons,
		persist:   persist,
	}
}

// IncMutation counts a successful state change.
func (c *CartMetrics) IncMutation(op string) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncCoupon counts a coupon application; result is "applied" or "rejected".
func (c *CartMetrics) IncCoupon(result string) {
	if c == nil || c.coupons == nil {
		return
	}
	c.coupons.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObservePersist records how long a storage write took.
func (c *CartMetrics) ObservePersist(duration time.Duration, err error) {
	if c == nil || c.persist == nil {
		return
	}
	c.persist.WithLabelValues(resultLabel(err)).Observe(duration.Seconds())
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
