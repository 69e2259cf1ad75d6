package fields

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var ssoMetricsOnce sync.Once

var (
	ssoFederationsTotal *prometheus.CounterVec
	providerDuration    *prometheus.HistogramVec
	tenantCacheTotal    *prometheus.CounterVec
)

func registerCountVec(c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		log.Printf("prometheus counter register failed: %v", err)
	}
	return c
}

func registerHistogramVec(c *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := prometheus.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing
			}
		}
		log.Printf("prometheus histogram register failed: %v", err)
	}
	return c
}

// InitMetrics registers the gateway's collectors. Safe to call more than once.
func InitMetrics() {
	ssoMetricsOnce.Do(func() {
		ssoFederationsTotal = registerCountVec(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "huddle",
			Subsystem: "sso",
			Name:      "federations_total",
			Help:      "Total number of SSO federation attempts.",
		}, []string{"result", "new_user"}))

		providerDuration = registerHistogramVec(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "huddle",
			Subsystem: "identity",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of identity provider round trips.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}))

		tenantCacheTotal = registerCountVec(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "huddle",
			Subsystem: "tenant",
			Name:      "cache_total",
			Help:      "Tenant lookup cache hits and misses.",
		}, []string{"outcome"}))
	})
}

// RecordFederation counts one federation attempt outcome.
func RecordFederation(result string, newUser bool) {
	if ssoFederationsTotal == nil {
		return
	}
	created := "false"
	if newUser {
		created = "true"
	}
	ssoFederationsTotal.WithLabelValues(result, created).Inc()
}

// RecordProviderCall observes one identity provider round trip.
func RecordProviderCall(err error, duration time.Duration) {
	if providerDuration == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	providerDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordTenantCache counts a tenant cache outcome: hit, miss or error.
func RecordTenantCache(outcome string) {
	if tenantCacheTotal == nil {
		return
	}
	tenantCacheTotal.WithLabelValues(outcome).Inc()
}
