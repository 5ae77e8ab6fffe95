package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the service's Prometheus instruments behind a private
// registry. A nil *Collector is valid everywhere and records nothing.
type Collector struct {
	reg *prometheus.Registry

	ChainRecomputes  prometheus.Counter
	ChainActivities  prometheus.Gauge
	RecomputeSeconds prometheus.Histogram

	Lookups       prometheus.Counter
	LookupErrs    prometheus.Counter
	StaleDiscards prometheus.Counter
	LookupSeconds prometheus.Histogram

	LegCacheHits   prometheus.Counter
	LegCacheMisses prometheus.Counter
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ChainRecomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duty_chain_recomputes_total",
			Help: "Total duty chain recomputation passes.",
		}),
		ChainActivities: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "duty_chain_activities",
			Help: "Number of activities currently on the duty chain.",
		}),
		RecomputeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "duty_chain_recompute_duration_seconds",
			Help:    "Duration of a chain recomputation pass.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		Lookups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duty_leg_lookups_total",
			Help: "Total external point-to-point lookups issued.",
		}),
		LookupErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duty_leg_lookup_errors_total",
			Help: "Total failed external point-to-point lookups.",
		}),
		StaleDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duty_leg_stale_discards_total",
			Help: "Lookup settlements discarded because their token was superseded.",
		}),
		LookupSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "duty_leg_lookup_duration_seconds",
			Help:    "Duration of external point-to-point lookups.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		LegCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duty_leg_cache_hits_total",
			Help: "Total session leg cache hits.",
		}),
		LegCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duty_leg_cache_misses_total",
			Help: "Total session leg cache misses.",
		}),
	}

	reg.MustRegister(
		c.ChainRecomputes, c.ChainActivities, c.RecomputeSeconds,
		c.Lookups, c.LookupErrs, c.StaleDiscards, c.LookupSeconds,
		c.LegCacheHits, c.LegCacheMisses,
	)
	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
