package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup outcome labels.
const (
	OutcomeOK     = "ok"
	OutcomeMiss   = "miss"
	OutcomeFailed = "failed"
)

// Collector holds the pipeline's prometheus instruments. A nil *Collector is
// valid and records nothing, so metrics stay optional.
type Collector struct {
	reg *prometheus.Registry

	PostcodeLookups *prometheus.CounterVec // result label: ok|miss|failed
	ShopLookups     *prometheus.CounterVec // result label: ok|failed

	StopsEnriched prometheus.Counter
	TripsEnriched prometheus.Counter

	StopsBatchSize prometheus.Gauge
	TripsBatchSize prometheus.Gauge

	EnrichDuration prometheus.Histogram
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		PostcodeLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enrichment_postcode_lookups_total",
			Help: "Reverse-geocode lookups by outcome.",
		}, []string{"result"}),
		ShopLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enrichment_shop_lookups_total",
			Help: "Overpass shop-count lookups by outcome.",
		}, []string{"result"}),
		StopsEnriched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "enrichment_stops_enriched_total",
			Help: "Total stop records enriched.",
		}),
		TripsEnriched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "enrichment_trips_enriched_total",
			Help: "Total trip records enriched.",
		}),
		StopsBatchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "enrichment_stops_batch_size",
			Help: "Size of the current stop enrichment batch.",
		}),
		TripsBatchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "enrichment_trips_batch_size",
			Help: "Size of the current trip enrichment batch.",
		}),
		EnrichDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "enrichment_stop_duration_seconds",
			Help:    "Duration of a full single-stop enrichment.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
		}),
	}

	reg.MustRegister(
		c.PostcodeLookups, c.ShopLookups,
		c.StopsEnriched, c.TripsEnriched,
		c.StopsBatchSize, c.TripsBatchSize,
		c.EnrichDuration,
	)

	return c
}

// PostcodeLookup records one reverse-geocode outcome.
func (c *Collector) PostcodeLookup(result string) {
	if c == nil {
		return
	}
	c.PostcodeLookups.WithLabelValues(result).Inc()
}

// ShopLookup records one Overpass outcome.
func (c *Collector) ShopLookup(result string) {
	if c == nil {
		return
	}
	c.ShopLookups.WithLabelValues(result).Inc()
}

// StopEnriched records one completed stop enrichment and its duration.
func (c *Collector) StopEnriched(d time.Duration) {
	if c == nil {
		return
	}
	c.StopsEnriched.Inc()
	c.EnrichDuration.Observe(d.Seconds())
}

// TripEnriched records one completed trip enrichment.
func (c *Collector) TripEnriched() {
	if c == nil {
		return
	}
	c.TripsEnriched.Inc()
}

// StopsBatch records the size of a stop enrichment batch.
func (c *Collector) StopsBatch(n int) {
	if c == nil {
		return
	}
	c.StopsBatchSize.Set(float64(n))
}

// TripsBatch records the size of a trip enrichment batch.
func (c *Collector) TripsBatch(n int) {
	if c == nil {
		return
	}
	c.TripsBatchSize.Set(float64(n))
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
