// internal/metrics/metrics.go

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MapCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streetsafe_map_cache_hits_total",
		Help: "Total map feature cache hits",
	})
	MapCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streetsafe_map_cache_misses_total",
		Help: "Total map feature cache misses",
	})
	NameCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streetsafe_name_cache_hits_total",
		Help: "Total location name cache hits",
	})
	NameCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streetsafe_name_cache_misses_total",
		Help: "Total location name cache misses",
	})
	GeocoderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streetsafe_geocoder_requests_total",
		Help: "Total geocoder requests by operation",
	}, []string{"op"})
	GeocoderFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streetsafe_geocoder_fail_total",
		Help: "Total geocoder failures by operation",
	}, []string{"op"})
	GeocoderDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "streetsafe_geocoder_duration_ms",
		Help:    "Geocoder call duration in milliseconds",
		Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000},
	}, []string{"op"})
	QueryDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "streetsafe_query_duration_ms",
		Help:    "Aggregate query duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"query"})
	LocationFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streetsafe_location_fallback_total",
		Help: "Total aggregates served without a location filter after resolution failed",
	})
)

func init() {
	prometheus.MustRegister(MapCacheHitsTotal)
	prometheus.MustRegister(MapCacheMissesTotal)
	prometheus.MustRegister(NameCacheHitsTotal)
	prometheus.MustRegister(NameCacheMissesTotal)
	prometheus.MustRegister(GeocoderRequestsTotal)
	prometheus.MustRegister(GeocoderFailTotal)
	prometheus.MustRegister(GeocoderDurationMs)
	prometheus.MustRegister(QueryDurationMs)
	prometheus.MustRegister(LocationFallbackTotal)
}

// Handler exposes the registered metrics for scraping
func Handler() http.Handler { return promhttp.Handler() }
