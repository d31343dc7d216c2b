package census

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/opencouncil/councilkit/pkg/logger"
)

// Handler serves the aggregator's report over HTTP, caching it for a bounded
// interval. A run costs O(tenants) context switches, so hammering the health
// endpoint must not translate into hammering every tenant database.
//
// Status codes: 200 when overall is up or partial (the body carries the
// per-tenant detail), 503 when central resources are down.
func Handler(agg *Aggregator, probe Probe, ttl time.Duration, log *slog.Logger) http.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	var (
		mu        sync.Mutex
		cached    *Report
		refreshed time.Time
	)

	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		report := cached
		stale := report == nil || time.Since(refreshed) > ttl
		if stale {
			fresh, err := agg.Run(r.Context(), probe)
			if err == nil {
				cached = fresh
				refreshed = time.Now()
				report = fresh
			} else if report == nil {
				mu.Unlock()
				log.ErrorContext(r.Context(), "census run failed",
					logger.Component("census"),
					logger.Error(err),
				)
				http.Error(w, "health check unavailable", http.StatusServiceUnavailable)
				return
			}
			// A failed refresh with a previous report falls back to the
			// stale copy rather than failing the probe consumer.
		}
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if report.Overall == OverallDown {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		if err := json.NewEncoder(w).Encode(report); err != nil {
			log.ErrorContext(r.Context(), "failed to encode census report",
				logger.Component("census"),
				logger.Error(err),
			)
		}
	}
}
