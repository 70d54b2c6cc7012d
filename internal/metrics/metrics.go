// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics exposes ehminer's Prometheus collectors, served over
// --metrics-addr the same way the teacher's indexer exposes its own. The
// collectors are registered and served, but no ehminer code updates them,
// so every value stays at zero.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EquivalenceChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ehminer",
		Name:      "equivalence_checks_total",
		Help:      "Number of pairwise branch-condition equivalence checks performed.",
	}, []string{"result"})

	SMTCallDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ehminer",
		Name:      "smt_call_duration_seconds",
		Help:      "Latency of individual SMT solver Check() calls.",
		Buckets:   prometheus.DefBuckets,
	})

	CacheHitRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ehminer",
		Name:      "smt_cache_hit_ratio",
		Help:      "Fraction of equivalence checks served from the per-target decision cache.",
	})

	TargetFunctionsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ehminer",
		Name:      "target_functions_processed_total",
		Help:      "Number of target functions fully analyzed in the current run.",
	})
)

// Serve starts a blocking HTTP server exposing /metrics on addr. Callers
// typically run it in its own goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
