// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package executer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskrun_runs_total",
			Help: "Total script runs by kind and status",
		},
		[]string{"kind", "status"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deskrun_run_duration_seconds",
			Help:    "Duration of script runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	runErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskrun_run_errors_total",
			Help: "Failed script runs by exception kind",
		},
		[]string{"kind"},
	)
)

func recordRun(out *Outcome) {
	runsTotal.WithLabelValues(string(out.Kind), string(out.Status)).Inc()
	runDuration.WithLabelValues(string(out.Kind)).Observe(out.EndedAt.Sub(out.StartedAt).Seconds())
	if out.ErrorKind != "" {
		runErrors.WithLabelValues(out.ErrorKind).Inc()
	}
}
