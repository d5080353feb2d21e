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

package fileop

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deskrun_file_operation_duration_seconds",
			Help:    "Duration of native file operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	errorsByKind = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskrun_file_operation_errors_total",
			Help: "Total native file operation failures by kind",
		},
		[]string{"kind"},
	)
)

func recordMetrics(op Op, seconds float64, kind string) {
	status := "success"
	if kind != "" {
		status = "error"
		errorsByKind.WithLabelValues(kind).Inc()
	}
	operationDuration.WithLabelValues(string(op), status).Observe(seconds)
}
