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

package action

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	executionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskrun_action_executions_total",
			Help: "Total action executions by terminal state",
		},
		[]string{"action", "state"},
	)

	executionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deskrun_action_duration_seconds",
			Help:    "Duration of action executions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)
)

func recordExecution(actionID string, state State, elapsed time.Duration) {
	executionsTotal.WithLabelValues(actionID, state.String()).Inc()
	if elapsed > 0 {
		executionDuration.WithLabelValues(actionID).Observe(elapsed.Seconds())
	}
}
