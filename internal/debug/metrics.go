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

package debug

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// rowsCaptured tracks rows cloned into debug buffers
	rowsCaptured = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sluice_debug_rows_captured_total",
			Help: "Total rows captured into debug buffers by step and mode",
		},
		[]string{"step", "mode"},
	)

	// breakpointHits tracks pauses triggered by previews and breakpoints
	breakpointHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sluice_debug_hits_total",
			Help: "Total breakpoint and preview hits by step and mode",
		},
		[]string{"step", "mode"},
	)

	// captureErrors tracks clone and condition failures
	captureErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sluice_debug_capture_errors_total",
			Help: "Total row capture failures by step and operation",
		},
		[]string{"step", "op"},
	)

	// listenerErrors tracks hits where at least one listener failed
	listenerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sluice_debug_listener_errors_total",
			Help: "Total breakpoint notifications with failing listeners by step",
		},
		[]string{"step"},
	)

	// attachedObservers tracks row observers installed on step copies
	attachedObservers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sluice_debug_attached_observers",
			Help: "Number of debug row observers installed on step copies",
		},
	)
)
