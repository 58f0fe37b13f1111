// Copyright 2025 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	runningTasksGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "seqflow",
			Subsystem: "scheduler",
			Name:      "running_tasks",
			Help:      "number of currently running tasks",
		})
	taskCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seqflow",
			Subsystem: "scheduler",
			Name:      "task_total",
			Help:      "number of terminated tasks by kind and status",
		}, []string{"kind", "status"})
	taskDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "seqflow",
			Subsystem: "scheduler",
			Name:      "task_duration_seconds",
			Help:      "external tool invocation duration by kind",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 16),
		}, []string{"kind"})
)

// InitMetrics registers the scheduler metrics with the given registry.
func InitMetrics(registry *prometheus.Registry) {
	registry.MustRegister(runningTasksGauge)
	registry.MustRegister(taskCounter)
	registry.MustRegister(taskDurationHistogram)
}
