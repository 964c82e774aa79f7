// SPDX-License-Identifier: MIT

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobStartTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "busybeat_pipeline_job_start_total",
		Help: "Total number of animated pipeline jobs launched",
	})

	jobResultTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "busybeat_pipeline_job_result_total",
		Help: "Pipeline job outcomes",
	}, []string{"result"})

	stageFailureTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "busybeat_pipeline_stage_failure_total",
		Help: "Pipeline failures by stage",
	}, []string{"stage"})
)
