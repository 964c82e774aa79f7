// SPDX-License-Identifier: MIT

package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pollTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "busybeat_poll_total",
		Help: "Playback polls by outcome",
	}, []string{"outcome"})

	pollErrorTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "busybeat_poll_error_total",
		Help: "Playback polls that failed with a transport or decode error",
	})

	trackChangeTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "busybeat_track_change_total",
		Help: "Observed track changes",
	})

	staticPushFailureTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "busybeat_static_push_failure_total",
		Help: "Static display updates that failed",
	})

	reattachPushTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "busybeat_reattach_push_total",
		Help: "Display re-pushes triggered by the device volume reappearing",
	})

	displayStateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "busybeat_display_state_transition_total",
		Help: "Display lifecycle transitions",
	}, []string{"from", "to"})
)
