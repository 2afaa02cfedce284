package actionlib

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	namespace = "rosgo"
	subsystem = "action_server"

	goalsAcceptedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "goals_accepted_total",
			Help:      "Total number of goals accepted",
		},
		[]string{"action"},
	)

	goalTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "goal_transitions_total",
			Help:      "Total number of goal state transitions by destination state",
		},
		[]string{"action", "state"},
	)

	cancelRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cancel_requests_total",
			Help:      "Total number of processed cancel requests by return code",
		},
		[]string{"action", "return_code"},
	)

	goalsTracked = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "goals_tracked",
			Help:      "Number of goals currently held by the server",
		},
		[]string{"action", "node"},
	)
)

func recordGoalAccepted(action, node string, tracked int) {
	goalsAcceptedTotal.WithLabelValues(action).Inc()
	goalsTracked.WithLabelValues(action, node).Set(float64(tracked))
}

func recordGoalTransition(action string, to GoalState) {
	goalTransitionsTotal.WithLabelValues(action, to.String()).Inc()
}

func recordCancelRequest(action string, code CancelReturnCode) {
	cancelRequestsTotal.WithLabelValues(action, code.String()).Inc()
}

func recordGoalsTracked(action, node string, tracked int) {
	goalsTracked.WithLabelValues(action, node).Set(float64(tracked))
}

// forgetAction drops the gauge series of one server once it shuts down. Counters are kept.
func forgetAction(action, node string) {
	goalsTracked.DeleteLabelValues(action, node)
}
