package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "streakbot"

var (
	// streakTransitions counts streak engine outcomes by action.
	streakTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streak_transitions_total",
			Help:      "Streak engine outcomes by action.",
		},
		[]string{"action"},
	)

	// classifications counts classifier verdicts by deciding check.
	classifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Content classifier verdicts by reason and outcome.",
		},
		[]string{"reason", "qualifies"},
	)

	// backfillMessages counts messages replayed by the backfill importer.
	backfillMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backfill_messages_total",
			Help:      "Messages replayed by backfill, by outcome.",
		},
		[]string{"outcome"},
	)

	// schedulerPosts counts scheduled posts by trigger.
	schedulerPosts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_posts_total",
			Help:      "Scheduled posts sent, by trigger.",
		},
		[]string{"trigger"},
	)
)

func init() {
	prometheus.MustRegister(streakTransitions, classifications, backfillMessages, schedulerPosts)
}

// RecordTransition counts one streak engine outcome.
func RecordTransition(action string) {
	streakTransitions.WithLabelValues(action).Inc()
}

// RecordClassification counts one classifier verdict.
func RecordClassification(reason string, qualifies bool) {
	classifications.WithLabelValues(reason, strconv.FormatBool(qualifies)).Inc()
}

// RecordBackfill counts one replayed message.
func RecordBackfill(outcome string) {
	backfillMessages.WithLabelValues(outcome).Inc()
}

// RecordSchedulerPost counts one scheduled post.
func RecordSchedulerPost(trigger string) {
	schedulerPosts.WithLabelValues(trigger).Inc()
}
