package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RidesSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rides_submitted_total",
			Help: "Total number of rides submitted",
		},
	)
	RideVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ride_verifications_total",
			Help: "Ride reviews by outcome",
		},
		[]string{"outcome"},
	)
	AchievementsUnlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievements_unlocked_total",
			Help: "Achievements unlocked by requirement type",
		},
		[]string{"requirement_type"},
	)
	ChallengesResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenges_resolved_total",
			Help: "Completed challenges by result",
		},
		[]string{"result"},
	)
	StatsCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stats_cache_lookups_total",
			Help: "Stats cache lookups by result",
		},
		[]string{"result"},
	)
	PushDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_deliveries_total",
			Help: "Push notification deliveries by status",
		},
		[]string{"status"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		RidesSubmitted,
		RideVerifications,
		AchievementsUnlocked,
		ChallengesResolved,
		StatsCacheLookups,
		PushDeliveries,
	)
}

func VerificationOutcome(approved bool) string {
	if approved {
		return "approved"
	}
	return "rejected"
}
