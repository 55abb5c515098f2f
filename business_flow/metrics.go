package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reservations issued, partitioned by tenant and category short code
	reservationsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocator_reservations_issued_total",
			Help: "Total number of asset-code reservations issued",
		},
		[]string{"tenant", "category"},
	)

	// Reservations permanently bound to an inventory record
	reservationsConfirmedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "allocator_reservations_confirmed_total",
			Help: "Total number of reservations confirmed",
		},
	)

	// Expired unconfirmed reservations removed by cleanup sweeps
	reservationsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "allocator_reservations_swept_total",
			Help: "Total number of expired reservations removed by cleanup",
		},
	)

	// Reserve attempts that timed out waiting for the sequence row lock
	allocationContentionTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "allocator_sequence_contention_total",
			Help: "Total number of reserve attempts aborted by lock contention",
		},
	)
)
