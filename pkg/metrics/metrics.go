package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation counters for the catalog engine. Registered on the default
// registry and exposed through the /metrics route.
var (
	BlockedOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "librarium_blocked_operations_total",
		Help: "Destructive operations refused because they would violate a cardinality invariant.",
	}, []string{"operation"})

	CascadeDeletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "librarium_cascade_deletions_total",
		Help: "Entities deleted as cascade companions of a book deletion or update.",
	}, []string{"kind"})

	OrphansRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "librarium_orphans_removed_total",
		Help: "Entities removed by the on-demand orphan sweep.",
	}, []string{"kind"})

	ImportedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "librarium_imported_records_total",
		Help: "Records inserted by bulk merge, by entity kind.",
	}, []string{"kind"})
)
