package model

import (
	"fmt"

	"github.com/google/uuid"
)

// ViolationType tags one class of integrity finding.
type ViolationType string

const (
	ViolationOrphanAuthor         ViolationType = "orphan-author"
	ViolationOrphanPublisher      ViolationType = "orphan-publisher"
	ViolationOrphanSeries         ViolationType = "orphan-series"
	ViolationSeriesWithoutAuthors ViolationType = "series-without-authors"
	ViolationBookWithoutPublisher ViolationType = "book-without-publisher"
	ViolationBookWithoutCategory  ViolationType = "book-without-category"
	ViolationSoleSeriesAuthor     ViolationType = "sole-series-author"
	ViolationEntityHasBooks       ViolationType = "entity-has-books"
)

// Violation is one machine-readable integrity finding. Blocking errors and
// the integrity report both carry these, never bare strings.
type Violation struct {
	Type       ViolationType `json:"type"`
	EntityKind EntityKind    `json:"entity_kind"`
	EntityID   uuid.UUID     `json:"entity_id"`
	EntityName string        `json:"entity_name"`
	Message    string        `json:"message"`
}

// IntegrityReport is the outcome of a full-graph scan. Diagnostic only.
type IntegrityReport struct {
	IsValid       bool                  `json:"is_valid"`
	Violations    []Violation           `json:"violations"`
	SummaryCounts map[ViolationType]int `json:"summary_counts"`
}

// NewViolation builds a violation with a rendered message.
func NewViolation(t ViolationType, kind EntityKind, id uuid.UUID, name, format string, args ...any) Violation {
	return Violation{
		Type:       t,
		EntityKind: kind,
		EntityID:   id,
		EntityName: name,
		Message:    fmt.Sprintf(format, args...),
	}
}
