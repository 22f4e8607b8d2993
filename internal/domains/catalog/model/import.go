package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// =====================================================
// BULK MERGE (import) MODELS
// =====================================================

// ImportBatch is one external export to merge into the catalog. Records keep
// their external identifiers; a record whose id already exists is skipped.
type ImportBatch struct {
	Categories []ImportRecord `json:"categories"`
	Authors    []ImportRecord `json:"authors"`
	Publishers []ImportRecord `json:"publishers"`
	Genres     []ImportRecord `json:"genres"`
	Topics     []ImportRecord `json:"topics"`
	Series     []ImportSeries `json:"series"`
	Books      []ImportBook   `json:"books"`
}

// ImportRecord covers the flat name-only kinds.
type ImportRecord struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (r ImportRecord) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.By(requireUUID)),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 512)),
	)
}

// ImportSeries carries its author references; a series with an empty author
// list is rejected at insert time, not silently dropped.
type ImportSeries struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	AuthorIDs []uuid.UUID `json:"author_ids"`
}

func (r ImportSeries) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.By(requireUUID)),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 512)),
	)
}

type ImportBook struct {
	ID             uuid.UUID   `json:"id"`
	Title          string      `json:"title"`
	PublisherID    uuid.UUID   `json:"publisher_id"`
	CategoryID     uuid.UUID   `json:"category_id"`
	SeriesID       *uuid.UUID  `json:"series_id,omitempty"`
	SeriesPosition *int        `json:"series_position,omitempty"`
	AuthorIDs      []uuid.UUID `json:"author_ids"`
	GenreIDs       []uuid.UUID `json:"genre_ids"`
	TopicIDs       []uuid.UUID `json:"topic_ids"`
}

func (r ImportBook) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.By(requireUUID)),
		validation.Field(&r.Title, validation.Required, validation.Length(1, 512)),
		validation.Field(&r.PublisherID, validation.By(requireUUID)),
		validation.Field(&r.CategoryID, validation.By(requireUUID)),
	)
}

// ImportIssue is one non-fatal finding from a batch: a rejected record, a
// dangling reference, or a post-import cleanup removal.
type ImportIssue struct {
	Kind    EntityKind `json:"kind"`
	ID      uuid.UUID  `json:"id"`
	Message string     `json:"message"`
}

// ImportResult reports how the batch merged. Counts cover inserted records
// only; re-importing the same batch yields all-zero counts.
type ImportResult struct {
	Counts  map[EntityKind]int `json:"counts_per_kind"`
	Skipped map[EntityKind]int `json:"skipped_per_kind"`
	Errors  []ImportIssue      `json:"errors"`
}

// NewImportResult initializes the per-kind maps.
func NewImportResult() *ImportResult {
	return &ImportResult{
		Counts:  make(map[EntityKind]int),
		Skipped: make(map[EntityKind]int),
	}
}

// AddIssue records a non-fatal finding.
func (r *ImportResult) AddIssue(kind EntityKind, id uuid.UUID, message string) {
	r.Errors = append(r.Errors, ImportIssue{Kind: kind, ID: id, Message: message})
}
