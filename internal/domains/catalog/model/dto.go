package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// =====================================================
// IMPACT REPORTS (read-only previews)
// =====================================================

// BookImpactReport describes which entities a proposed book deletion or
// update would orphan. Counts behind the flags use the exact count == 1
// threshold: the candidate book is still present when counting, so one
// remaining link means this book is the only one.
type BookImpactReport struct {
	OrphanedAuthors   []EntityRef `json:"orphaned_authors"`
	OrphanedPublisher *EntityRef  `json:"orphaned_publisher,omitempty"`
	OrphanedSeries    *EntityRef  `json:"orphaned_series,omitempty"`
	HasImpact         bool        `json:"has_impact"`
}

// Violations renders the report as blocking-error material.
func (r *BookImpactReport) Violations() []Violation {
	var out []Violation
	for _, a := range r.OrphanedAuthors {
		out = append(out, NewViolation(ViolationOrphanAuthor, KindAuthor, a.ID, a.Name,
			"author %q would have no remaining books", a.Name))
	}
	if r.OrphanedPublisher != nil {
		p := r.OrphanedPublisher
		out = append(out, NewViolation(ViolationOrphanPublisher, KindPublisher, p.ID, p.Name,
			"publisher %q would have no remaining books", p.Name))
	}
	if r.OrphanedSeries != nil {
		s := r.OrphanedSeries
		out = append(out, NewViolation(ViolationOrphanSeries, KindSeries, s.ID, s.Name,
			"series %q would have no remaining books", s.Name))
	}
	return out
}

// AuthorImpactReport lists every series that would be left with no authors
// if the author were deleted.
type AuthorImpactReport struct {
	SoleAuthorSeries []EntityRef `json:"series_with_no_remaining_authors"`
	HasImpact        bool        `json:"has_impact"`
}

// =====================================================
// MUTATION REQUESTS
// =====================================================

// CreateBookRequest creates a book together with any pending dependents.
// Referenced entities may be given by id (must exist) or by name (created in
// the same transaction as the book, so the minimum-cardinality rules hold at
// commit).
type CreateBookRequest struct {
	Title string `json:"title"`

	PublisherID   *uuid.UUID `json:"publisher_id,omitempty"`
	PublisherName *string    `json:"publisher_name,omitempty"`

	CategoryID uuid.UUID `json:"category_id"`

	SeriesID       *uuid.UUID `json:"series_id,omitempty"`
	SeriesName     *string    `json:"series_name,omitempty"`
	SeriesPosition *int       `json:"series_position,omitempty"`

	AuthorIDs      []uuid.UUID `json:"author_ids"`
	NewAuthorNames []string    `json:"new_author_names,omitempty"`

	GenreIDs []uuid.UUID `json:"genre_ids"`
	TopicIDs []uuid.UUID `json:"topic_ids"`
}

// Validate checks structural validity; referential checks happen in the
// service against the store.
func (r CreateBookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 512)),
		validation.Field(&r.CategoryID, validation.Required, validation.By(requireUUID)),
		validation.Field(&r.PublisherID, validation.Required.When(r.PublisherName == nil).Error("either publisher_id or publisher_name is required")),
		validation.Field(&r.SeriesPosition, validation.Min(1)),
	)
}

// UpdateBookRequest is the full proposed new state of a book. Link slices use
// replace-all semantics: the existing junction rows are dropped and rewritten
// from this request.
type UpdateBookRequest struct {
	Title          string      `json:"title"`
	PublisherID    uuid.UUID   `json:"publisher_id"`
	CategoryID     uuid.UUID   `json:"category_id"`
	SeriesID       *uuid.UUID  `json:"series_id,omitempty"`
	SeriesPosition *int        `json:"series_position,omitempty"`
	AuthorIDs      []uuid.UUID `json:"author_ids"`
	GenreIDs       []uuid.UUID `json:"genre_ids"`
	TopicIDs       []uuid.UUID `json:"topic_ids"`
}

func (r UpdateBookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 512)),
		validation.Field(&r.PublisherID, validation.Required, validation.By(requireUUID)),
		validation.Field(&r.CategoryID, validation.Required, validation.By(requireUUID)),
		validation.Field(&r.SeriesPosition, validation.Min(1)),
	)
}

// HasAuthor reports whether the proposed state keeps the given author.
func (r *UpdateBookRequest) HasAuthor(authorID uuid.UUID) bool {
	for _, id := range r.AuthorIDs {
		if id == authorID {
			return true
		}
	}
	return false
}

func requireUUID(value any) error {
	id, ok := value.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return validation.NewError("validation_required_uuid", "must be a non-zero uuid")
	}
	return nil
}

// =====================================================
// MUTATION RESPONSES
// =====================================================

// DeleteBookResponse confirms what a book deletion actually removed: the book
// itself plus any cascaded orphans.
type DeleteBookResponse struct {
	Deleted []DeletedEntity `json:"deleted_entities"`
}

// CleanupResult groups everything the orphan sweep removed, by kind.
type CleanupResult struct {
	DeletedAuthors    []EntityRef `json:"deleted_authors"`
	DeletedPublishers []EntityRef `json:"deleted_publishers"`
	DeletedSeries     []EntityRef `json:"deleted_series"`
}

// Empty reports whether the sweep removed nothing.
func (c *CleanupResult) Empty() bool {
	return len(c.DeletedAuthors) == 0 && len(c.DeletedPublishers) == 0 && len(c.DeletedSeries) == 0
}

// Merge appends another pass's removals.
func (c *CleanupResult) Merge(other CleanupResult) {
	c.DeletedAuthors = append(c.DeletedAuthors, other.DeletedAuthors...)
	c.DeletedPublishers = append(c.DeletedPublishers, other.DeletedPublishers...)
	c.DeletedSeries = append(c.DeletedSeries, other.DeletedSeries...)
}
