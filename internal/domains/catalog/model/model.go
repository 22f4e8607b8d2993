package model

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind identifies one of the primary record tables.
type EntityKind string

const (
	KindBook      EntityKind = "book"
	KindAuthor    EntityKind = "author"
	KindPublisher EntityKind = "publisher"
	KindSeries    EntityKind = "series"
	KindCategory  EntityKind = "category"
	KindGenre     EntityKind = "genre"
	KindTopic     EntityKind = "topic"
)

// Book is the central catalog entity. The link slices mirror the junction
// tables (book_authors, book_genres, book_topics); PublisherID and CategoryID
// are plain foreign keys and must always resolve.
type Book struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Title string    `json:"title" db:"title"`

	PublisherID uuid.UUID `json:"publisher_id" db:"publisher_id"`
	CategoryID  uuid.UUID `json:"category_id" db:"category_id"`

	// Optional series membership with an ordinal position inside the series.
	SeriesID       *uuid.UUID `json:"series_id,omitempty" db:"series_id"`
	SeriesPosition *int       `json:"series_position,omitempty" db:"series_position"`

	AuthorIDs []uuid.UUID `json:"author_ids"`
	GenreIDs  []uuid.UUID `json:"genre_ids"`
	TopicIDs  []uuid.UUID `json:"topic_ids"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Author exists only while at least one book links to it. The engine enforces
// that rule actively; the schema does not.
type Author struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Publisher has the same minimum-cardinality rule as Author.
type Publisher struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Series requires at least one linked book and at least one linked author.
// AuthorIDs mirrors the series_authors junction table.
type Series struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	Name      string      `json:"name" db:"name"`
	AuthorIDs []uuid.UUID `json:"author_ids"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// Category is a required reference for every book but carries no minimum
// itself: an empty category is legal.
type Category struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Genre and Topic are weakly-constrained tags; zero linked books is fine.
type Genre struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Topic struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// EntityRef is a lightweight (id, name) pair used in impact reports and
// deletion confirmations.
type EntityRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// DeletedEntity records one row removed by a destructive operation.
type DeletedEntity struct {
	Kind EntityKind `json:"kind"`
	ID   uuid.UUID  `json:"id"`
	Name string     `json:"name"`
}

// HasSeries reports whether the book belongs to a series.
func (b *Book) HasSeries() bool {
	return b.SeriesID != nil
}

// HasAuthor reports whether the given author is linked to the book.
func (b *Book) HasAuthor(authorID uuid.UUID) bool {
	for _, id := range b.AuthorIDs {
		if id == authorID {
			return true
		}
	}
	return false
}
