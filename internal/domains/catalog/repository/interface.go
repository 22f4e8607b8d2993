package repository

import (
	"context"

	"github.com/google/uuid"

	"librarium/internal/domains/catalog/model"
)

// Repository is the Entity Store contract the engine consumes: point lookups,
// count-by-foreign-key queries, zero-link scans, and atomic multi-statement
// transactions. Implementations: postgres (production) and memory (tests).
//
// Errors: missing rows surface as *model.NotFoundError; everything else from
// the store is wrapped in *model.StorageError.
type Repository interface {
	// WithinTx runs fn against a transaction-bound view of the store and
	// commits iff fn returns nil. Nested calls reuse the open transaction
	// rather than starting a new one.
	WithinTx(ctx context.Context, fn func(tx Repository) error) error

	// Point lookups. GetBook loads the book's junction link sets.
	GetBook(ctx context.Context, id uuid.UUID) (*model.Book, error)
	GetAuthor(ctx context.Context, id uuid.UUID) (*model.Author, error)
	GetPublisher(ctx context.Context, id uuid.UUID) (*model.Publisher, error)
	GetSeries(ctx context.Context, id uuid.UUID) (*model.Series, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error)
	GetGenre(ctx context.Context, id uuid.UUID) (*model.Genre, error)
	GetTopic(ctx context.Context, id uuid.UUID) (*model.Topic, error)

	// Exists is the lightweight identity probe the bulk merge uses for
	// idempotent dedup.
	Exists(ctx context.Context, kind model.EntityKind, id uuid.UUID) (bool, error)

	// Listings. The catalog tops out at tens of thousands of rows, so these
	// are unpaginated.
	ListBooks(ctx context.Context) ([]model.Book, error)
	ListAuthors(ctx context.Context) ([]model.Author, error)
	ListPublishers(ctx context.Context) ([]model.Publisher, error)
	ListSeries(ctx context.Context) ([]model.Series, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListGenres(ctx context.Context) ([]model.Genre, error)
	ListTopics(ctx context.Context) ([]model.Topic, error)

	// Count-by-foreign-key queries feed the exact-threshold impact checks.
	// Counts reflect current persisted state, candidate links included.
	CountBooksByAuthor(ctx context.Context, authorID uuid.UUID) (int, error)
	CountBooksByPublisher(ctx context.Context, publisherID uuid.UUID) (int, error)
	CountBooksBySeries(ctx context.Context, seriesID uuid.UUID) (int, error)
	CountAuthorsBySeries(ctx context.Context, seriesID uuid.UUID) (int, error)

	// ListSeriesByAuthor returns every series the author is linked to,
	// for the sole-series-author check.
	ListSeriesByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Series, error)

	// Zero-link scans for orphan discovery.
	ListOrphanAuthors(ctx context.Context) ([]model.Author, error)
	ListOrphanPublishers(ctx context.Context) ([]model.Publisher, error)
	ListOrphanSeries(ctx context.Context) ([]model.Series, error)
	ListSeriesWithoutAuthors(ctx context.Context) ([]model.Series, error)

	// Dangling-reference scans used by the integrity check.
	ListBooksWithMissingPublisher(ctx context.Context) ([]model.Book, error)
	ListBooksWithMissingCategory(ctx context.Context) ([]model.Book, error)

	// Writes. CreateBook and UpdateBook maintain the junction rows;
	// UpdateBook replaces all link rows from the new state rather than
	// diffing. Entity deletes remove the entity's own junction rows
	// (series_authors for authors and series) but never touch books.
	CreateBook(ctx context.Context, book *model.Book) error
	UpdateBook(ctx context.Context, book *model.Book) error
	DeleteBook(ctx context.Context, id uuid.UUID) error

	CreateAuthor(ctx context.Context, author *model.Author) error
	CreatePublisher(ctx context.Context, publisher *model.Publisher) error
	CreateSeries(ctx context.Context, series *model.Series) error
	CreateCategory(ctx context.Context, category *model.Category) error
	CreateGenre(ctx context.Context, genre *model.Genre) error
	CreateTopic(ctx context.Context, topic *model.Topic) error

	DeleteAuthor(ctx context.Context, id uuid.UUID) error
	DeletePublisher(ctx context.Context, id uuid.UUID) error
	DeleteSeries(ctx context.Context, id uuid.UUID) error

	// DetachSeries clears series_id on every book of the series. Used by the
	// orphan sweep before it deletes a series that lost its last author but
	// still has books.
	DetachSeries(ctx context.Context, seriesID uuid.UUID) error
}
