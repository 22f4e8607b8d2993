package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"librarium/internal/domains/catalog/model"
	"librarium/pkg/cache"
	"librarium/pkg/database"
)

// DBTX is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx, so
// the same queries run pooled or transaction-bound.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// postgresRepository implements Repository over PostgreSQL with a
// read-through cache on point gets. A transaction-bound instance (pool == nil)
// reads straight from the transaction snapshot, never from cache, but still
// invalidates cache entries it mutates.
type postgresRepository struct {
	db    DBTX
	pool  *pgxpool.Pool // nil when transaction-bound
	cache cache.Cache
}

// NewPostgresRepository creates the production repository.
func NewPostgresRepository(pool *pgxpool.Pool, cache cache.Cache) Repository {
	return &postgresRepository{db: pool, pool: pool, cache: cache}
}

// Cache key constants
const (
	bookCacheKeyPrefix      = "catalog:book:"
	authorCacheKeyPrefix    = "catalog:author:"
	publisherCacheKeyPrefix = "catalog:publisher:"
	seriesCacheKeyPrefix    = "catalog:series:"
	cacheTTL                = 15 * time.Minute
)

// WithinTx opens one transaction and hands fn a transaction-bound repository.
// A repository that is already transaction-bound reuses the open transaction;
// nested transactions are disallowed.
func (r *postgresRepository) WithinTx(ctx context.Context, fn func(tx Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}

	var fnErr error
	err := database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		fnErr = fn(&postgresRepository{db: tx, cache: r.cache})
		return fnErr
	})
	if err != nil {
		if errors.Is(err, fnErr) {
			return err
		}
		// Begin or commit failed; the transaction never took effect.
		return model.NewStorageError("transaction", err)
	}
	return nil
}

// cacheable reports whether point gets may be served from cache. Inside a
// transaction reads must come from the transaction snapshot.
func (r *postgresRepository) cacheable() bool {
	return r.pool != nil && r.cache != nil
}

func (r *postgresRepository) invalidate(ctx context.Context, keys ...string) {
	if r.cache != nil {
		_ = r.cache.Delete(ctx, keys...)
	}
}

// =====================================================
// POINT LOOKUPS
// =====================================================

func (r *postgresRepository) GetBook(ctx context.Context, id uuid.UUID) (*model.Book, error) {
	cacheKey := bookCacheKeyPrefix + id.String()
	if r.cacheable() {
		var cached model.Book
		if found, err := r.cache.Get(ctx, cacheKey, &cached); err == nil && found {
			return &cached, nil
		}
	}

	query := `
        SELECT id, title, publisher_id, category_id, series_id, series_position, created_at, updated_at
        FROM books
        WHERE id = $1
    `

	var b model.Book
	err := r.db.QueryRow(ctx, query, id).Scan(
		&b.ID,
		&b.Title,
		&b.PublisherID,
		&b.CategoryID,
		&b.SeriesID,
		&b.SeriesPosition,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.NewNotFound(model.KindBook, id)
		}
		return nil, model.NewStorageError("get book", err)
	}

	if err := r.loadBookLinks(ctx, &b); err != nil {
		return nil, err
	}

	if r.cacheable() {
		_ = r.cache.Set(ctx, cacheKey, &b, cacheTTL)
	}
	return &b, nil
}

func (r *postgresRepository) loadBookLinks(ctx context.Context, b *model.Book) error {
	var err error
	if b.AuthorIDs, err = r.queryIDs(ctx,
		`SELECT author_id FROM book_authors WHERE book_id = $1 ORDER BY author_id`, b.ID); err != nil {
		return model.NewStorageError("load book authors", err)
	}
	if b.GenreIDs, err = r.queryIDs(ctx,
		`SELECT genre_id FROM book_genres WHERE book_id = $1 ORDER BY genre_id`, b.ID); err != nil {
		return model.NewStorageError("load book genres", err)
	}
	if b.TopicIDs, err = r.queryIDs(ctx,
		`SELECT topic_id FROM book_topics WHERE book_id = $1 ORDER BY topic_id`, b.ID); err != nil {
		return model.NewStorageError("load book topics", err)
	}
	return nil
}

func (r *postgresRepository) queryIDs(ctx context.Context, query string, arg any) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresRepository) GetAuthor(ctx context.Context, id uuid.UUID) (*model.Author, error) {
	cacheKey := authorCacheKeyPrefix + id.String()
	if r.cacheable() {
		var cached model.Author
		if found, err := r.cache.Get(ctx, cacheKey, &cached); err == nil && found {
			return &cached, nil
		}
	}

	var a model.Author
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM authors WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.NewNotFound(model.KindAuthor, id)
		}
		return nil, model.NewStorageError("get author", err)
	}

	if r.cacheable() {
		_ = r.cache.Set(ctx, cacheKey, &a, cacheTTL)
	}
	return &a, nil
}

func (r *postgresRepository) GetPublisher(ctx context.Context, id uuid.UUID) (*model.Publisher, error) {
	cacheKey := publisherCacheKeyPrefix + id.String()
	if r.cacheable() {
		var cached model.Publisher
		if found, err := r.cache.Get(ctx, cacheKey, &cached); err == nil && found {
			return &cached, nil
		}
	}

	var p model.Publisher
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM publishers WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.NewNotFound(model.KindPublisher, id)
		}
		return nil, model.NewStorageError("get publisher", err)
	}

	if r.cacheable() {
		_ = r.cache.Set(ctx, cacheKey, &p, cacheTTL)
	}
	return &p, nil
}

func (r *postgresRepository) GetSeries(ctx context.Context, id uuid.UUID) (*model.Series, error) {
	cacheKey := seriesCacheKeyPrefix + id.String()
	if r.cacheable() {
		var cached model.Series
		if found, err := r.cache.Get(ctx, cacheKey, &cached); err == nil && found {
			return &cached, nil
		}
	}

	var s model.Series
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM series WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.NewNotFound(model.KindSeries, id)
		}
		return nil, model.NewStorageError("get series", err)
	}

	if s.AuthorIDs, err = r.queryIDs(ctx,
		`SELECT author_id FROM series_authors WHERE series_id = $1 ORDER BY author_id`, id); err != nil {
		return nil, model.NewStorageError("load series authors", err)
	}

	if r.cacheable() {
		_ = r.cache.Set(ctx, cacheKey, &s, cacheTTL)
	}
	return &s, nil
}

func (r *postgresRepository) GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var c model.Category
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.NewNotFound(model.KindCategory, id)
		}
		return nil, model.NewStorageError("get category", err)
	}
	return &c, nil
}

func (r *postgresRepository) GetGenre(ctx context.Context, id uuid.UUID) (*model.Genre, error) {
	var g model.Genre
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM genres WHERE id = $1`, id,
	).Scan(&g.ID, &g.Name, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.NewNotFound(model.KindGenre, id)
		}
		return nil, model.NewStorageError("get genre", err)
	}
	return &g, nil
}

func (r *postgresRepository) GetTopic(ctx context.Context, id uuid.UUID) (*model.Topic, error) {
	var t model.Topic
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM topics WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.NewNotFound(model.KindTopic, id)
		}
		return nil, model.NewStorageError("get topic", err)
	}
	return &t, nil
}

var tableByKind = map[model.EntityKind]string{
	model.KindBook:      "books",
	model.KindAuthor:    "authors",
	model.KindPublisher: "publishers",
	model.KindSeries:    "series",
	model.KindCategory:  "categories",
	model.KindGenre:     "genres",
	model.KindTopic:     "topics",
}

func (r *postgresRepository) Exists(ctx context.Context, kind model.EntityKind, id uuid.UUID) (bool, error) {
	table, ok := tableByKind[kind]
	if !ok {
		return false, model.NewStorageError("exists", fmt.Errorf("unknown entity kind %q", kind))
	}

	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, table)
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, model.NewStorageError("exists", err)
	}
	return exists, nil
}

// =====================================================
// LISTINGS
// =====================================================

func (r *postgresRepository) ListBooks(ctx context.Context) ([]model.Book, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, title, publisher_id, category_id, series_id, series_position, created_at, updated_at
        FROM books
        ORDER BY title, id
    `)
	if err != nil {
		return nil, model.NewStorageError("list books", err)
	}
	defer rows.Close()

	var books []model.Book
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.PublisherID, &b.CategoryID,
			&b.SeriesID, &b.SeriesPosition, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, model.NewStorageError("scan book", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("list books", err)
	}

	for i := range books {
		if err := r.loadBookLinks(ctx, &books[i]); err != nil {
			return nil, err
		}
	}
	return books, nil
}

func (r *postgresRepository) ListAuthors(ctx context.Context) ([]model.Author, error) {
	return scanNamed[model.Author](r, ctx, "list authors",
		`SELECT id, name, created_at, updated_at FROM authors ORDER BY name, id`,
		func(row pgx.Rows, a *model.Author) error {
			return row.Scan(&a.ID, &a.Name, &a.CreatedAt, &a.UpdatedAt)
		})
}

func (r *postgresRepository) ListPublishers(ctx context.Context) ([]model.Publisher, error) {
	return scanNamed[model.Publisher](r, ctx, "list publishers",
		`SELECT id, name, created_at, updated_at FROM publishers ORDER BY name, id`,
		func(row pgx.Rows, p *model.Publisher) error {
			return row.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
		})
}

func (r *postgresRepository) ListSeries(ctx context.Context) ([]model.Series, error) {
	series, err := scanNamed[model.Series](r, ctx, "list series",
		`SELECT id, name, created_at, updated_at FROM series ORDER BY name, id`,
		func(row pgx.Rows, s *model.Series) error {
			return row.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt)
		})
	if err != nil {
		return nil, err
	}
	if err := r.loadSeriesAuthorSets(ctx, series); err != nil {
		return nil, err
	}
	return series, nil
}

func (r *postgresRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	return scanNamed[model.Category](r, ctx, "list categories",
		`SELECT id, name, created_at, updated_at FROM categories ORDER BY name, id`,
		func(row pgx.Rows, c *model.Category) error {
			return row.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
		})
}

func (r *postgresRepository) ListGenres(ctx context.Context) ([]model.Genre, error) {
	return scanNamed[model.Genre](r, ctx, "list genres",
		`SELECT id, name, created_at, updated_at FROM genres ORDER BY name, id`,
		func(row pgx.Rows, g *model.Genre) error {
			return row.Scan(&g.ID, &g.Name, &g.CreatedAt, &g.UpdatedAt)
		})
}

func (r *postgresRepository) ListTopics(ctx context.Context) ([]model.Topic, error) {
	return scanNamed[model.Topic](r, ctx, "list topics",
		`SELECT id, name, created_at, updated_at FROM topics ORDER BY name, id`,
		func(row pgx.Rows, t *model.Topic) error {
			return row.Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt)
		})
}

func scanNamed[T any](r *postgresRepository, ctx context.Context, op, query string, scan func(pgx.Rows, *T) error) ([]T, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, model.NewStorageError(op, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var item T
		if err := scan(rows, &item); err != nil {
			return nil, model.NewStorageError(op, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError(op, err)
	}
	return out, nil
}

func (r *postgresRepository) loadSeriesAuthorSets(ctx context.Context, series []model.Series) error {
	for i := range series {
		ids, err := r.queryIDs(ctx,
			`SELECT author_id FROM series_authors WHERE series_id = $1 ORDER BY author_id`, series[i].ID)
		if err != nil {
			return model.NewStorageError("load series authors", err)
		}
		series[i].AuthorIDs = ids
	}
	return nil
}

// =====================================================
// COUNTS AND SCANS
// =====================================================

func (r *postgresRepository) CountBooksByAuthor(ctx context.Context, authorID uuid.UUID) (int, error) {
	return r.countQuery(ctx, "count books by author",
		`SELECT COUNT(*) FROM book_authors WHERE author_id = $1`, authorID)
}

func (r *postgresRepository) CountBooksByPublisher(ctx context.Context, publisherID uuid.UUID) (int, error) {
	return r.countQuery(ctx, "count books by publisher",
		`SELECT COUNT(*) FROM books WHERE publisher_id = $1`, publisherID)
}

func (r *postgresRepository) CountBooksBySeries(ctx context.Context, seriesID uuid.UUID) (int, error) {
	return r.countQuery(ctx, "count books by series",
		`SELECT COUNT(*) FROM books WHERE series_id = $1`, seriesID)
}

func (r *postgresRepository) CountAuthorsBySeries(ctx context.Context, seriesID uuid.UUID) (int, error) {
	exists, err := r.Exists(ctx, model.KindSeries, seriesID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, model.NewNotFound(model.KindSeries, seriesID)
	}
	return r.countQuery(ctx, "count authors by series",
		`SELECT COUNT(*) FROM series_authors WHERE series_id = $1`, seriesID)
}

func (r *postgresRepository) countQuery(ctx context.Context, op, query string, arg any) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, query, arg).Scan(&count); err != nil {
		return 0, model.NewStorageError(op, err)
	}
	return count, nil
}

func (r *postgresRepository) ListSeriesByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Series, error) {
	rows, err := r.db.Query(ctx, `
        SELECT s.id, s.name, s.created_at, s.updated_at
        FROM series s
        JOIN series_authors sa ON sa.series_id = s.id
        WHERE sa.author_id = $1
        ORDER BY s.name, s.id
    `, authorID)
	if err != nil {
		return nil, model.NewStorageError("list series by author", err)
	}
	defer rows.Close()

	var series []model.Series
	for rows.Next() {
		var s model.Series
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, model.NewStorageError("scan series", err)
		}
		series = append(series, s)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStorageError("list series by author", err)
	}
	if err := r.loadSeriesAuthorSets(ctx, series); err != nil {
		return nil, err
	}
	return series, nil
}

func (r *postgresRepository) ListOrphanAuthors(ctx context.Context) ([]model.Author, error) {
	return scanNamed[model.Author](r, ctx, "list orphan authors", `
        SELECT a.id, a.name, a.created_at, a.updated_at
        FROM authors a
        LEFT JOIN book_authors ba ON ba.author_id = a.id
        WHERE ba.book_id IS NULL
        ORDER BY a.name, a.id
    `, func(row pgx.Rows, a *model.Author) error {
		return row.Scan(&a.ID, &a.Name, &a.CreatedAt, &a.UpdatedAt)
	})
}

func (r *postgresRepository) ListOrphanPublishers(ctx context.Context) ([]model.Publisher, error) {
	return scanNamed[model.Publisher](r, ctx, "list orphan publishers", `
        SELECT p.id, p.name, p.created_at, p.updated_at
        FROM publishers p
        LEFT JOIN books b ON b.publisher_id = p.id
        WHERE b.id IS NULL
        ORDER BY p.name, p.id
    `, func(row pgx.Rows, p *model.Publisher) error {
		return row.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	})
}

func (r *postgresRepository) ListOrphanSeries(ctx context.Context) ([]model.Series, error) {
	series, err := scanNamed[model.Series](r, ctx, "list orphan series", `
        SELECT s.id, s.name, s.created_at, s.updated_at
        FROM series s
        LEFT JOIN books b ON b.series_id = s.id
        WHERE b.id IS NULL
        ORDER BY s.name, s.id
    `, func(row pgx.Rows, s *model.Series) error {
		return row.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt)
	})
	if err != nil {
		return nil, err
	}
	if err := r.loadSeriesAuthorSets(ctx, series); err != nil {
		return nil, err
	}
	return series, nil
}

func (r *postgresRepository) ListSeriesWithoutAuthors(ctx context.Context) ([]model.Series, error) {
	return scanNamed[model.Series](r, ctx, "list series without authors", `
        SELECT s.id, s.name, s.created_at, s.updated_at
        FROM series s
        LEFT JOIN series_authors sa ON sa.series_id = s.id
        WHERE sa.author_id IS NULL
        ORDER BY s.name, s.id
    `, func(row pgx.Rows, s *model.Series) error {
		return row.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt)
	})
}

func (r *postgresRepository) ListBooksWithMissingPublisher(ctx context.Context) ([]model.Book, error) {
	return scanNamed[model.Book](r, ctx, "list books with missing publisher", `
        SELECT b.id, b.title, b.publisher_id, b.category_id, b.series_id, b.series_position, b.created_at, b.updated_at
        FROM books b
        LEFT JOIN publishers p ON p.id = b.publisher_id
        WHERE p.id IS NULL
        ORDER BY b.title, b.id
    `, func(row pgx.Rows, b *model.Book) error {
		return row.Scan(&b.ID, &b.Title, &b.PublisherID, &b.CategoryID,
			&b.SeriesID, &b.SeriesPosition, &b.CreatedAt, &b.UpdatedAt)
	})
}

func (r *postgresRepository) ListBooksWithMissingCategory(ctx context.Context) ([]model.Book, error) {
	return scanNamed[model.Book](r, ctx, "list books with missing category", `
        SELECT b.id, b.title, b.publisher_id, b.category_id, b.series_id, b.series_position, b.created_at, b.updated_at
        FROM books b
        LEFT JOIN categories c ON c.id = b.category_id
        WHERE c.id IS NULL
        ORDER BY b.title, b.id
    `, func(row pgx.Rows, b *model.Book) error {
		return row.Scan(&b.ID, &b.Title, &b.PublisherID, &b.CategoryID,
			&b.SeriesID, &b.SeriesPosition, &b.CreatedAt, &b.UpdatedAt)
	})
}

// =====================================================
// WRITES
// =====================================================

func (r *postgresRepository) CreateBook(ctx context.Context, book *model.Book) error {
	err := r.db.QueryRow(ctx, `
        INSERT INTO books (id, title, publisher_id, category_id, series_id, series_position)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at, updated_at
    `, book.ID, book.Title, book.PublisherID, book.CategoryID, book.SeriesID, book.SeriesPosition,
	).Scan(&book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		return model.NewStorageError("create book", err)
	}

	return r.insertBookLinks(ctx, book)
}

func (r *postgresRepository) insertBookLinks(ctx context.Context, book *model.Book) error {
	// ON CONFLICT DO NOTHING backs the composite-key uniqueness assumption:
	// one link row per (book, target) pair, even on duplicated input.
	for _, authorID := range book.AuthorIDs {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO book_authors (book_id, author_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			book.ID, authorID); err != nil {
			return model.NewStorageError("link book author", err)
		}
	}
	for _, genreID := range book.GenreIDs {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO book_genres (book_id, genre_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			book.ID, genreID); err != nil {
			return model.NewStorageError("link book genre", err)
		}
	}
	for _, topicID := range book.TopicIDs {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO book_topics (book_id, topic_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			book.ID, topicID); err != nil {
			return model.NewStorageError("link book topic", err)
		}
	}
	return nil
}

// UpdateBook rewrites the row and replaces all link rows from the new state;
// existing junction rows are dropped, not diffed.
func (r *postgresRepository) UpdateBook(ctx context.Context, book *model.Book) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE books
        SET title = $1, publisher_id = $2, category_id = $3, series_id = $4, series_position = $5, updated_at = NOW()
        WHERE id = $6
    `, book.Title, book.PublisherID, book.CategoryID, book.SeriesID, book.SeriesPosition, book.ID)
	if err != nil {
		return model.NewStorageError("update book", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFound(model.KindBook, book.ID)
	}

	if err := r.deleteBookLinks(ctx, book.ID); err != nil {
		return err
	}
	if err := r.insertBookLinks(ctx, book); err != nil {
		return err
	}

	r.invalidate(ctx, bookCacheKeyPrefix+book.ID.String())
	return nil
}

func (r *postgresRepository) deleteBookLinks(ctx context.Context, id uuid.UUID) error {
	for _, query := range []string{
		`DELETE FROM book_authors WHERE book_id = $1`,
		`DELETE FROM book_genres WHERE book_id = $1`,
		`DELETE FROM book_topics WHERE book_id = $1`,
	} {
		if _, err := r.db.Exec(ctx, query, id); err != nil {
			return model.NewStorageError("delete book links", err)
		}
	}
	return nil
}

func (r *postgresRepository) DeleteBook(ctx context.Context, id uuid.UUID) error {
	if err := r.deleteBookLinks(ctx, id); err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return model.NewStorageError("delete book", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFound(model.KindBook, id)
	}

	r.invalidate(ctx, bookCacheKeyPrefix+id.String())
	return nil
}

func (r *postgresRepository) CreateAuthor(ctx context.Context, author *model.Author) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO authors (id, name) VALUES ($1, $2) RETURNING created_at, updated_at`,
		author.ID, author.Name,
	).Scan(&author.CreatedAt, &author.UpdatedAt)
	if err != nil {
		return model.NewStorageError("create author", err)
	}
	return nil
}

func (r *postgresRepository) CreatePublisher(ctx context.Context, publisher *model.Publisher) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO publishers (id, name) VALUES ($1, $2) RETURNING created_at, updated_at`,
		publisher.ID, publisher.Name,
	).Scan(&publisher.CreatedAt, &publisher.UpdatedAt)
	if err != nil {
		return model.NewStorageError("create publisher", err)
	}
	return nil
}

func (r *postgresRepository) CreateSeries(ctx context.Context, series *model.Series) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO series (id, name) VALUES ($1, $2) RETURNING created_at, updated_at`,
		series.ID, series.Name,
	).Scan(&series.CreatedAt, &series.UpdatedAt)
	if err != nil {
		return model.NewStorageError("create series", err)
	}

	for _, authorID := range series.AuthorIDs {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO series_authors (series_id, author_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			series.ID, authorID); err != nil {
			return model.NewStorageError("link series author", err)
		}
	}
	return nil
}

func (r *postgresRepository) CreateCategory(ctx context.Context, category *model.Category) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO categories (id, name) VALUES ($1, $2) RETURNING created_at, updated_at`,
		category.ID, category.Name,
	).Scan(&category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		return model.NewStorageError("create category", err)
	}
	return nil
}

func (r *postgresRepository) CreateGenre(ctx context.Context, genre *model.Genre) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO genres (id, name) VALUES ($1, $2) RETURNING created_at, updated_at`,
		genre.ID, genre.Name,
	).Scan(&genre.CreatedAt, &genre.UpdatedAt)
	if err != nil {
		return model.NewStorageError("create genre", err)
	}
	return nil
}

func (r *postgresRepository) CreateTopic(ctx context.Context, topic *model.Topic) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO topics (id, name) VALUES ($1, $2) RETURNING created_at, updated_at`,
		topic.ID, topic.Name,
	).Scan(&topic.CreatedAt, &topic.UpdatedAt)
	if err != nil {
		return model.NewStorageError("create topic", err)
	}
	return nil
}

// DeleteAuthor removes the author row and its series_authors rows. Book links
// must already be gone; direct deletes are blocked upstream while any remain.
func (r *postgresRepository) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM series_authors WHERE author_id = $1`, id); err != nil {
		return model.NewStorageError("delete series author links", err)
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM authors WHERE id = $1`, id)
	if err != nil {
		return model.NewStorageError("delete author", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFound(model.KindAuthor, id)
	}

	r.invalidate(ctx, authorCacheKeyPrefix+id.String())
	return nil
}

func (r *postgresRepository) DeletePublisher(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM publishers WHERE id = $1`, id)
	if err != nil {
		return model.NewStorageError("delete publisher", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFound(model.KindPublisher, id)
	}

	r.invalidate(ctx, publisherCacheKeyPrefix+id.String())
	return nil
}

func (r *postgresRepository) DeleteSeries(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM series_authors WHERE series_id = $1`, id); err != nil {
		return model.NewStorageError("delete series author links", err)
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM series WHERE id = $1`, id)
	if err != nil {
		return model.NewStorageError("delete series", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFound(model.KindSeries, id)
	}

	r.invalidate(ctx, seriesCacheKeyPrefix+id.String())
	return nil
}

func (r *postgresRepository) DetachSeries(ctx context.Context, seriesID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE books SET series_id = NULL, series_position = NULL, updated_at = now() WHERE series_id = $1`,
		seriesID)
	if err != nil {
		return model.NewStorageError("detach series", err)
	}

	// Any cached book may have pointed at this series.
	if r.cache != nil {
		_ = r.cache.DeletePattern(ctx, bookCacheKeyPrefix+"*")
	}
	return nil
}
