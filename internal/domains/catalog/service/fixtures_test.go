package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"librarium/internal/domains/catalog/model"
	"librarium/internal/domains/catalog/repository"
)

func mustCreateCategory(t *testing.T, repo repository.Repository, name string) uuid.UUID {
	t.Helper()
	c := &model.Category{ID: uuid.New(), Name: name}
	require.NoError(t, repo.CreateCategory(context.Background(), c))
	return c.ID
}

func mustCreateAuthor(t *testing.T, repo repository.Repository, name string) uuid.UUID {
	t.Helper()
	a := &model.Author{ID: uuid.New(), Name: name}
	require.NoError(t, repo.CreateAuthor(context.Background(), a))
	return a.ID
}

func mustCreatePublisher(t *testing.T, repo repository.Repository, name string) uuid.UUID {
	t.Helper()
	p := &model.Publisher{ID: uuid.New(), Name: name}
	require.NoError(t, repo.CreatePublisher(context.Background(), p))
	return p.ID
}

func mustCreateSeries(t *testing.T, repo repository.Repository, name string, authorIDs ...uuid.UUID) uuid.UUID {
	t.Helper()
	s := &model.Series{ID: uuid.New(), Name: name, AuthorIDs: authorIDs}
	require.NoError(t, repo.CreateSeries(context.Background(), s))
	return s.ID
}

func mustCreateGenre(t *testing.T, repo repository.Repository, name string) uuid.UUID {
	t.Helper()
	g := &model.Genre{ID: uuid.New(), Name: name}
	require.NoError(t, repo.CreateGenre(context.Background(), g))
	return g.ID
}

func mustCreateTopic(t *testing.T, repo repository.Repository, name string) uuid.UUID {
	t.Helper()
	tp := &model.Topic{ID: uuid.New(), Name: name}
	require.NoError(t, repo.CreateTopic(context.Background(), tp))
	return tp.ID
}

func mustCreateBook(t *testing.T, repo repository.Repository, book *model.Book) uuid.UUID {
	t.Helper()
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	require.NoError(t, repo.CreateBook(context.Background(), book))
	return book.ID
}

// soloFixture is the canonical single-book catalog: the book's author,
// publisher, and series each have no other book, so deleting the book
// orphans all three.
type soloFixture struct {
	repo *repository.MemoryRepository

	categoryID  uuid.UUID
	authorID    uuid.UUID
	publisherID uuid.UUID
	seriesID    uuid.UUID
	bookID      uuid.UUID
}

func newSoloFixture(t *testing.T) *soloFixture {
	t.Helper()
	repo := repository.NewMemoryRepository()

	f := &soloFixture{repo: repo}
	f.categoryID = mustCreateCategory(t, repo, "Fiction")
	f.authorID = mustCreateAuthor(t, repo, "Ursula Vernon")
	f.publisherID = mustCreatePublisher(t, repo, "Smallpress")
	f.seriesID = mustCreateSeries(t, repo, "The Saga", f.authorID)
	f.bookID = mustCreateBook(t, repo, &model.Book{
		Title:       "The Only Book",
		PublisherID: f.publisherID,
		CategoryID:  f.categoryID,
		SeriesID:    &f.seriesID,
		AuthorIDs:   []uuid.UUID{f.authorID},
	})
	return f
}

// sharedFixture has a second book sharing the author, publisher, and series,
// so deleting either book orphans nothing.
type sharedFixture struct {
	*soloFixture
	secondBookID uuid.UUID
}

func newSharedFixture(t *testing.T) *sharedFixture {
	t.Helper()
	f := newSoloFixture(t)
	secondID := mustCreateBook(t, f.repo, &model.Book{
		Title:       "The Other Book",
		PublisherID: f.publisherID,
		CategoryID:  f.categoryID,
		SeriesID:    &f.seriesID,
		AuthorIDs:   []uuid.UUID{f.authorID},
	})
	return &sharedFixture{soloFixture: f, secondBookID: secondID}
}

var errInjected = errors.New("injected storage failure")

// failingRepo wraps a real repository and fails a chosen operation, for the
// atomicity tests. WithinTx re-wraps the transaction view so the override
// stays in effect inside the transaction.
type failingRepo struct {
	repository.Repository
	failDeleteSeries bool
	failDeleteAuthor bool
}

func (f *failingRepo) WithinTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	return f.Repository.WithinTx(ctx, func(tx repository.Repository) error {
		return fn(&failingRepo{
			Repository:       tx,
			failDeleteSeries: f.failDeleteSeries,
			failDeleteAuthor: f.failDeleteAuthor,
		})
	})
}

func (f *failingRepo) DeleteSeries(ctx context.Context, id uuid.UUID) error {
	if f.failDeleteSeries {
		return model.NewStorageError("delete series", errInjected)
	}
	return f.Repository.DeleteSeries(ctx, id)
}

func (f *failingRepo) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	if f.failDeleteAuthor {
		return model.NewStorageError("delete author", errInjected)
	}
	return f.Repository.DeleteAuthor(ctx, id)
}
