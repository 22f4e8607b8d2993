package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarium/internal/domains/catalog/model"
	"librarium/internal/domains/catalog/repository"
)

func TestDeleteBookBlockedWithoutCascade(t *testing.T) {
	f := newSoloFixture(t)
	svc := NewLifecycleService(f.repo)

	_, err := svc.DeleteBook(context.Background(), f.bookID, false)

	var blocked *model.BlockedByInvariantError
	require.ErrorAs(t, err, &blocked)
	assert.Len(t, blocked.Violations, 3)

	// Nothing was written.
	_, err = f.repo.GetBook(context.Background(), f.bookID)
	assert.NoError(t, err)
	_, err = f.repo.GetAuthor(context.Background(), f.authorID)
	assert.NoError(t, err)
}

func TestDeleteBookCascadeRemovesExactlyTheOrphans(t *testing.T) {
	f := newSoloFixture(t)
	// An unrelated shared pair that must survive.
	otherAuthor := mustCreateAuthor(t, f.repo, "Bystander")
	otherPublisher := mustCreatePublisher(t, f.repo, "Bystander Press")
	otherBook := mustCreateBook(t, f.repo, &model.Book{
		Title:       "Bystander Book",
		PublisherID: otherPublisher,
		CategoryID:  f.categoryID,
		AuthorIDs:   []uuid.UUID{otherAuthor},
	})
	svc := NewLifecycleService(f.repo)

	resp, err := svc.DeleteBook(context.Background(), f.bookID, true)
	require.NoError(t, err)

	kinds := make(map[model.EntityKind]int)
	for _, d := range resp.Deleted {
		kinds[d.Kind]++
	}
	assert.Equal(t, 1, kinds[model.KindBook])
	assert.Equal(t, 1, kinds[model.KindAuthor])
	assert.Equal(t, 1, kinds[model.KindPublisher])
	assert.Equal(t, 1, kinds[model.KindSeries])
	assert.Len(t, resp.Deleted, 4)

	ctx := context.Background()
	for _, check := range []struct {
		name string
		err  error
	}{
		{"book", errOf(f.repo.GetBook(ctx, f.bookID))},
		{"author", errOf(f.repo.GetAuthor(ctx, f.authorID))},
		{"publisher", errOf(f.repo.GetPublisher(ctx, f.publisherID))},
		{"series", errOf(f.repo.GetSeries(ctx, f.seriesID))},
	} {
		var notFound *model.NotFoundError
		assert.ErrorAs(t, check.err, &notFound, check.name)
	}

	// Bystanders untouched.
	_, err = f.repo.GetBook(ctx, otherBook)
	assert.NoError(t, err)
	_, err = f.repo.GetAuthor(ctx, otherAuthor)
	assert.NoError(t, err)
}

func errOf[T any](_ T, err error) error { return err }

func TestDeleteBookWithoutImpactIgnoresCascadeFlag(t *testing.T) {
	f := newSharedFixture(t)
	svc := NewLifecycleService(f.repo)

	resp, err := svc.DeleteBook(context.Background(), f.bookID, true)
	require.NoError(t, err)
	require.Len(t, resp.Deleted, 1)
	assert.Equal(t, model.KindBook, resp.Deleted[0].Kind)

	_, err = f.repo.GetAuthor(context.Background(), f.authorID)
	assert.NoError(t, err)
}

func TestDeleteBookAtomicityOnInjectedFailure(t *testing.T) {
	f := newSoloFixture(t)
	svc := NewLifecycleService(&failingRepo{Repository: f.repo, failDeleteSeries: true})

	_, err := svc.DeleteBook(context.Background(), f.bookID, true)

	var storageErr *model.StorageError
	require.ErrorAs(t, err, &storageErr)

	// The failure hit after the book and author deletes; everything must be
	// back.
	ctx := context.Background()
	_, err = f.repo.GetBook(ctx, f.bookID)
	assert.NoError(t, err)
	_, err = f.repo.GetAuthor(ctx, f.authorID)
	assert.NoError(t, err)
	_, err = f.repo.GetPublisher(ctx, f.publisherID)
	assert.NoError(t, err)
	_, err = f.repo.GetSeries(ctx, f.seriesID)
	assert.NoError(t, err)
}

func TestUpdateBookReplacesAllLinks(t *testing.T) {
	f := newSharedFixture(t)
	newAuthor := mustCreateAuthor(t, f.repo, "Replacement")
	genre := mustCreateGenre(t, f.repo, "Mystery")
	topic := mustCreateTopic(t, f.repo, "Trains")
	svc := NewLifecycleService(f.repo)

	updated, err := svc.UpdateBook(context.Background(), f.bookID, &model.UpdateBookRequest{
		Title:       "Rewritten",
		PublisherID: f.publisherID,
		CategoryID:  f.categoryID,
		AuthorIDs:   []uuid.UUID{f.authorID, newAuthor},
		GenreIDs:    []uuid.UUID{genre},
		TopicIDs:    []uuid.UUID{topic},
	}, false)
	require.NoError(t, err)

	assert.Equal(t, "Rewritten", updated.Title)
	assert.Nil(t, updated.SeriesID, "series link removed")
	assert.ElementsMatch(t, []uuid.UUID{f.authorID, newAuthor}, updated.AuthorIDs)
	assert.Equal(t, []uuid.UUID{genre}, updated.GenreIDs)
	assert.Equal(t, []uuid.UUID{topic}, updated.TopicIDs)
}

func TestUpdateBookBlockedThenCascades(t *testing.T) {
	f := newSoloFixture(t)
	otherPublisher := mustCreatePublisher(t, f.repo, "Bigpress")
	anchorAuthor := mustCreateAuthor(t, f.repo, "Anchor")
	mustCreateBook(t, f.repo, &model.Book{
		Title:       "Anchor",
		PublisherID: otherPublisher,
		CategoryID:  f.categoryID,
		AuthorIDs:   []uuid.UUID{anchorAuthor},
	})
	svc := NewLifecycleService(f.repo)

	req := &model.UpdateBookRequest{
		Title:       "Moved",
		PublisherID: otherPublisher,
		CategoryID:  f.categoryID,
		AuthorIDs:   []uuid.UUID{anchorAuthor},
	}

	// Orphans the old author, publisher, and series.
	_, err := svc.UpdateBook(context.Background(), f.bookID, req, false)
	var blocked *model.BlockedByInvariantError
	require.ErrorAs(t, err, &blocked)
	assert.Len(t, blocked.Violations, 3)

	updated, err := svc.UpdateBook(context.Background(), f.bookID, req, true)
	require.NoError(t, err)
	assert.Equal(t, otherPublisher, updated.PublisherID)

	ctx := context.Background()
	var notFound *model.NotFoundError
	assert.ErrorAs(t, errOf(f.repo.GetAuthor(ctx, f.authorID)), &notFound)
	assert.ErrorAs(t, errOf(f.repo.GetPublisher(ctx, f.publisherID)), &notFound)
	assert.ErrorAs(t, errOf(f.repo.GetSeries(ctx, f.seriesID)), &notFound)
}

func TestUpdateBookUnknownReference(t *testing.T) {
	f := newSoloFixture(t)
	svc := NewLifecycleService(f.repo)

	_, err := svc.UpdateBook(context.Background(), f.bookID, &model.UpdateBookRequest{
		Title:       "Broken",
		PublisherID: uuid.New(),
		CategoryID:  f.categoryID,
		AuthorIDs:   []uuid.UUID{f.authorID},
		SeriesID:    &f.seriesID,
	}, false)

	var validation *model.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestDeleteAuthorBlockedByLinkedBooks(t *testing.T) {
	f := newSoloFixture(t)
	svc := NewLifecycleService(f.repo)

	err := svc.DeleteAuthor(context.Background(), f.authorID)

	var blocked *model.BlockedByInvariantError
	require.ErrorAs(t, err, &blocked)

	types := make(map[model.ViolationType]bool)
	for _, v := range blocked.Violations {
		types[v.Type] = true
	}
	assert.True(t, types[model.ViolationEntityHasBooks])
	assert.True(t, types[model.ViolationSoleSeriesAuthor])
}

func TestDeleteAuthorSoleSeriesAuthorUnblockedByCoAuthor(t *testing.T) {
	repo := repository.NewMemoryRepository()
	a := mustCreateAuthor(t, repo, "A")
	b := mustCreateAuthor(t, repo, "B")
	mustCreateSeries(t, repo, "Duo", a, b)
	svc := NewLifecycleService(repo)

	// B makes A removable; A has no books of their own.
	require.NoError(t, svc.DeleteAuthor(context.Background(), a))

	series, err := repo.ListSeries(context.Background())
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, []uuid.UUID{b}, series[0].AuthorIDs)
}

func TestDeletePublisherNeverCascades(t *testing.T) {
	f := newSoloFixture(t)
	svc := NewLifecycleService(f.repo)

	err := svc.DeletePublisher(context.Background(), f.publisherID)
	var blocked *model.BlockedByInvariantError
	require.ErrorAs(t, err, &blocked)
	require.Len(t, blocked.Violations, 1)
	assert.Equal(t, model.ViolationEntityHasBooks, blocked.Violations[0].Type)

	// Free publisher deletes cleanly.
	free := mustCreatePublisher(t, f.repo, "Bookless Press")
	require.NoError(t, svc.DeletePublisher(context.Background(), free))
}

func TestDeleteSeriesNeverCascades(t *testing.T) {
	f := newSoloFixture(t)
	svc := NewLifecycleService(f.repo)

	err := svc.DeleteSeries(context.Background(), f.seriesID)
	var blocked *model.BlockedByInvariantError
	require.ErrorAs(t, err, &blocked)

	free := mustCreateSeries(t, f.repo, "Empty", f.authorID)
	require.NoError(t, svc.DeleteSeries(context.Background(), free))
}

func TestCreateBookWithPendingEntities(t *testing.T) {
	repo := repository.NewMemoryRepository()
	category := mustCreateCategory(t, repo, "Fiction")
	svc := NewLifecycleService(repo)

	publisherName := "Fresh Press"
	seriesName := "Fresh Saga"
	book, err := svc.CreateBook(context.Background(), &model.CreateBookRequest{
		Title:          "Debut",
		CategoryID:     category,
		PublisherName:  &publisherName,
		SeriesName:     &seriesName,
		NewAuthorNames: []string{"New Author"},
	})
	require.NoError(t, err)

	ctx := context.Background()
	publisher, err := repo.GetPublisher(ctx, book.PublisherID)
	require.NoError(t, err)
	assert.Equal(t, publisherName, publisher.Name)

	require.NotNil(t, book.SeriesID)
	series, err := repo.GetSeries(ctx, *book.SeriesID)
	require.NoError(t, err)
	assert.Equal(t, seriesName, series.Name)
	assert.Equal(t, book.AuthorIDs, series.AuthorIDs, "a fresh series takes the book's authors")

	// The whole create leaves the catalog invariant-clean.
	report, err := NewImpactAnalyzer(repo).IntegrityCheck(ctx)
	require.NoError(t, err)
	assert.True(t, report.IsValid)
}

func TestCreateBookNewSeriesRequiresAuthors(t *testing.T) {
	repo := repository.NewMemoryRepository()
	category := mustCreateCategory(t, repo, "Fiction")
	publisher := mustCreatePublisher(t, repo, "Press")
	svc := NewLifecycleService(repo)

	seriesName := "Authorless Saga"
	_, err := svc.CreateBook(context.Background(), &model.CreateBookRequest{
		Title:       "Debut",
		CategoryID:  category,
		PublisherID: &publisher,
		SeriesName:  &seriesName,
	})

	var validation *model.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestCleanupOrphansSweepsEverythingAndIsIdempotent(t *testing.T) {
	f := newSoloFixture(t)
	orphanAuthor := mustCreateAuthor(t, f.repo, "Bookless Author")
	orphanPublisher := mustCreatePublisher(t, f.repo, "Bookless Press")
	emptySeries := mustCreateSeries(t, f.repo, "Empty Series", f.authorID)
	svc := NewLifecycleService(f.repo)

	result, err := svc.CleanupOrphans(context.Background())
	require.NoError(t, err)

	require.Len(t, result.DeletedAuthors, 1)
	assert.Equal(t, orphanAuthor, result.DeletedAuthors[0].ID)
	require.Len(t, result.DeletedPublishers, 1)
	assert.Equal(t, orphanPublisher, result.DeletedPublishers[0].ID)
	require.Len(t, result.DeletedSeries, 1)
	assert.Equal(t, emptySeries, result.DeletedSeries[0].ID)

	// The linked entities survived.
	_, err = f.repo.GetAuthor(context.Background(), f.authorID)
	assert.NoError(t, err)

	again, err := svc.CleanupOrphans(context.Background())
	require.NoError(t, err)
	assert.True(t, again.Empty())
}

func TestCleanupOrphansReachesFixedPoint(t *testing.T) {
	repo := repository.NewMemoryRepository()
	category := mustCreateCategory(t, repo, "Fiction")
	publisher := mustCreatePublisher(t, repo, "Press")
	keeper := mustCreateAuthor(t, repo, "Keeper")
	orphan := mustCreateAuthor(t, repo, "Fading")
	series := mustCreateSeries(t, repo, "Fading Saga", orphan)
	bookID := mustCreateBook(t, repo, &model.Book{
		Title:       "Kept Book",
		PublisherID: publisher,
		CategoryID:  category,
		SeriesID:    &series,
		AuthorIDs:   []uuid.UUID{keeper},
	})
	svc := NewLifecycleService(repo)

	// Pass one removes the bookless author, emptying the series' author set;
	// pass two removes the now-authorless series, detaching the book.
	result, err := svc.CleanupOrphans(context.Background())
	require.NoError(t, err)

	require.Len(t, result.DeletedAuthors, 1)
	assert.Equal(t, orphan, result.DeletedAuthors[0].ID)
	require.Len(t, result.DeletedSeries, 1)
	assert.Equal(t, series, result.DeletedSeries[0].ID)

	book, err := repo.GetBook(context.Background(), bookID)
	require.NoError(t, err)
	assert.Nil(t, book.SeriesID, "book detached from the removed series")

	report, err := NewImpactAnalyzer(repo).IntegrityCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, report.IsValid)
}

func TestCleanupOrphansAtomicity(t *testing.T) {
	f := newSoloFixture(t)
	mustCreateAuthor(t, f.repo, "Bookless Author")
	mustCreatePublisher(t, f.repo, "Bookless Press")
	svc := NewLifecycleService(&failingRepo{Repository: f.repo, failDeleteAuthor: true})

	_, err := svc.CleanupOrphans(context.Background())
	var storageErr *model.StorageError
	require.ErrorAs(t, err, &storageErr)

	// Both orphans still present after rollback.
	authors, err := f.repo.ListOrphanAuthors(context.Background())
	require.NoError(t, err)
	assert.Len(t, authors, 1)
	publishers, err := f.repo.ListOrphanPublishers(context.Background())
	require.NoError(t, err)
	assert.Len(t, publishers, 1)
}

func TestCascadedAuthorMayLeaveSeriesAuthorless(t *testing.T) {
	repo := repository.NewMemoryRepository()
	category := mustCreateCategory(t, repo, "Fiction")
	publisher := mustCreatePublisher(t, repo, "Press")
	soleAuthor := mustCreateAuthor(t, repo, "Sole Series Author")
	coAuthor := mustCreateAuthor(t, repo, "Bystander")
	sideSeries := mustCreateSeries(t, repo, "Side Saga", soleAuthor)
	doomed := mustCreateBook(t, repo, &model.Book{
		Title:       "Only Credit",
		PublisherID: publisher,
		CategoryID:  category,
		AuthorIDs:   []uuid.UUID{soleAuthor},
	})
	kept := mustCreateBook(t, repo, &model.Book{
		Title:       "Side Entry",
		PublisherID: publisher,
		CategoryID:  category,
		SeriesID:    &sideSeries,
		AuthorIDs:   []uuid.UUID{coAuthor},
	})
	svc := NewLifecycleService(repo)

	// The cascade removes exactly the orphans the impact report named: the
	// book and its now-bookless author. Deleting that author also drops its
	// series-author links, which can leave a populated series with no
	// authors. That state is deliberately left for the orphan sweep.
	resp, err := svc.DeleteBook(context.Background(), doomed, true)
	require.NoError(t, err)
	require.Len(t, resp.Deleted, 2)

	report, err := NewImpactAnalyzer(repo).IntegrityCheck(context.Background())
	require.NoError(t, err)
	assert.False(t, report.IsValid)
	assert.Equal(t, 1, report.SummaryCounts[model.ViolationSeriesWithoutAuthors])

	result, err := svc.CleanupOrphans(context.Background())
	require.NoError(t, err)
	require.Len(t, result.DeletedSeries, 1)
	assert.Equal(t, sideSeries, result.DeletedSeries[0].ID)
	assert.Empty(t, result.DeletedAuthors)
	assert.Empty(t, result.DeletedPublishers)

	book, err := repo.GetBook(context.Background(), kept)
	require.NoError(t, err)
	assert.Nil(t, book.SeriesID)

	report, err = NewImpactAnalyzer(repo).IntegrityCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, report.IsValid)
}
