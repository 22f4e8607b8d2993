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

func TestCheckBookDeleteImpactOrphansAllThree(t *testing.T) {
	f := newSoloFixture(t)
	analyzer := NewImpactAnalyzer(f.repo)

	report, err := analyzer.CheckBookDeleteImpact(context.Background(), f.bookID)
	require.NoError(t, err)

	assert.True(t, report.HasImpact)
	require.Len(t, report.OrphanedAuthors, 1)
	assert.Equal(t, f.authorID, report.OrphanedAuthors[0].ID)
	require.NotNil(t, report.OrphanedPublisher)
	assert.Equal(t, f.publisherID, report.OrphanedPublisher.ID)
	require.NotNil(t, report.OrphanedSeries)
	assert.Equal(t, f.seriesID, report.OrphanedSeries.ID)

	assert.Len(t, report.Violations(), 3)
}

func TestCheckBookDeleteImpactSharedEntitiesSafe(t *testing.T) {
	f := newSharedFixture(t)
	analyzer := NewImpactAnalyzer(f.repo)

	report, err := analyzer.CheckBookDeleteImpact(context.Background(), f.bookID)
	require.NoError(t, err)

	assert.False(t, report.HasImpact)
	assert.Empty(t, report.OrphanedAuthors)
	assert.Nil(t, report.OrphanedPublisher)
	assert.Nil(t, report.OrphanedSeries)
}

func TestCheckBookDeleteImpactUnknownBook(t *testing.T) {
	repo := repository.NewMemoryRepository()
	analyzer := NewImpactAnalyzer(repo)

	_, err := analyzer.CheckBookDeleteImpact(context.Background(), uuid.New())
	var notFound *model.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, model.KindBook, notFound.Kind)
}

func TestCheckBookUpdateImpactUnchangedFieldsCarryNoRisk(t *testing.T) {
	f := newSoloFixture(t)
	analyzer := NewImpactAnalyzer(f.repo)

	// Every at-risk entity is kept; only the title changes.
	proposed := &model.UpdateBookRequest{
		Title:       "Renamed",
		PublisherID: f.publisherID,
		CategoryID:  f.categoryID,
		SeriesID:    &f.seriesID,
		AuthorIDs:   []uuid.UUID{f.authorID},
	}

	report, err := analyzer.CheckBookUpdateImpact(context.Background(), f.bookID, proposed)
	require.NoError(t, err)
	assert.False(t, report.HasImpact)
}

func TestCheckBookUpdateImpactFlagsRemovedLinks(t *testing.T) {
	f := newSoloFixture(t)
	otherPublisher := mustCreatePublisher(t, f.repo, "Bigpress")
	mustCreateBook(t, f.repo, &model.Book{
		Title:       "Anchor",
		PublisherID: otherPublisher,
		CategoryID:  f.categoryID,
	})
	analyzer := NewImpactAnalyzer(f.repo)

	// Drops the sole author, swaps the publisher, leaves the series.
	proposed := &model.UpdateBookRequest{
		Title:       "The Only Book",
		PublisherID: otherPublisher,
		CategoryID:  f.categoryID,
		SeriesID:    &f.seriesID,
		AuthorIDs:   nil,
	}

	report, err := analyzer.CheckBookUpdateImpact(context.Background(), f.bookID, proposed)
	require.NoError(t, err)

	assert.True(t, report.HasImpact)
	require.Len(t, report.OrphanedAuthors, 1)
	assert.Equal(t, f.authorID, report.OrphanedAuthors[0].ID)
	require.NotNil(t, report.OrphanedPublisher, "old publisher loses its only book")
	assert.Equal(t, f.publisherID, report.OrphanedPublisher.ID)
	assert.Nil(t, report.OrphanedSeries, "series is kept by the proposed state")
}

func TestCheckAuthorDeleteImpactSoleSeriesAuthor(t *testing.T) {
	f := newSoloFixture(t)
	analyzer := NewImpactAnalyzer(f.repo)

	report, err := analyzer.CheckAuthorDeleteImpact(context.Background(), f.authorID)
	require.NoError(t, err)
	assert.True(t, report.HasImpact)
	require.Len(t, report.SoleAuthorSeries, 1)
	assert.Equal(t, f.seriesID, report.SoleAuthorSeries[0].ID)
}

func TestCheckAuthorDeleteImpactCoAuthoredSeries(t *testing.T) {
	repo := repository.NewMemoryRepository()
	a := mustCreateAuthor(t, repo, "A")
	b := mustCreateAuthor(t, repo, "B")
	mustCreateSeries(t, repo, "Duo", a, b)
	analyzer := NewImpactAnalyzer(repo)

	report, err := analyzer.CheckAuthorDeleteImpact(context.Background(), a)
	require.NoError(t, err)
	assert.False(t, report.HasImpact)
	assert.Empty(t, report.SoleAuthorSeries)
}

func TestIntegrityCheckCleanCatalog(t *testing.T) {
	f := newSoloFixture(t)
	analyzer := NewImpactAnalyzer(f.repo)

	report, err := analyzer.IntegrityCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, report.IsValid)
	assert.Empty(t, report.Violations)
}

func TestIntegrityCheckReportsEveryOrphanKind(t *testing.T) {
	f := newSoloFixture(t)
	mustCreateAuthor(t, f.repo, "Bookless Author")
	mustCreatePublisher(t, f.repo, "Bookless Press")
	danglingAuthor := mustCreateAuthor(t, f.repo, "Dangler")
	mustCreateSeries(t, f.repo, "Empty Series", danglingAuthor)
	analyzer := NewImpactAnalyzer(f.repo)

	report, err := analyzer.IntegrityCheck(context.Background())
	require.NoError(t, err)

	assert.False(t, report.IsValid)
	// Dangler has no books either, so two orphan authors.
	assert.Equal(t, 2, report.SummaryCounts[model.ViolationOrphanAuthor])
	assert.Equal(t, 1, report.SummaryCounts[model.ViolationOrphanPublisher])
	assert.Equal(t, 1, report.SummaryCounts[model.ViolationOrphanSeries])
}
