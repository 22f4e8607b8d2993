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

func consistentBatch() *model.ImportBatch {
	category := model.ImportRecord{ID: uuid.New(), Name: "Fiction"}
	author := model.ImportRecord{ID: uuid.New(), Name: "Imported Author"}
	publisher := model.ImportRecord{ID: uuid.New(), Name: "Imported Press"}
	genre := model.ImportRecord{ID: uuid.New(), Name: "Mystery"}
	topic := model.ImportRecord{ID: uuid.New(), Name: "Trains"}
	series := model.ImportSeries{ID: uuid.New(), Name: "Imported Saga", AuthorIDs: []uuid.UUID{author.ID}}

	return &model.ImportBatch{
		Categories: []model.ImportRecord{category},
		Authors:    []model.ImportRecord{author},
		Publishers: []model.ImportRecord{publisher},
		Genres:     []model.ImportRecord{genre},
		Topics:     []model.ImportRecord{topic},
		Series:     []model.ImportSeries{series},
		Books: []model.ImportBook{{
			ID:          uuid.New(),
			Title:       "Imported Book",
			PublisherID: publisher.ID,
			CategoryID:  category.ID,
			SeriesID:    &series.ID,
			AuthorIDs:   []uuid.UUID{author.ID},
			GenreIDs:    []uuid.UUID{genre.ID},
			TopicIDs:    []uuid.UUID{topic.ID},
		}},
	}
}

func TestImportBatchInsertsInDependencyOrder(t *testing.T) {
	repo := repository.NewMemoryRepository()
	svc := NewImportService(repo)

	result, err := svc.ImportBatch(context.Background(), consistentBatch())
	require.NoError(t, err)

	assert.Empty(t, result.Errors)
	for _, kind := range []model.EntityKind{
		model.KindCategory, model.KindAuthor, model.KindPublisher,
		model.KindGenre, model.KindTopic, model.KindSeries, model.KindBook,
	} {
		assert.Equal(t, 1, result.Counts[kind], string(kind))
	}

	report, err := NewImpactAnalyzer(repo).IntegrityCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, report.IsValid)
}

func TestImportBatchIsIdempotent(t *testing.T) {
	repo := repository.NewMemoryRepository()
	svc := NewImportService(repo)
	batch := consistentBatch()

	_, err := svc.ImportBatch(context.Background(), batch)
	require.NoError(t, err)

	// Same batch again: everything already present, nothing inserted.
	result, err := svc.ImportBatch(context.Background(), batch)
	require.NoError(t, err)

	for kind, n := range result.Counts {
		assert.Zero(t, n, string(kind))
	}
	assert.Equal(t, 1, result.Skipped[model.KindBook])
	assert.Equal(t, 1, result.Skipped[model.KindSeries])
	assert.Empty(t, result.Errors)

	books, err := repo.ListBooks(context.Background())
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestImportBatchRejectsAuthorlessSeries(t *testing.T) {
	repo := repository.NewMemoryRepository()
	svc := NewImportService(repo)

	seriesID := uuid.New()
	batch := &model.ImportBatch{
		Series: []model.ImportSeries{{ID: seriesID, Name: "No Authors"}},
	}

	result, err := svc.ImportBatch(context.Background(), batch)
	require.NoError(t, err)

	assert.Zero(t, result.Counts[model.KindSeries])
	require.Len(t, result.Errors, 1)
	assert.Equal(t, model.KindSeries, result.Errors[0].Kind)
	assert.Equal(t, seriesID, result.Errors[0].ID)

	exists, err := repo.Exists(context.Background(), model.KindSeries, seriesID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestImportBatchSkipsBooksWithDanglingRefs(t *testing.T) {
	repo := repository.NewMemoryRepository()
	svc := NewImportService(repo)

	batch := consistentBatch()
	badBook := model.ImportBook{
		ID:          uuid.New(),
		Title:       "Dangling",
		PublisherID: uuid.New(), // never imported
		CategoryID:  batch.Categories[0].ID,
	}
	batch.Books = append(batch.Books, badBook)

	result, err := svc.ImportBatch(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Counts[model.KindBook], "good book still lands")
	require.NotEmpty(t, result.Errors)
	found := false
	for _, issue := range result.Errors {
		if issue.ID == badBook.ID {
			found = true
			assert.Equal(t, model.KindBook, issue.Kind)
		}
	}
	assert.True(t, found)
}

func TestImportBatchCleansUpOrphanedDependents(t *testing.T) {
	repo := repository.NewMemoryRepository()
	svc := NewImportService(repo)

	batch := consistentBatch()
	// A publisher whose only would-be book fails its reference check: the
	// trailing sweep must remove the publisher again.
	strandedPublisher := model.ImportRecord{ID: uuid.New(), Name: "Stranded Press"}
	batch.Publishers = append(batch.Publishers, strandedPublisher)
	batch.Books = append(batch.Books, model.ImportBook{
		ID:          uuid.New(),
		Title:       "Never Lands",
		PublisherID: strandedPublisher.ID,
		CategoryID:  uuid.New(), // unknown category, book is skipped
	})

	result, err := svc.ImportBatch(context.Background(), batch)
	require.NoError(t, err)

	exists, err := repo.Exists(context.Background(), model.KindPublisher, strandedPublisher.ID)
	require.NoError(t, err)
	assert.False(t, exists, "stranded publisher swept in the same transaction")

	swept := false
	for _, issue := range result.Errors {
		if issue.ID == strandedPublisher.ID && issue.Kind == model.KindPublisher {
			swept = true
		}
	}
	assert.True(t, swept, "sweep recorded in the result")

	report, err := NewImpactAnalyzer(repo).IntegrityCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, report.IsValid)
}

func TestImportBatchRejectsMalformedRecords(t *testing.T) {
	repo := repository.NewMemoryRepository()
	svc := NewImportService(repo)

	batch := &model.ImportBatch{
		Authors: []model.ImportRecord{
			{ID: uuid.New(), Name: ""},       // missing name
			{ID: uuid.Nil, Name: "No ID"},    // zero id
			{ID: uuid.New(), Name: "Usable"}, // fine, but orphan; swept at the end
		},
	}

	result, err := svc.ImportBatch(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Counts[model.KindAuthor])
	assert.GreaterOrEqual(t, len(result.Errors), 2)

	authors, err := repo.ListAuthors(context.Background())
	require.NoError(t, err)
	assert.Empty(t, authors, "usable author had no book and was swept")
}
