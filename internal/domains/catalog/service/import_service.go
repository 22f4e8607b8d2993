package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"librarium/internal/domains/catalog/model"
	"librarium/internal/domains/catalog/repository"
	"librarium/pkg/metrics"
)

// ImportService merges an external catalog export into the store. The whole
// batch, including the trailing orphan sweep, runs in a single transaction.
// Records that already exist are skipped, so re-importing the same batch is
// a no-op with all-zero counts. Per-record problems (bad fields, dangling
// references) are collected into the result instead of failing the batch;
// only storage failures abort and roll back.
type ImportService struct {
	repo repository.Repository
}

// NewImportService creates the bulk merge coordinator.
func NewImportService(repo repository.Repository) *ImportService {
	return &ImportService{repo: repo}
}

// ImportBatch inserts the batch in dependency order: categories, authors,
// publishers, genres, topics, then series, then books. This order means a
// book's references resolve against records inserted moments earlier in the
// same transaction.
func (s *ImportService) ImportBatch(ctx context.Context, batch *model.ImportBatch) (*model.ImportResult, error) {
	result := model.NewImportResult()

	err := s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		if err := s.importFlat(ctx, tx, result, model.KindCategory, batch.Categories,
			func(r model.ImportRecord) error {
				return tx.CreateCategory(ctx, &model.Category{ID: r.ID, Name: r.Name})
			}); err != nil {
			return err
		}
		if err := s.importFlat(ctx, tx, result, model.KindAuthor, batch.Authors,
			func(r model.ImportRecord) error {
				return tx.CreateAuthor(ctx, &model.Author{ID: r.ID, Name: r.Name})
			}); err != nil {
			return err
		}
		if err := s.importFlat(ctx, tx, result, model.KindPublisher, batch.Publishers,
			func(r model.ImportRecord) error {
				return tx.CreatePublisher(ctx, &model.Publisher{ID: r.ID, Name: r.Name})
			}); err != nil {
			return err
		}
		if err := s.importFlat(ctx, tx, result, model.KindGenre, batch.Genres,
			func(r model.ImportRecord) error {
				return tx.CreateGenre(ctx, &model.Genre{ID: r.ID, Name: r.Name})
			}); err != nil {
			return err
		}
		if err := s.importFlat(ctx, tx, result, model.KindTopic, batch.Topics,
			func(r model.ImportRecord) error {
				return tx.CreateTopic(ctx, &model.Topic{ID: r.ID, Name: r.Name})
			}); err != nil {
			return err
		}

		if err := s.importSeries(ctx, tx, result, batch.Series); err != nil {
			return err
		}
		if err := s.importBooks(ctx, tx, result, batch.Books); err != nil {
			return err
		}

		// Books that failed to import can leave their dependents with no
		// surviving references; sweep those away before committing so the
		// batch cannot introduce orphans.
		swept, err := sweepOrphans(ctx, tx)
		if err != nil {
			return err
		}
		recordSweep(result, swept)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for kind, n := range result.Counts {
		metrics.ImportedRecords.WithLabelValues(string(kind)).Add(float64(n))
	}

	log.Info().
		Int("inserted", totalOf(result.Counts)).
		Int("skipped", totalOf(result.Skipped)).
		Int("errors", len(result.Errors)).
		Msg("import batch merged")
	return result, nil
}

func (s *ImportService) importFlat(ctx context.Context, tx repository.Repository, result *model.ImportResult,
	kind model.EntityKind, records []model.ImportRecord, insert func(model.ImportRecord) error) error {

	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			result.AddIssue(kind, rec.ID, err.Error())
			continue
		}
		exists, err := tx.Exists(ctx, kind, rec.ID)
		if err != nil {
			return err
		}
		if exists {
			result.Skipped[kind]++
			continue
		}
		if err := insert(rec); err != nil {
			return err
		}
		result.Counts[kind]++
	}
	return nil
}

func (s *ImportService) importSeries(ctx context.Context, tx repository.Repository, result *model.ImportResult, records []model.ImportSeries) error {
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			result.AddIssue(model.KindSeries, rec.ID, err.Error())
			continue
		}
		exists, err := tx.Exists(ctx, model.KindSeries, rec.ID)
		if err != nil {
			return err
		}
		if exists {
			result.Skipped[model.KindSeries]++
			continue
		}
		if len(rec.AuthorIDs) == 0 {
			result.AddIssue(model.KindSeries, rec.ID,
				fmt.Sprintf("series %q has no author references", rec.Name))
			continue
		}
		if missing, err := s.firstMissing(ctx, tx, model.KindAuthor, rec.AuthorIDs); err != nil {
			return err
		} else if missing != nil {
			result.AddIssue(model.KindSeries, rec.ID,
				fmt.Sprintf("series %q references unknown author %s", rec.Name, missing))
			continue
		}

		series := &model.Series{ID: rec.ID, Name: rec.Name, AuthorIDs: rec.AuthorIDs}
		if err := tx.CreateSeries(ctx, series); err != nil {
			return err
		}
		result.Counts[model.KindSeries]++
	}
	return nil
}

func (s *ImportService) importBooks(ctx context.Context, tx repository.Repository, result *model.ImportResult, records []model.ImportBook) error {
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			result.AddIssue(model.KindBook, rec.ID, err.Error())
			continue
		}
		exists, err := tx.Exists(ctx, model.KindBook, rec.ID)
		if err != nil {
			return err
		}
		if exists {
			result.Skipped[model.KindBook]++
			continue
		}

		issue, err := s.checkBookRefs(ctx, tx, rec)
		if err != nil {
			return err
		}
		if issue != "" {
			result.AddIssue(model.KindBook, rec.ID, issue)
			continue
		}

		book := &model.Book{
			ID:             rec.ID,
			Title:          rec.Title,
			PublisherID:    rec.PublisherID,
			CategoryID:     rec.CategoryID,
			SeriesID:       rec.SeriesID,
			SeriesPosition: rec.SeriesPosition,
			AuthorIDs:      rec.AuthorIDs,
			GenreIDs:       rec.GenreIDs,
			TopicIDs:       rec.TopicIDs,
		}
		if err := tx.CreateBook(ctx, book); err != nil {
			return err
		}
		result.Counts[model.KindBook]++
	}
	return nil
}

// checkBookRefs resolves every reference before inserting. Reference checks
// run up front because a failed insert would abort the whole transaction.
func (s *ImportService) checkBookRefs(ctx context.Context, tx repository.Repository, rec model.ImportBook) (string, error) {
	exists, err := tx.Exists(ctx, model.KindPublisher, rec.PublisherID)
	if err != nil {
		return "", err
	}
	if !exists {
		return fmt.Sprintf("book %q references unknown publisher %s", rec.Title, rec.PublisherID), nil
	}

	exists, err = tx.Exists(ctx, model.KindCategory, rec.CategoryID)
	if err != nil {
		return "", err
	}
	if !exists {
		return fmt.Sprintf("book %q references unknown category %s", rec.Title, rec.CategoryID), nil
	}

	if rec.SeriesID != nil {
		exists, err = tx.Exists(ctx, model.KindSeries, *rec.SeriesID)
		if err != nil {
			return "", err
		}
		if !exists {
			return fmt.Sprintf("book %q references unknown series %s", rec.Title, *rec.SeriesID), nil
		}
	}

	refGroups := []struct {
		kind model.EntityKind
		ids  []uuid.UUID
	}{
		{model.KindAuthor, rec.AuthorIDs},
		{model.KindGenre, rec.GenreIDs},
		{model.KindTopic, rec.TopicIDs},
	}
	for _, group := range refGroups {
		missing, err := s.firstMissing(ctx, tx, group.kind, group.ids)
		if err != nil {
			return "", err
		}
		if missing != nil {
			return fmt.Sprintf("book %q references unknown %s %s", rec.Title, group.kind, missing), nil
		}
	}
	return "", nil
}

func (s *ImportService) firstMissing(ctx context.Context, tx repository.Repository, kind model.EntityKind, ids []uuid.UUID) (*uuid.UUID, error) {
	for _, id := range ids {
		exists, err := tx.Exists(ctx, kind, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			found := id
			return &found, nil
		}
	}
	return nil, nil
}

func recordSweep(result *model.ImportResult, swept model.CleanupResult) {
	for _, ref := range swept.DeletedAuthors {
		result.AddIssue(model.KindAuthor, ref.ID,
			fmt.Sprintf("author %q removed as an orphan after the merge", ref.Name))
	}
	for _, ref := range swept.DeletedPublishers {
		result.AddIssue(model.KindPublisher, ref.ID,
			fmt.Sprintf("publisher %q removed as an orphan after the merge", ref.Name))
	}
	for _, ref := range swept.DeletedSeries {
		result.AddIssue(model.KindSeries, ref.ID,
			fmt.Sprintf("series %q removed as an orphan after the merge", ref.Name))
	}
}

func totalOf(m map[model.EntityKind]int) int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}
