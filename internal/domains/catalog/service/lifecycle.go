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

// maxSweepPasses bounds the orphan sweep fixed-point loop. With the current
// relation catalog one pass suffices; the loop guards future relations.
const maxSweepPasses = 10

// LifecycleService executes mutations transactionally. Destructive
// operations consult the impact analyzer first and either block or, when the
// caller opted in, delete the newly-orphaned entities together with the
// primary mutation. Every multi-statement mutation runs inside one
// transaction: a failure mid-sequence leaves the store in its pre-operation
// state.
type LifecycleService struct {
	repo repository.Repository
}

// NewLifecycleService creates the enforcer over the given store.
func NewLifecycleService(repo repository.Repository) *LifecycleService {
	return &LifecycleService{repo: repo}
}

// =====================================================
// BOOK OPERATIONS
// =====================================================

// DeleteBook deletes the book and its link rows. If the deletion would
// orphan authors, the publisher, or the series, it fails with
// BlockedByInvariant unless cascadeOrphans is set, in which case the
// would-be orphans are deleted in the same transaction.
func (s *LifecycleService) DeleteBook(ctx context.Context, bookID uuid.UUID, cascadeOrphans bool) (*model.DeleteBookResponse, error) {
	var resp *model.DeleteBookResponse

	err := s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		book, err := tx.GetBook(ctx, bookID)
		if err != nil {
			return err
		}

		report, err := NewImpactAnalyzer(tx).CheckBookDeleteImpact(ctx, bookID)
		if err != nil {
			return err
		}

		if report.HasImpact && !cascadeOrphans {
			metrics.BlockedOperations.WithLabelValues("delete_book").Inc()
			return &model.BlockedByInvariantError{Op: "delete book", Violations: report.Violations()}
		}

		if err := tx.DeleteBook(ctx, bookID); err != nil {
			return err
		}

		deleted := []model.DeletedEntity{
			{Kind: model.KindBook, ID: book.ID, Name: book.Title},
		}
		cascaded, err := s.deleteReportedOrphans(ctx, tx, report)
		if err != nil {
			return err
		}
		deleted = append(deleted, cascaded...)

		resp = &model.DeleteBookResponse{Deleted: deleted}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("book_id", bookID.String()).
		Bool("cascade", cascadeOrphans).
		Int("deleted", len(resp.Deleted)).
		Msg("book deleted")
	return resp, nil
}

// UpdateBook applies the full proposed new state with replace-all-links
// semantics. Entities the edit would orphan (removed authors, the old
// publisher or series when changed) block the edit or, on cascade, are
// deleted in the same transaction as the field updates.
func (s *LifecycleService) UpdateBook(ctx context.Context, bookID uuid.UUID, req *model.UpdateBookRequest, cascadeOrphans bool) (*model.Book, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewValidationError("invalid book update", err)
	}

	var updated *model.Book
	err := s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		book, err := tx.GetBook(ctx, bookID)
		if err != nil {
			return err
		}

		if err := s.verifyBookRefs(ctx, tx, req.PublisherID, req.CategoryID, req.SeriesID,
			req.AuthorIDs, req.GenreIDs, req.TopicIDs); err != nil {
			return err
		}

		report, err := NewImpactAnalyzer(tx).CheckBookUpdateImpact(ctx, bookID, req)
		if err != nil {
			return err
		}

		if report.HasImpact && !cascadeOrphans {
			metrics.BlockedOperations.WithLabelValues("update_book").Inc()
			return &model.BlockedByInvariantError{Op: "update book", Violations: report.Violations()}
		}

		book.Title = req.Title
		book.PublisherID = req.PublisherID
		book.CategoryID = req.CategoryID
		book.SeriesID = req.SeriesID
		book.SeriesPosition = req.SeriesPosition
		book.AuthorIDs = req.AuthorIDs
		book.GenreIDs = req.GenreIDs
		book.TopicIDs = req.TopicIDs

		if err := tx.UpdateBook(ctx, book); err != nil {
			return err
		}

		if _, err := s.deleteReportedOrphans(ctx, tx, report); err != nil {
			return err
		}

		updated, err = tx.GetBook(ctx, bookID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("book_id", bookID.String()).Bool("cascade", cascadeOrphans).Msg("book updated")
	return updated, nil
}

// deleteReportedOrphans removes the entities a report identified, inside the
// caller's transaction, and returns them for confirmation messaging.
func (s *LifecycleService) deleteReportedOrphans(ctx context.Context, tx repository.Repository, report *model.BookImpactReport) ([]model.DeletedEntity, error) {
	if !report.HasImpact {
		return nil, nil
	}

	var deleted []model.DeletedEntity
	for _, ref := range report.OrphanedAuthors {
		if err := tx.DeleteAuthor(ctx, ref.ID); err != nil {
			return nil, err
		}
		metrics.CascadeDeletions.WithLabelValues(string(model.KindAuthor)).Inc()
		deleted = append(deleted, model.DeletedEntity{Kind: model.KindAuthor, ID: ref.ID, Name: ref.Name})
	}
	if ref := report.OrphanedPublisher; ref != nil {
		if err := tx.DeletePublisher(ctx, ref.ID); err != nil {
			return nil, err
		}
		metrics.CascadeDeletions.WithLabelValues(string(model.KindPublisher)).Inc()
		deleted = append(deleted, model.DeletedEntity{Kind: model.KindPublisher, ID: ref.ID, Name: ref.Name})
	}
	if ref := report.OrphanedSeries; ref != nil {
		if err := tx.DeleteSeries(ctx, ref.ID); err != nil {
			return nil, err
		}
		metrics.CascadeDeletions.WithLabelValues(string(model.KindSeries)).Inc()
		deleted = append(deleted, model.DeletedEntity{Kind: model.KindSeries, ID: ref.ID, Name: ref.Name})
	}
	return deleted, nil
}

// CreateBook creates a book together with any pending dependents named in
// the request (new authors, publisher, series), all in one transaction so
// the minimum-cardinality rules hold at commit.
func (s *LifecycleService) CreateBook(ctx context.Context, req *model.CreateBookRequest) (*model.Book, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewValidationError("invalid book", err)
	}

	var created *model.Book
	err := s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		if exists, err := tx.Exists(ctx, model.KindCategory, req.CategoryID); err != nil {
			return err
		} else if !exists {
			return model.NewValidationError(fmt.Sprintf("category %s does not exist", req.CategoryID), nil)
		}

		authorIDs := append([]uuid.UUID(nil), req.AuthorIDs...)
		for _, id := range authorIDs {
			if exists, err := tx.Exists(ctx, model.KindAuthor, id); err != nil {
				return err
			} else if !exists {
				return model.NewValidationError(fmt.Sprintf("author %s does not exist", id), nil)
			}
		}
		for _, name := range req.NewAuthorNames {
			author := &model.Author{ID: uuid.New(), Name: name}
			if err := tx.CreateAuthor(ctx, author); err != nil {
				return err
			}
			authorIDs = append(authorIDs, author.ID)
		}

		publisherID, err := s.resolvePublisher(ctx, tx, req)
		if err != nil {
			return err
		}

		seriesID, err := s.resolveSeries(ctx, tx, req, authorIDs)
		if err != nil {
			return err
		}

		for _, id := range req.GenreIDs {
			if exists, err := tx.Exists(ctx, model.KindGenre, id); err != nil {
				return err
			} else if !exists {
				return model.NewValidationError(fmt.Sprintf("genre %s does not exist", id), nil)
			}
		}
		for _, id := range req.TopicIDs {
			if exists, err := tx.Exists(ctx, model.KindTopic, id); err != nil {
				return err
			} else if !exists {
				return model.NewValidationError(fmt.Sprintf("topic %s does not exist", id), nil)
			}
		}

		book := &model.Book{
			ID:             uuid.New(),
			Title:          req.Title,
			PublisherID:    publisherID,
			CategoryID:     req.CategoryID,
			SeriesID:       seriesID,
			SeriesPosition: req.SeriesPosition,
			AuthorIDs:      authorIDs,
			GenreIDs:       req.GenreIDs,
			TopicIDs:       req.TopicIDs,
		}
		if err := tx.CreateBook(ctx, book); err != nil {
			return err
		}

		created, err = tx.GetBook(ctx, book.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("book_id", created.ID.String()).Str("title", created.Title).Msg("book created")
	return created, nil
}

func (s *LifecycleService) resolvePublisher(ctx context.Context, tx repository.Repository, req *model.CreateBookRequest) (uuid.UUID, error) {
	if req.PublisherID != nil {
		exists, err := tx.Exists(ctx, model.KindPublisher, *req.PublisherID)
		if err != nil {
			return uuid.Nil, err
		}
		if !exists {
			return uuid.Nil, model.NewValidationError(fmt.Sprintf("publisher %s does not exist", *req.PublisherID), nil)
		}
		return *req.PublisherID, nil
	}

	publisher := &model.Publisher{ID: uuid.New(), Name: *req.PublisherName}
	if err := tx.CreatePublisher(ctx, publisher); err != nil {
		return uuid.Nil, err
	}
	return publisher.ID, nil
}

func (s *LifecycleService) resolveSeries(ctx context.Context, tx repository.Repository, req *model.CreateBookRequest, authorIDs []uuid.UUID) (*uuid.UUID, error) {
	if req.SeriesID != nil {
		exists, err := tx.Exists(ctx, model.KindSeries, *req.SeriesID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, model.NewValidationError(fmt.Sprintf("series %s does not exist", *req.SeriesID), nil)
		}
		return req.SeriesID, nil
	}
	if req.SeriesName == nil {
		return nil, nil
	}

	// Series creation requires at least one author; a fresh series takes the
	// book's authors.
	if len(authorIDs) == 0 {
		return nil, model.NewValidationError("a new series requires the book to have at least one author", nil)
	}
	series := &model.Series{ID: uuid.New(), Name: *req.SeriesName, AuthorIDs: authorIDs}
	if err := tx.CreateSeries(ctx, series); err != nil {
		return nil, err
	}
	return &series.ID, nil
}

func (s *LifecycleService) verifyBookRefs(ctx context.Context, tx repository.Repository,
	publisherID, categoryID uuid.UUID, seriesID *uuid.UUID,
	authorIDs, genreIDs, topicIDs []uuid.UUID) error {

	checks := []struct {
		kind model.EntityKind
		ids  []uuid.UUID
	}{
		{model.KindPublisher, []uuid.UUID{publisherID}},
		{model.KindCategory, []uuid.UUID{categoryID}},
		{model.KindAuthor, authorIDs},
		{model.KindGenre, genreIDs},
		{model.KindTopic, topicIDs},
	}
	if seriesID != nil {
		checks = append(checks, struct {
			kind model.EntityKind
			ids  []uuid.UUID
		}{model.KindSeries, []uuid.UUID{*seriesID}})
	}

	for _, check := range checks {
		for _, id := range check.ids {
			exists, err := tx.Exists(ctx, check.kind, id)
			if err != nil {
				return err
			}
			if !exists {
				return model.NewValidationError(fmt.Sprintf("%s %s does not exist", check.kind, id), nil)
			}
		}
	}
	return nil
}

// =====================================================
// DEPENDENT ENTITY DELETES (never cascade)
// =====================================================

// DeleteAuthor removes an author. Blocked while any book links to the author
// or while the author is the sole author of any series; the caller must
// resolve the book-side links first. A direct delete never touches books.
func (s *LifecycleService) DeleteAuthor(ctx context.Context, authorID uuid.UUID) error {
	err := s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		author, err := tx.GetAuthor(ctx, authorID)
		if err != nil {
			return err
		}

		count, err := tx.CountBooksByAuthor(ctx, authorID)
		if err != nil {
			return err
		}

		report, err := NewImpactAnalyzer(tx).CheckAuthorDeleteImpact(ctx, authorID)
		if err != nil {
			return err
		}

		var violations []model.Violation
		if count > 0 {
			violations = append(violations, model.NewViolation(
				model.ViolationEntityHasBooks, model.KindAuthor, author.ID, author.Name,
				"author %q is linked to %d book(s); remove those links first", author.Name, count))
		}
		for _, ref := range report.SoleAuthorSeries {
			violations = append(violations, model.NewViolation(
				model.ViolationSoleSeriesAuthor, model.KindSeries, ref.ID, ref.Name,
				"author %q is the only author of series %q", author.Name, ref.Name))
		}
		if len(violations) > 0 {
			metrics.BlockedOperations.WithLabelValues("delete_author").Inc()
			return &model.BlockedByInvariantError{Op: "delete author", Violations: violations}
		}

		return tx.DeleteAuthor(ctx, authorID)
	})
	if err != nil {
		return err
	}

	log.Info().Str("author_id", authorID.String()).Msg("author deleted")
	return nil
}

// DeletePublisher removes a publisher; blocked while any book references it.
func (s *LifecycleService) DeletePublisher(ctx context.Context, publisherID uuid.UUID) error {
	err := s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		publisher, err := tx.GetPublisher(ctx, publisherID)
		if err != nil {
			return err
		}

		count, err := tx.CountBooksByPublisher(ctx, publisherID)
		if err != nil {
			return err
		}
		if count > 0 {
			metrics.BlockedOperations.WithLabelValues("delete_publisher").Inc()
			return &model.BlockedByInvariantError{Op: "delete publisher", Violations: []model.Violation{
				model.NewViolation(model.ViolationEntityHasBooks, model.KindPublisher,
					publisher.ID, publisher.Name,
					"publisher %q is referenced by %d book(s); reassign those books first", publisher.Name, count),
			}}
		}

		return tx.DeletePublisher(ctx, publisherID)
	})
	if err != nil {
		return err
	}

	log.Info().Str("publisher_id", publisherID.String()).Msg("publisher deleted")
	return nil
}

// DeleteSeries removes a series; blocked while any book belongs to it.
func (s *LifecycleService) DeleteSeries(ctx context.Context, seriesID uuid.UUID) error {
	err := s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		series, err := tx.GetSeries(ctx, seriesID)
		if err != nil {
			return err
		}

		count, err := tx.CountBooksBySeries(ctx, seriesID)
		if err != nil {
			return err
		}
		if count > 0 {
			metrics.BlockedOperations.WithLabelValues("delete_series").Inc()
			return &model.BlockedByInvariantError{Op: "delete series", Violations: []model.Violation{
				model.NewViolation(model.ViolationEntityHasBooks, model.KindSeries,
					series.ID, series.Name,
					"series %q still contains %d book(s); remove those books from the series first", series.Name, count),
			}}
		}

		return tx.DeleteSeries(ctx, seriesID)
	})
	if err != nil {
		return err
	}

	log.Info().Str("series_id", seriesID.String()).Msg("series deleted")
	return nil
}

// =====================================================
// ORPHAN SWEEP
// =====================================================

// CleanupOrphans discovers and deletes every orphan author, publisher, and
// series in one transaction, iterating until a pass removes nothing.
func (s *LifecycleService) CleanupOrphans(ctx context.Context) (*model.CleanupResult, error) {
	result := &model.CleanupResult{}

	err := s.repo.WithinTx(ctx, func(tx repository.Repository) error {
		swept, err := sweepOrphans(ctx, tx)
		if err != nil {
			return err
		}
		result.Merge(swept)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for range result.DeletedAuthors {
		metrics.OrphansRemoved.WithLabelValues(string(model.KindAuthor)).Inc()
	}
	for range result.DeletedPublishers {
		metrics.OrphansRemoved.WithLabelValues(string(model.KindPublisher)).Inc()
	}
	for range result.DeletedSeries {
		metrics.OrphansRemoved.WithLabelValues(string(model.KindSeries)).Inc()
	}

	log.Info().
		Int("authors", len(result.DeletedAuthors)).
		Int("publishers", len(result.DeletedPublishers)).
		Int("series", len(result.DeletedSeries)).
		Msg("orphan cleanup finished")
	return result, nil
}

// sweepOrphans runs orphan discovery and deletion to a fixed point inside
// the caller's transaction. Shared by CleanupOrphans and the bulk merge.
func sweepOrphans(ctx context.Context, tx repository.Repository) (model.CleanupResult, error) {
	var result model.CleanupResult

	for pass := 0; pass < maxSweepPasses; pass++ {
		removed, err := sweepOnce(ctx, tx)
		if err != nil {
			return model.CleanupResult{}, err
		}
		if removed.Empty() {
			break
		}
		result.Merge(removed)
	}
	return result, nil
}

func sweepOnce(ctx context.Context, tx repository.Repository) (model.CleanupResult, error) {
	var result model.CleanupResult

	authors, err := tx.ListOrphanAuthors(ctx)
	if err != nil {
		return result, err
	}
	publishers, err := tx.ListOrphanPublishers(ctx)
	if err != nil {
		return result, err
	}
	bookless, err := tx.ListOrphanSeries(ctx)
	if err != nil {
		return result, err
	}
	authorless, err := tx.ListSeriesWithoutAuthors(ctx)
	if err != nil {
		return result, err
	}

	// A series is an orphan when either minimum is unmet: zero books or zero
	// authors. Dedupe the two scans before deleting. An authorless series may
	// still have books; those are detached so they survive the delete.
	seriesSeen := make(map[uuid.UUID]struct{})
	var series []model.Series
	for _, s := range bookless {
		seriesSeen[s.ID] = struct{}{}
		series = append(series, s)
	}
	for _, s := range authorless {
		if _, ok := seriesSeen[s.ID]; ok {
			continue
		}
		seriesSeen[s.ID] = struct{}{}
		if err := tx.DetachSeries(ctx, s.ID); err != nil {
			return result, err
		}
		series = append(series, s)
	}

	for _, a := range authors {
		if err := tx.DeleteAuthor(ctx, a.ID); err != nil {
			return result, err
		}
		result.DeletedAuthors = append(result.DeletedAuthors, model.EntityRef{ID: a.ID, Name: a.Name})
	}
	for _, p := range publishers {
		if err := tx.DeletePublisher(ctx, p.ID); err != nil {
			return result, err
		}
		result.DeletedPublishers = append(result.DeletedPublishers, model.EntityRef{ID: p.ID, Name: p.Name})
	}
	for _, sr := range series {
		if err := tx.DeleteSeries(ctx, sr.ID); err != nil {
			return result, err
		}
		result.DeletedSeries = append(result.DeletedSeries, model.EntityRef{ID: sr.ID, Name: sr.Name})
	}
	return result, nil
}
