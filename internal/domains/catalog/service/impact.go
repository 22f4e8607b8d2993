package service

import (
	"context"

	"github.com/google/uuid"

	"librarium/internal/domains/catalog/model"
	"librarium/internal/domains/catalog/relations"
	"librarium/internal/domains/catalog/repository"
)

// ImpactAnalyzer computes which entities a proposed mutation would orphan,
// without mutating anything. It reads through whatever repository it is
// given, so an analyzer built over a transaction-bound repository sees the
// transaction snapshot. It reports and never blocks; converting a report
// into a blocking error is the lifecycle service's job.
type ImpactAnalyzer struct {
	repo repository.Repository
}

// NewImpactAnalyzer creates an analyzer over the given store view.
func NewImpactAnalyzer(repo repository.Repository) *ImpactAnalyzer {
	return &ImpactAnalyzer{repo: repo}
}

// CheckBookDeleteImpact reports the entities that would fall below their
// minimum if the book were deleted. Counts are evaluated with the candidate
// book still present, so the threshold is exact equality with 1: the book
// being deleted is itself one of the links.
func (a *ImpactAnalyzer) CheckBookDeleteImpact(ctx context.Context, bookID uuid.UUID) (*model.BookImpactReport, error) {
	book, err := a.repo.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return a.bookRemovalImpact(ctx, book, nil)
}

// CheckBookUpdateImpact reports orphan risk for an in-place edit: authors
// the new state drops, and the old publisher/series when the field actually
// changes. An unchanged field carries no risk even at count 1, since nothing
// is being removed from it.
func (a *ImpactAnalyzer) CheckBookUpdateImpact(ctx context.Context, bookID uuid.UUID, proposed *model.UpdateBookRequest) (*model.BookImpactReport, error) {
	book, err := a.repo.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return a.bookRemovalImpact(ctx, book, proposed)
}

// bookRemovalImpact is the single counting pass behind both the delete and
// update previews. proposed == nil means full removal (delete).
func (a *ImpactAnalyzer) bookRemovalImpact(ctx context.Context, book *model.Book, proposed *model.UpdateBookRequest) (*model.BookImpactReport, error) {
	report := &model.BookImpactReport{}

	for _, authorID := range book.AuthorIDs {
		if proposed != nil && proposed.HasAuthor(authorID) {
			continue
		}
		count, err := a.repo.CountBooksByAuthor(ctx, authorID)
		if err != nil {
			return nil, err
		}
		if relations.RequiresBacklink(model.KindAuthor) && count == 1 {
			author, err := a.repo.GetAuthor(ctx, authorID)
			if err != nil {
				return nil, err
			}
			report.OrphanedAuthors = append(report.OrphanedAuthors,
				model.EntityRef{ID: author.ID, Name: author.Name})
		}
	}

	publisherRemoved := proposed == nil || proposed.PublisherID != book.PublisherID
	if publisherRemoved {
		count, err := a.repo.CountBooksByPublisher(ctx, book.PublisherID)
		if err != nil {
			return nil, err
		}
		if relations.RequiresBacklink(model.KindPublisher) && count == 1 {
			publisher, err := a.repo.GetPublisher(ctx, book.PublisherID)
			if err != nil {
				return nil, err
			}
			report.OrphanedPublisher = &model.EntityRef{ID: publisher.ID, Name: publisher.Name}
		}
	}

	if book.HasSeries() {
		seriesRemoved := proposed == nil ||
			proposed.SeriesID == nil || *proposed.SeriesID != *book.SeriesID
		if seriesRemoved {
			count, err := a.repo.CountBooksBySeries(ctx, *book.SeriesID)
			if err != nil {
				return nil, err
			}
			if relations.RequiresBacklink(model.KindSeries) && count == 1 {
				series, err := a.repo.GetSeries(ctx, *book.SeriesID)
				if err != nil {
					return nil, err
				}
				report.OrphanedSeries = &model.EntityRef{ID: series.ID, Name: series.Name}
			}
		}
	}

	report.HasImpact = len(report.OrphanedAuthors) > 0 ||
		report.OrphanedPublisher != nil ||
		report.OrphanedSeries != nil
	return report, nil
}

// CheckAuthorDeleteImpact returns every series whose author set would become
// empty if this author were deleted. Independent of the author's book count:
// an author with zero books can still be the sole author of a series, so the
// check is always performed.
func (a *ImpactAnalyzer) CheckAuthorDeleteImpact(ctx context.Context, authorID uuid.UUID) (*model.AuthorImpactReport, error) {
	if _, err := a.repo.GetAuthor(ctx, authorID); err != nil {
		return nil, err
	}

	series, err := a.repo.ListSeriesByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}

	report := &model.AuthorImpactReport{}
	for _, s := range series {
		count, err := a.repo.CountAuthorsBySeries(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		if count == 1 {
			report.SoleAuthorSeries = append(report.SoleAuthorSeries,
				model.EntityRef{ID: s.ID, Name: s.Name})
		}
	}
	report.HasImpact = len(report.SoleAuthorSeries) > 0
	return report, nil
}

// IntegrityCheck scans the whole graph for invariant violations: orphan
// authors/publishers/series, series with no authors, and books whose
// publisher or category foreign key does not resolve. Diagnostic only.
func (a *ImpactAnalyzer) IntegrityCheck(ctx context.Context) (*model.IntegrityReport, error) {
	report := &model.IntegrityReport{
		Violations:    []model.Violation{},
		SummaryCounts: make(map[model.ViolationType]int),
	}

	orphanAuthors, err := a.repo.ListOrphanAuthors(ctx)
	if err != nil {
		return nil, err
	}
	for _, author := range orphanAuthors {
		report.Violations = append(report.Violations, model.NewViolation(
			model.ViolationOrphanAuthor, model.KindAuthor, author.ID, author.Name,
			"author %q has no linked books", author.Name))
	}

	orphanPublishers, err := a.repo.ListOrphanPublishers(ctx)
	if err != nil {
		return nil, err
	}
	for _, publisher := range orphanPublishers {
		report.Violations = append(report.Violations, model.NewViolation(
			model.ViolationOrphanPublisher, model.KindPublisher, publisher.ID, publisher.Name,
			"publisher %q has no linked books", publisher.Name))
	}

	orphanSeries, err := a.repo.ListOrphanSeries(ctx)
	if err != nil {
		return nil, err
	}
	for _, series := range orphanSeries {
		report.Violations = append(report.Violations, model.NewViolation(
			model.ViolationOrphanSeries, model.KindSeries, series.ID, series.Name,
			"series %q has no linked books", series.Name))
	}

	authorlessSeries, err := a.repo.ListSeriesWithoutAuthors(ctx)
	if err != nil {
		return nil, err
	}
	for _, series := range authorlessSeries {
		report.Violations = append(report.Violations, model.NewViolation(
			model.ViolationSeriesWithoutAuthors, model.KindSeries, series.ID, series.Name,
			"series %q has no linked authors", series.Name))
	}

	booksNoPublisher, err := a.repo.ListBooksWithMissingPublisher(ctx)
	if err != nil {
		return nil, err
	}
	for _, book := range booksNoPublisher {
		report.Violations = append(report.Violations, model.NewViolation(
			model.ViolationBookWithoutPublisher, model.KindBook, book.ID, book.Title,
			"book %q references publisher %s which does not exist", book.Title, book.PublisherID))
	}

	booksNoCategory, err := a.repo.ListBooksWithMissingCategory(ctx)
	if err != nil {
		return nil, err
	}
	for _, book := range booksNoCategory {
		report.Violations = append(report.Violations, model.NewViolation(
			model.ViolationBookWithoutCategory, model.KindBook, book.ID, book.Title,
			"book %q references category %s which does not exist", book.Title, book.CategoryID))
	}

	for _, v := range report.Violations {
		report.SummaryCounts[v.Type]++
	}
	report.IsValid = len(report.Violations) == 0
	return report, nil
}
