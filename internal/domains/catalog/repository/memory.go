package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"librarium/internal/domains/catalog/model"
)

// MemoryRepository is a deterministic in-memory Repository. It backs the
// service tests and gives WithinTx real rollback semantics: the transaction
// works on a deep copy of the state and the copy is swapped in only on
// commit, so a mid-sequence failure leaves the store untouched.
type MemoryRepository struct {
	mu    sync.Mutex
	state *memoryState
	inTx  bool
}

type memoryState struct {
	books      map[uuid.UUID]*model.Book
	authors    map[uuid.UUID]*model.Author
	publishers map[uuid.UUID]*model.Publisher
	series     map[uuid.UUID]*model.Series
	categories map[uuid.UUID]*model.Category
	genres     map[uuid.UUID]*model.Genre
	topics     map[uuid.UUID]*model.Topic
}

// NewMemoryRepository returns an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{state: newMemoryState()}
}

func newMemoryState() *memoryState {
	return &memoryState{
		books:      make(map[uuid.UUID]*model.Book),
		authors:    make(map[uuid.UUID]*model.Author),
		publishers: make(map[uuid.UUID]*model.Publisher),
		series:     make(map[uuid.UUID]*model.Series),
		categories: make(map[uuid.UUID]*model.Category),
		genres:     make(map[uuid.UUID]*model.Genre),
		topics:     make(map[uuid.UUID]*model.Topic),
	}
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState()
	for id, b := range s.books {
		cp := *b
		cp.AuthorIDs = append([]uuid.UUID(nil), b.AuthorIDs...)
		cp.GenreIDs = append([]uuid.UUID(nil), b.GenreIDs...)
		cp.TopicIDs = append([]uuid.UUID(nil), b.TopicIDs...)
		if b.SeriesID != nil {
			sid := *b.SeriesID
			cp.SeriesID = &sid
		}
		if b.SeriesPosition != nil {
			pos := *b.SeriesPosition
			cp.SeriesPosition = &pos
		}
		c.books[id] = &cp
	}
	for id, a := range s.authors {
		cp := *a
		c.authors[id] = &cp
	}
	for id, p := range s.publishers {
		cp := *p
		c.publishers[id] = &cp
	}
	for id, sr := range s.series {
		cp := *sr
		cp.AuthorIDs = append([]uuid.UUID(nil), sr.AuthorIDs...)
		c.series[id] = &cp
	}
	for id, ct := range s.categories {
		cp := *ct
		c.categories[id] = &cp
	}
	for id, g := range s.genres {
		cp := *g
		c.genres[id] = &cp
	}
	for id, t := range s.topics {
		cp := *t
		c.topics[id] = &cp
	}
	return c
}

// WithinTx clones the state, runs fn against the clone, and commits by
// swapping the clone in. Nested calls reuse the open transaction.
func (r *MemoryRepository) WithinTx(ctx context.Context, fn func(tx Repository) error) error {
	if r.inTx {
		return fn(r)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	txRepo := &MemoryRepository{state: r.state.clone(), inTx: true}
	if err := fn(txRepo); err != nil {
		return err
	}
	r.state = txRepo.state
	return nil
}

// =====================================================
// POINT LOOKUPS
// =====================================================

func (r *MemoryRepository) GetBook(ctx context.Context, id uuid.UUID) (*model.Book, error) {
	b, ok := r.state.books[id]
	if !ok {
		return nil, model.NewNotFound(model.KindBook, id)
	}
	cp := *b
	cp.AuthorIDs = append([]uuid.UUID(nil), b.AuthorIDs...)
	cp.GenreIDs = append([]uuid.UUID(nil), b.GenreIDs...)
	cp.TopicIDs = append([]uuid.UUID(nil), b.TopicIDs...)
	return &cp, nil
}

func (r *MemoryRepository) GetAuthor(ctx context.Context, id uuid.UUID) (*model.Author, error) {
	a, ok := r.state.authors[id]
	if !ok {
		return nil, model.NewNotFound(model.KindAuthor, id)
	}
	cp := *a
	return &cp, nil
}

func (r *MemoryRepository) GetPublisher(ctx context.Context, id uuid.UUID) (*model.Publisher, error) {
	p, ok := r.state.publishers[id]
	if !ok {
		return nil, model.NewNotFound(model.KindPublisher, id)
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryRepository) GetSeries(ctx context.Context, id uuid.UUID) (*model.Series, error) {
	s, ok := r.state.series[id]
	if !ok {
		return nil, model.NewNotFound(model.KindSeries, id)
	}
	cp := *s
	cp.AuthorIDs = append([]uuid.UUID(nil), s.AuthorIDs...)
	return &cp, nil
}

func (r *MemoryRepository) GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	c, ok := r.state.categories[id]
	if !ok {
		return nil, model.NewNotFound(model.KindCategory, id)
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryRepository) GetGenre(ctx context.Context, id uuid.UUID) (*model.Genre, error) {
	g, ok := r.state.genres[id]
	if !ok {
		return nil, model.NewNotFound(model.KindGenre, id)
	}
	cp := *g
	return &cp, nil
}

func (r *MemoryRepository) GetTopic(ctx context.Context, id uuid.UUID) (*model.Topic, error) {
	t, ok := r.state.topics[id]
	if !ok {
		return nil, model.NewNotFound(model.KindTopic, id)
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryRepository) Exists(ctx context.Context, kind model.EntityKind, id uuid.UUID) (bool, error) {
	switch kind {
	case model.KindBook:
		_, ok := r.state.books[id]
		return ok, nil
	case model.KindAuthor:
		_, ok := r.state.authors[id]
		return ok, nil
	case model.KindPublisher:
		_, ok := r.state.publishers[id]
		return ok, nil
	case model.KindSeries:
		_, ok := r.state.series[id]
		return ok, nil
	case model.KindCategory:
		_, ok := r.state.categories[id]
		return ok, nil
	case model.KindGenre:
		_, ok := r.state.genres[id]
		return ok, nil
	case model.KindTopic:
		_, ok := r.state.topics[id]
		return ok, nil
	}
	return false, nil
}

// =====================================================
// LISTINGS (sorted by name for determinism)
// =====================================================

func (r *MemoryRepository) ListBooks(ctx context.Context) ([]model.Book, error) {
	out := make([]model.Book, 0, len(r.state.books))
	for id := range r.state.books {
		b, _ := r.GetBook(ctx, id)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return lessByName(out[i].Title, out[i].ID, out[j].Title, out[j].ID) })
	return out, nil
}

func (r *MemoryRepository) ListAuthors(ctx context.Context) ([]model.Author, error) {
	out := make([]model.Author, 0, len(r.state.authors))
	for _, a := range r.state.authors {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return lessByName(out[i].Name, out[i].ID, out[j].Name, out[j].ID) })
	return out, nil
}

func (r *MemoryRepository) ListPublishers(ctx context.Context) ([]model.Publisher, error) {
	out := make([]model.Publisher, 0, len(r.state.publishers))
	for _, p := range r.state.publishers {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return lessByName(out[i].Name, out[i].ID, out[j].Name, out[j].ID) })
	return out, nil
}

func (r *MemoryRepository) ListSeries(ctx context.Context) ([]model.Series, error) {
	out := make([]model.Series, 0, len(r.state.series))
	for id := range r.state.series {
		s, _ := r.GetSeries(ctx, id)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return lessByName(out[i].Name, out[i].ID, out[j].Name, out[j].ID) })
	return out, nil
}

func (r *MemoryRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	out := make([]model.Category, 0, len(r.state.categories))
	for _, c := range r.state.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return lessByName(out[i].Name, out[i].ID, out[j].Name, out[j].ID) })
	return out, nil
}

func (r *MemoryRepository) ListGenres(ctx context.Context) ([]model.Genre, error) {
	out := make([]model.Genre, 0, len(r.state.genres))
	for _, g := range r.state.genres {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return lessByName(out[i].Name, out[i].ID, out[j].Name, out[j].ID) })
	return out, nil
}

func (r *MemoryRepository) ListTopics(ctx context.Context) ([]model.Topic, error) {
	out := make([]model.Topic, 0, len(r.state.topics))
	for _, t := range r.state.topics {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return lessByName(out[i].Name, out[i].ID, out[j].Name, out[j].ID) })
	return out, nil
}

// lessByName matches the collation the SQL store sorts with: names compare
// case-insensitively, id breaks ties.
func lessByName(nameI string, idI uuid.UUID, nameJ string, idJ uuid.UUID) bool {
	li, lj := strings.ToLower(nameI), strings.ToLower(nameJ)
	if li != lj {
		return li < lj
	}
	return idI.String() < idJ.String()
}

// =====================================================
// COUNTS AND SCANS
// =====================================================

func (r *MemoryRepository) CountBooksByAuthor(ctx context.Context, authorID uuid.UUID) (int, error) {
	count := 0
	for _, b := range r.state.books {
		if b.HasAuthor(authorID) {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) CountBooksByPublisher(ctx context.Context, publisherID uuid.UUID) (int, error) {
	count := 0
	for _, b := range r.state.books {
		if b.PublisherID == publisherID {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) CountBooksBySeries(ctx context.Context, seriesID uuid.UUID) (int, error) {
	count := 0
	for _, b := range r.state.books {
		if b.SeriesID != nil && *b.SeriesID == seriesID {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) CountAuthorsBySeries(ctx context.Context, seriesID uuid.UUID) (int, error) {
	s, ok := r.state.series[seriesID]
	if !ok {
		return 0, model.NewNotFound(model.KindSeries, seriesID)
	}
	return len(s.AuthorIDs), nil
}

func (r *MemoryRepository) ListSeriesByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Series, error) {
	var out []model.Series
	for id, s := range r.state.series {
		for _, aid := range s.AuthorIDs {
			if aid == authorID {
				cp, _ := r.GetSeries(ctx, id)
				out = append(out, *cp)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessByName(out[i].Name, out[i].ID, out[j].Name, out[j].ID) })
	return out, nil
}

func (r *MemoryRepository) ListOrphanAuthors(ctx context.Context) ([]model.Author, error) {
	var out []model.Author
	for id, a := range r.state.authors {
		count, _ := r.CountBooksByAuthor(ctx, id)
		if count == 0 {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessByName(out[i].Name, out[i].ID, out[j].Name, out[j].ID) })
	return out, nil
}

func (r *MemoryRepository) ListOrphanPublishers(ctx context.Context) ([]model.Publisher, error) {
	var out []model.Publisher
	for id, p := range r.state.publishers {
		count, _ := r.CountBooksByPublisher(ctx, id)
		if count == 0 {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessByName(out[i].Name, out[i].ID, out[j].Name, out[j].ID) })
	return out, nil
}

func (r *MemoryRepository) ListOrphanSeries(ctx context.Context) ([]model.Series, error) {
	var out []model.Series
	for id := range r.state.series {
		count, _ := r.CountBooksBySeries(ctx, id)
		if count == 0 {
			cp, _ := r.GetSeries(ctx, id)
			out = append(out, *cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessByName(out[i].Name, out[i].ID, out[j].Name, out[j].ID) })
	return out, nil
}

func (r *MemoryRepository) ListSeriesWithoutAuthors(ctx context.Context) ([]model.Series, error) {
	var out []model.Series
	for id, s := range r.state.series {
		if len(s.AuthorIDs) == 0 {
			cp, _ := r.GetSeries(ctx, id)
			out = append(out, *cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessByName(out[i].Name, out[i].ID, out[j].Name, out[j].ID) })
	return out, nil
}

func (r *MemoryRepository) ListBooksWithMissingPublisher(ctx context.Context) ([]model.Book, error) {
	var out []model.Book
	for id, b := range r.state.books {
		if _, ok := r.state.publishers[b.PublisherID]; !ok {
			cp, _ := r.GetBook(ctx, id)
			out = append(out, *cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessByName(out[i].Title, out[i].ID, out[j].Title, out[j].ID) })
	return out, nil
}

func (r *MemoryRepository) ListBooksWithMissingCategory(ctx context.Context) ([]model.Book, error) {
	var out []model.Book
	for id, b := range r.state.books {
		if _, ok := r.state.categories[b.CategoryID]; !ok {
			cp, _ := r.GetBook(ctx, id)
			out = append(out, *cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessByName(out[i].Title, out[i].ID, out[j].Title, out[j].ID) })
	return out, nil
}

// =====================================================
// WRITES
// =====================================================

func (r *MemoryRepository) CreateBook(ctx context.Context, book *model.Book) error {
	if _, exists := r.state.books[book.ID]; exists {
		return model.NewStorageError("create book", errDuplicate(book.ID))
	}
	now := time.Now()
	book.CreatedAt = now
	book.UpdatedAt = now
	cp := *book
	// The SQL junction tables have composite primary keys, so duplicate
	// link ids collapse here too.
	cp.AuthorIDs = dedupeIDs(book.AuthorIDs)
	cp.GenreIDs = dedupeIDs(book.GenreIDs)
	cp.TopicIDs = dedupeIDs(book.TopicIDs)
	r.state.books[book.ID] = &cp
	return nil
}

func (r *MemoryRepository) UpdateBook(ctx context.Context, book *model.Book) error {
	existing, ok := r.state.books[book.ID]
	if !ok {
		return model.NewNotFound(model.KindBook, book.ID)
	}
	book.CreatedAt = existing.CreatedAt
	book.UpdatedAt = time.Now()
	cp := *book
	cp.AuthorIDs = dedupeIDs(book.AuthorIDs)
	cp.GenreIDs = dedupeIDs(book.GenreIDs)
	cp.TopicIDs = dedupeIDs(book.TopicIDs)
	r.state.books[book.ID] = &cp
	return nil
}

func (r *MemoryRepository) DeleteBook(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.state.books[id]; !ok {
		return model.NewNotFound(model.KindBook, id)
	}
	delete(r.state.books, id)
	return nil
}

func (r *MemoryRepository) CreateAuthor(ctx context.Context, author *model.Author) error {
	if _, exists := r.state.authors[author.ID]; exists {
		return model.NewStorageError("create author", errDuplicate(author.ID))
	}
	now := time.Now()
	author.CreatedAt = now
	author.UpdatedAt = now
	cp := *author
	r.state.authors[author.ID] = &cp
	return nil
}

func (r *MemoryRepository) CreatePublisher(ctx context.Context, publisher *model.Publisher) error {
	if _, exists := r.state.publishers[publisher.ID]; exists {
		return model.NewStorageError("create publisher", errDuplicate(publisher.ID))
	}
	now := time.Now()
	publisher.CreatedAt = now
	publisher.UpdatedAt = now
	cp := *publisher
	r.state.publishers[publisher.ID] = &cp
	return nil
}

func (r *MemoryRepository) CreateSeries(ctx context.Context, series *model.Series) error {
	if _, exists := r.state.series[series.ID]; exists {
		return model.NewStorageError("create series", errDuplicate(series.ID))
	}
	now := time.Now()
	series.CreatedAt = now
	series.UpdatedAt = now
	cp := *series
	cp.AuthorIDs = dedupeIDs(series.AuthorIDs)
	r.state.series[series.ID] = &cp
	return nil
}

func (r *MemoryRepository) CreateCategory(ctx context.Context, category *model.Category) error {
	if _, exists := r.state.categories[category.ID]; exists {
		return model.NewStorageError("create category", errDuplicate(category.ID))
	}
	now := time.Now()
	category.CreatedAt = now
	category.UpdatedAt = now
	cp := *category
	r.state.categories[category.ID] = &cp
	return nil
}

func (r *MemoryRepository) CreateGenre(ctx context.Context, genre *model.Genre) error {
	if _, exists := r.state.genres[genre.ID]; exists {
		return model.NewStorageError("create genre", errDuplicate(genre.ID))
	}
	now := time.Now()
	genre.CreatedAt = now
	genre.UpdatedAt = now
	cp := *genre
	r.state.genres[genre.ID] = &cp
	return nil
}

func (r *MemoryRepository) CreateTopic(ctx context.Context, topic *model.Topic) error {
	if _, exists := r.state.topics[topic.ID]; exists {
		return model.NewStorageError("create topic", errDuplicate(topic.ID))
	}
	now := time.Now()
	topic.CreatedAt = now
	topic.UpdatedAt = now
	cp := *topic
	r.state.topics[topic.ID] = &cp
	return nil
}

// DeleteAuthor removes the author row and its series_authors rows.
func (r *MemoryRepository) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.state.authors[id]; !ok {
		return model.NewNotFound(model.KindAuthor, id)
	}
	delete(r.state.authors, id)
	for _, s := range r.state.series {
		s.AuthorIDs = removeID(s.AuthorIDs, id)
	}
	return nil
}

func (r *MemoryRepository) DeletePublisher(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.state.publishers[id]; !ok {
		return model.NewNotFound(model.KindPublisher, id)
	}
	delete(r.state.publishers, id)
	return nil
}

// DeleteSeries removes the series row and its series_authors rows; books are
// never touched (callers guarantee no book still references the series).
func (r *MemoryRepository) DeleteSeries(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.state.series[id]; !ok {
		return model.NewNotFound(model.KindSeries, id)
	}
	delete(r.state.series, id)
	return nil
}

func (r *MemoryRepository) DetachSeries(ctx context.Context, seriesID uuid.UUID) error {
	for _, b := range r.state.books {
		if b.SeriesID != nil && *b.SeriesID == seriesID {
			b.SeriesID = nil
			b.SeriesPosition = nil
		}
	}
	return nil
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func removeID(ids []uuid.UUID, target uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

type duplicateIDError uuid.UUID

func errDuplicate(id uuid.UUID) error { return duplicateIDError(id) }

func (e duplicateIDError) Error() string {
	return "duplicate id " + uuid.UUID(e).String()
}
