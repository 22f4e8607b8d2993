// Package relations declares every entity-to-entity relationship in the
// catalog, its cardinality, and its cascade behavior on removal. It is a
// static table; the impact analyzer and the lifecycle enforcer both consume
// it and it never changes at runtime.
package relations

import "librarium/internal/domains/catalog/model"

// Cardinality classifies one relationship edge.
type Cardinality string

const (
	// RequiredExactlyOne: the source row holds a foreign key that must
	// always resolve (book -> publisher, book -> category).
	RequiredExactlyOne Cardinality = "required-exactly-one"

	// RequiredMinOne: the source entity may not exist with zero links to
	// the target (author -> book, publisher -> book, series -> book,
	// series -> author).
	RequiredMinOne Cardinality = "required-min-one"

	// OptionalMany: zero links is a legitimate state.
	OptionalMany Cardinality = "optional-many"
)

// Rule describes the (source, target) edge. Junction names the many-to-many
// table when one exists; empty means the edge is a plain foreign key.
type Rule struct {
	Source      model.EntityKind
	Target      model.EntityKind
	Cardinality Cardinality
	Junction    string
}

// Junction table identities.
const (
	JunctionBookAuthors   = "book_authors"
	JunctionBookGenres    = "book_genres"
	JunctionBookTopics    = "book_topics"
	JunctionSeriesAuthors = "series_authors"
)

// catalog is the full relationship table. Ordering is not significant.
var catalog = []Rule{
	{Source: model.KindBook, Target: model.KindPublisher, Cardinality: RequiredExactlyOne},
	{Source: model.KindBook, Target: model.KindCategory, Cardinality: RequiredExactlyOne},
	{Source: model.KindBook, Target: model.KindSeries, Cardinality: OptionalMany},
	{Source: model.KindBook, Target: model.KindAuthor, Cardinality: OptionalMany, Junction: JunctionBookAuthors},
	{Source: model.KindBook, Target: model.KindGenre, Cardinality: OptionalMany, Junction: JunctionBookGenres},
	{Source: model.KindBook, Target: model.KindTopic, Cardinality: OptionalMany, Junction: JunctionBookTopics},

	{Source: model.KindAuthor, Target: model.KindBook, Cardinality: RequiredMinOne, Junction: JunctionBookAuthors},
	{Source: model.KindPublisher, Target: model.KindBook, Cardinality: RequiredMinOne},
	{Source: model.KindSeries, Target: model.KindBook, Cardinality: RequiredMinOne},
	{Source: model.KindSeries, Target: model.KindAuthor, Cardinality: RequiredMinOne, Junction: JunctionSeriesAuthors},

	{Source: model.KindCategory, Target: model.KindBook, Cardinality: OptionalMany},
	{Source: model.KindGenre, Target: model.KindBook, Cardinality: OptionalMany, Junction: JunctionBookGenres},
	{Source: model.KindTopic, Target: model.KindBook, Cardinality: OptionalMany, Junction: JunctionBookTopics},
}

// Lookup returns the rule for the (source, target) pair.
func Lookup(source, target model.EntityKind) (Rule, bool) {
	for _, r := range catalog {
		if r.Source == source && r.Target == target {
			return r, true
		}
	}
	return Rule{}, false
}

// RequiresBacklink reports whether the kind carries any required-min-one
// rule, i.e. whether a zero-link instance of it is an orphan.
func RequiresBacklink(kind model.EntityKind) bool {
	for _, r := range catalog {
		if r.Source == kind && r.Cardinality == RequiredMinOne {
			return true
		}
	}
	return false
}

// MinimumSatisfied reports whether linkedCount meets the kind's minimum.
// Trivially linkedCount >= 1 for required-min-one kinds and true otherwise.
func MinimumSatisfied(kind model.EntityKind, linkedCount int) bool {
	if !RequiresBacklink(kind) {
		return true
	}
	return linkedCount >= 1
}
