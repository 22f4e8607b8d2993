package database

import (
	"context"
	"fmt"
)

// schema is applied at startup. Junction tables carry composite primary
// keys: a book links to a given author, genre, or topic at most once.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id uuid PRIMARY KEY,
		name text NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS authors (
		id uuid PRIMARY KEY,
		name text NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS publishers (
		id uuid PRIMARY KEY,
		name text NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS genres (
		id uuid PRIMARY KEY,
		name text NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS topics (
		id uuid PRIMARY KEY,
		name text NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS series (
		id uuid PRIMARY KEY,
		name text NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id uuid PRIMARY KEY,
		title text NOT NULL,
		publisher_id uuid NOT NULL REFERENCES publishers(id),
		category_id uuid NOT NULL REFERENCES categories(id),
		series_id uuid REFERENCES series(id),
		series_position int,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS book_authors (
		book_id uuid NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		author_id uuid NOT NULL REFERENCES authors(id),
		PRIMARY KEY (book_id, author_id)
	)`,
	`CREATE TABLE IF NOT EXISTS book_genres (
		book_id uuid NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		genre_id uuid NOT NULL REFERENCES genres(id),
		PRIMARY KEY (book_id, genre_id)
	)`,
	`CREATE TABLE IF NOT EXISTS book_topics (
		book_id uuid NOT NULL REFERENCES books(id) ON DELETE CASCADE,
		topic_id uuid NOT NULL REFERENCES topics(id),
		PRIMARY KEY (book_id, topic_id)
	)`,
	`CREATE TABLE IF NOT EXISTS series_authors (
		series_id uuid NOT NULL REFERENCES series(id) ON DELETE CASCADE,
		author_id uuid NOT NULL REFERENCES authors(id),
		PRIMARY KEY (series_id, author_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_books_publisher ON books(publisher_id)`,
	`CREATE INDEX IF NOT EXISTS idx_books_category ON books(category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_books_series ON books(series_id)`,
	`CREATE INDEX IF NOT EXISTS idx_book_authors_author ON book_authors(author_id)`,
	`CREATE INDEX IF NOT EXISTS idx_series_authors_author ON series_authors(author_id)`,
}

// Migrate applies the schema. Statements are idempotent, so running at every
// startup is safe.
func (db *PostgresDB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
