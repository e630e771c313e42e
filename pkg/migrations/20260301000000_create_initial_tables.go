package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE roles (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT ''
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_roles_name ON roles (name)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				username TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				last_name TEXT NOT NULL DEFAULT '',
				first_name TEXT NOT NULL DEFAULT '',
				middle_name TEXT,
				role_id INTEGER REFERENCES roles (id) NOT NULL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		// Case-insensitive unique usernames
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_users_username ON users (username COLLATE NOCASE)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE covers (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				filename TEXT NOT NULL,
				mimetype TEXT NOT NULL,
				md5_hash TEXT NOT NULL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		// The hash is the dedup key: one row per distinct file content.
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_covers_md5_hash ON covers (md5_hash)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE books (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				title TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				year INTEGER NOT NULL,
				publisher TEXT NOT NULL DEFAULT '',
				author TEXT NOT NULL DEFAULT '',
				pages INTEGER NOT NULL,
				cover_id INTEGER REFERENCES covers (id)
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_books_year ON books (year DESC, id DESC)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE genres (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_genres_name ON genres (name COLLATE NOCASE)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE book_genres (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				book_id INTEGER REFERENCES books (id) NOT NULL,
				genre_id INTEGER REFERENCES genres (id) NOT NULL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_book_genres_book_id_genre_id ON book_genres (book_id, genre_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE reviews (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				text TEXT NOT NULL,
				rating INTEGER NOT NULL,
				user_id INTEGER REFERENCES users (id) NOT NULL,
				book_id INTEGER REFERENCES books (id) NOT NULL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		// One review per (user, book) pair.
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_reviews_user_id_book_id ON reviews (user_id, book_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_reviews_book_id ON reviews (book_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE collections (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL,
				user_id INTEGER REFERENCES users (id) NOT NULL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_collections_user_id ON collections (user_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE collection_books (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				collection_id INTEGER REFERENCES collections (id) NOT NULL,
				book_id INTEGER REFERENCES books (id) NOT NULL,
				added_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_collection_books_collection_id_book_id ON collection_books (collection_id, book_id)`)
		return errors.WithStack(err)
	}
	down := func(_ context.Context, db *bun.DB) error {
		for _, table := range []string{
			"collection_books",
			"collections",
			"reviews",
			"book_genres",
			"genres",
			"books",
			"covers",
			"users",
			"roles",
		} {
			_, err := db.Exec("DROP TABLE IF EXISTS " + table)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
