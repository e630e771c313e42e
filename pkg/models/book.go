package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID          int       `bun:",pk,nullzero" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Title       string    `bun:",nullzero" json:"title"`
	Description string    `json:"description"`
	Year        int       `json:"year"`
	Publisher   string    `json:"publisher"`
	Author      string    `json:"author"`
	Pages       int       `json:"pages"`
	CoverID     *int      `json:"cover_id,omitempty"`

	// Relations
	Cover  *Cover   `bun:"rel:belongs-to,join:cover_id=id" json:"cover,omitempty"`
	Genres []*Genre `bun:"m2m:book_genres,join:Book=Genre" json:"genres,omitempty"`
}

type BookGenre struct {
	bun.BaseModel `bun:"table:book_genres,alias:bg"`

	ID      int    `bun:",pk,nullzero" json:"id"`
	BookID  int    `bun:",nullzero" json:"book_id"`
	Book    *Book  `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
	GenreID int    `bun:",nullzero" json:"genre_id"`
	Genre   *Genre `bun:"rel:belongs-to,join:genre_id=id" json:"genre,omitempty"`
}
