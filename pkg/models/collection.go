package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Collection is a user-owned named set of books. It is visible only to its
// owner.
type Collection struct {
	bun.BaseModel `bun:"table:collections,alias:c"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `bun:",nullzero" json:"name"`
	UserID    int       `bun:",nullzero" json:"user_id"`
	BookCount int       `bun:",scanonly" json:"book_count,omitempty"`

	// Relations
	User  *User   `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Books []*Book `bun:"m2m:collection_books,join:Collection=Book" json:"books,omitempty"`
}

type CollectionBook struct {
	bun.BaseModel `bun:"table:collection_books,alias:cb"`

	ID           int         `bun:",pk,nullzero" json:"id"`
	CollectionID int         `bun:",nullzero" json:"collection_id"`
	Collection   *Collection `bun:"rel:belongs-to,join:collection_id=id" json:"collection,omitempty"`
	BookID       int         `bun:",nullzero" json:"book_id"`
	Book         *Book       `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
	AddedAt      time.Time   `json:"added_at"`
}
