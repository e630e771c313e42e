package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Rating bounds for reviews.
const (
	RatingMin = 0
	RatingMax = 5
)

// Review is a user's rating and commentary on a book. There is at most one
// review per (user, book) pair and reviews are immutable once written.
type Review struct {
	bun.BaseModel `bun:"table:reviews,alias:rv"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Text      string    `json:"text"`
	Rating    int       `json:"rating"`
	UserID    int       `bun:",nullzero" json:"user_id"`
	BookID    int       `bun:",nullzero" json:"book_id"`

	// Relations
	User *User `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Book *Book `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
}
