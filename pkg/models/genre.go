package models

import (
	"github.com/uptrace/bun"
)

type Genre struct {
	bun.BaseModel `bun:"table:genres,alias:g"`

	ID        int    `bun:",pk,nullzero" json:"id"`
	Name      string `bun:",nullzero" json:"name"`
	BookCount int    `bun:",scanonly" json:"book_count,omitempty"`
}
