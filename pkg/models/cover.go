package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Cover is an uploaded cover image. Rows are deduplicated by the MD5 of the
// file contents, so a single cover may be referenced by several books.
type Cover struct {
	bun.BaseModel `bun:"table:covers,alias:cv"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Filename  string    `bun:",nullzero" json:"filename"`
	Mimetype  string    `json:"mimetype"`
	MD5Hash   string    `bun:"md5_hash,nullzero" json:"md5_hash"`
}
