package genres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/models"
	"github.com/uptrace/bun"
)

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// ListGenres returns all genres ordered by name, with book counts.
func (svc *Service) ListGenres(ctx context.Context) ([]*models.Genre, error) {
	var genres []*models.Genre

	err := svc.db.
		NewSelect().
		Model(&genres).
		ColumnExpr("g.*").
		ColumnExpr("(SELECT COUNT(*) FROM book_genres bg WHERE bg.genre_id = g.id) AS book_count").
		Order("g.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return genres, nil
}

// RetrieveGenres returns the genres with the given ids. A missing id yields
// NotFound so book forms can't attach genres that don't exist.
func (svc *Service) RetrieveGenres(ctx context.Context, ids []int) ([]*models.Genre, error) {
	if len(ids) == 0 {
		return []*models.Genre{}, nil
	}

	var genres []*models.Genre
	err := svc.db.
		NewSelect().
		Model(&genres).
		Where("g.id IN (?)", bun.In(ids)).
		Order("g.name ASC").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Genre")
		}
		return nil, errors.WithStack(err)
	}

	seen := map[int]bool{}
	for _, g := range genres {
		seen[g.ID] = true
	}
	for _, id := range ids {
		if !seen[id] {
			return nil, errcodes.NotFound("Genre")
		}
	}

	return genres, nil
}
