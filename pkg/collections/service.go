package collections

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveCollectionOptions struct {
	ID     int
	UserID int
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// CreateCollection creates a collection owned by the given user.
func (svc *Service) CreateCollection(ctx context.Context, userID int, name string) (*models.Collection, error) {
	collection := &models.Collection{
		CreatedAt: time.Now(),
		Name:      name,
		UserID:    userID,
	}

	_, err := svc.db.
		NewInsert().
		Model(collection).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return collection, nil
}

// ListCollectionsForUser returns the user's collections, newest first, with
// book counts.
func (svc *Service) ListCollectionsForUser(ctx context.Context, userID int) ([]*models.Collection, error) {
	collections := []*models.Collection{}

	err := svc.db.
		NewSelect().
		Model(&collections).
		ColumnExpr("c.*").
		ColumnExpr("(SELECT COUNT(*) FROM collection_books cb WHERE cb.collection_id = c.id) AS book_count").
		Where("c.user_id = ?", userID).
		Order("c.created_at DESC", "c.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return collections, nil
}

// RetrieveCollection returns a collection with its books. Ownership is part
// of the lookup, so someone else's collection is indistinguishable from a
// missing one.
func (svc *Service) RetrieveCollection(ctx context.Context, opts RetrieveCollectionOptions) (*models.Collection, error) {
	collection := &models.Collection{}

	err := svc.db.
		NewSelect().
		Model(collection).
		Relation("Books", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Relation("Cover").Order("b.title ASC")
		}).
		Where("c.id = ?", opts.ID).
		Where("c.user_id = ?", opts.UserID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Collection")
		}
		return nil, errors.WithStack(err)
	}

	return collection, nil
}

// AddBookToCollection adds a book to one of the user's collections. A book
// that is already a member conflicts rather than silently duplicating.
func (svc *Service) AddBookToCollection(ctx context.Context, userID, collectionID, bookID int) error {
	if _, err := svc.RetrieveCollection(ctx, RetrieveCollectionOptions{ID: collectionID, UserID: userID}); err != nil {
		return err
	}

	exists, err := svc.db.
		NewSelect().
		Model((*models.Book)(nil)).
		Where("id = ?", bookID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if !exists {
		return errcodes.NotFound("Book")
	}

	member, err := svc.db.
		NewSelect().
		Model((*models.CollectionBook)(nil)).
		Where("collection_id = ?", collectionID).
		Where("book_id = ?", bookID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if member {
		return errcodes.Conflict("Book is already in this collection")
	}

	link := &models.CollectionBook{
		CollectionID: collectionID,
		BookID:       bookID,
		AddedAt:      time.Now(),
	}
	_, err = svc.db.
		NewInsert().
		Model(link).
		Exec(ctx)
	return errors.WithStack(err)
}
