package reviews

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/models"
	"github.com/uptrace/bun"
)

type CreateReviewOptions struct {
	UserID int
	BookID int
	Text   string
	Rating int
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// CreateReview stores a user's review of a book. Each user gets exactly one
// review per book; a second attempt conflicts instead of overwriting.
func (svc *Service) CreateReview(ctx context.Context, opts CreateReviewOptions) (*models.Review, error) {
	exists, err := svc.db.
		NewSelect().
		Model((*models.Book)(nil)).
		Where("id = ?", opts.BookID).
		Exists(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !exists {
		return nil, errcodes.NotFound("Book")
	}

	existing, err := svc.RetrieveUserReview(ctx, opts.UserID, opts.BookID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errcodes.Conflict("You have already reviewed this book")
	}

	review := &models.Review{
		CreatedAt: time.Now(),
		Text:      opts.Text,
		Rating:    opts.Rating,
		UserID:    opts.UserID,
		BookID:    opts.BookID,
	}

	_, err = svc.db.
		NewInsert().
		Model(review).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return svc.retrieveReview(ctx, review.ID)
}

func (svc *Service) retrieveReview(ctx context.Context, id int) (*models.Review, error) {
	review := &models.Review{}

	err := svc.db.
		NewSelect().
		Model(review).
		Relation("User").
		Where("rv.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Review")
		}
		return nil, errors.WithStack(err)
	}

	return review, nil
}

// ListReviewsForBook returns all reviews of a book, newest first, with the
// reviewer loaded.
func (svc *Service) ListReviewsForBook(ctx context.Context, bookID int) ([]*models.Review, error) {
	reviews := []*models.Review{}

	err := svc.db.
		NewSelect().
		Model(&reviews).
		Relation("User").
		Where("rv.book_id = ?", bookID).
		Order("rv.created_at DESC", "rv.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return reviews, nil
}

// RetrieveUserReview returns the given user's review of a book, or nil when
// the user hasn't reviewed it. Absence is a normal state here, not an error.
func (svc *Service) RetrieveUserReview(ctx context.Context, userID, bookID int) (*models.Review, error) {
	review := &models.Review{}

	err := svc.db.
		NewSelect().
		Model(review).
		Where("rv.user_id = ?", userID).
		Where("rv.book_id = ?", bookID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}

	return review, nil
}
