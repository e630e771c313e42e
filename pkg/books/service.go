package books

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfmark/shelfmark/pkg/covers"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveBookOptions struct {
	ID *int
}

type ListBooksOptions struct {
	Page     int
	PageSize int
}

// CoverUpload carries the bytes of an uploaded cover image.
type CoverUpload struct {
	OriginalFilename string
	Mimetype         string
	Content          []byte
}

type CreateBookOptions struct {
	Title       string
	Description string
	Year        int
	Publisher   string
	Author      string
	Pages       int
	GenreIDs    []int
	Cover       *CoverUpload
}

type UpdateBookOptions struct {
	Columns  []string
	GenreIDs []int
}

type Service struct {
	db           *bun.DB
	coverStorage *covers.Storage
}

func NewService(db *bun.DB, coverStorage *covers.Storage) *Service {
	return &Service{db: db, coverStorage: coverStorage}
}

// CreateBook inserts a book, its genre links, and optionally its cover in a
// single transaction. The book id is assigned inside the transaction, so the
// cover filename (which embeds the id) can be derived before anything
// commits.
func (svc *Service) CreateBook(ctx context.Context, opts CreateBookOptions) (*models.Book, error) {
	now := time.Now()
	book := &models.Book{
		CreatedAt:   now,
		UpdatedAt:   now,
		Title:       opts.Title,
		Description: opts.Description,
		Year:        opts.Year,
		Publisher:   opts.Publisher,
		Author:      opts.Author,
		Pages:       opts.Pages,
	}

	writtenFile := ""
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewInsert().
			Model(book).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		if err := insertGenreLinks(ctx, tx, book.ID, opts.GenreIDs); err != nil {
			return err
		}

		if opts.Cover == nil {
			return nil
		}

		cover, wrote, err := svc.findOrCreateCover(ctx, tx, book.ID, opts.Cover)
		if err != nil {
			return err
		}
		if wrote {
			writtenFile = cover.Filename
		}

		book.CoverID = &cover.ID
		book.Cover = cover
		_, err = tx.
			NewUpdate().
			Model(book).
			Column("cover_id").
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		// A file written for a transaction that rolled back is garbage;
		// best-effort cleanup.
		if writtenFile != "" {
			_ = svc.coverStorage.Remove(writtenFile)
		}
		return nil, errors.WithStack(err)
	}

	return svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
}

// findOrCreateCover reuses an existing cover row whose content hash matches
// the upload, or writes the file and inserts a new row. Reports whether a
// file was written so a rollback can clean it up.
func (svc *Service) findOrCreateCover(ctx context.Context, tx bun.Tx, bookID int, upload *CoverUpload) (*models.Cover, bool, error) {
	hash := covers.Sum(upload.Content)

	existing := &models.Cover{}
	err := tx.
		NewSelect().
		Model(existing).
		Where("cv.md5_hash = ?", hash).
		Scan(ctx)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, errors.WithStack(err)
	}

	filename := covers.Filename(bookID, upload.OriginalFilename)
	if err := svc.coverStorage.Write(filename, upload.Content); err != nil {
		return nil, false, err
	}

	cover := &models.Cover{
		CreatedAt: time.Now(),
		Filename:  filename,
		Mimetype:  upload.Mimetype,
		MD5Hash:   hash,
	}
	_, err = tx.
		NewInsert().
		Model(cover).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, true, errors.WithStack(err)
	}

	return cover, true, nil
}

func insertGenreLinks(ctx context.Context, tx bun.Tx, bookID int, genreIDs []int) error {
	if len(genreIDs) == 0 {
		return nil
	}

	links := make([]*models.BookGenre, 0, len(genreIDs))
	for _, genreID := range genreIDs {
		links = append(links, &models.BookGenre{
			BookID:  bookID,
			GenreID: genreID,
		})
	}

	_, err := tx.
		NewInsert().
		Model(&links).
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book).
		Relation("Cover").
		Relation("Genres", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("g.name ASC")
		})

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

// ListBooksWithTotal returns one page of the catalog ordered by publication
// year descending (id descending as a stable tiebreak) plus the total count.
// A page past the end yields an empty slice, not an error.
func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}

	page := opts.Page
	if page < 1 {
		page = 1
	}

	q := svc.db.
		NewSelect().
		Model(&books).
		Relation("Cover").
		Relation("Genres", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("g.name ASC")
		}).
		Order("b.year DESC", "b.id DESC").
		Limit(opts.PageSize).
		Offset((page - 1) * opts.PageSize)

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return books, total, nil
}

// UpdateBook overwrites the given scalar columns and replaces the genre
// association set wholesale.
func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts UpdateBookOptions) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		book.UpdatedAt = time.Now()
		columns := append(opts.Columns, "updated_at")

		_, err := tx.
			NewUpdate().
			Model(book).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model((*models.BookGenre)(nil)).
			Where("book_id = ?", book.ID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		return insertGenreLinks(ctx, tx, book.ID, opts.GenreIDs)
	})
}

// DeleteBook removes a book and everything that hangs off it: reviews,
// collection memberships, and genre links. The cover row and its file go
// too, but only when no other book still references the same deduplicated
// cover.
func (svc *Service) DeleteBook(ctx context.Context, id int) error {
	book, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return err
	}

	removeCoverFile := ""
	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewDelete().
			Model((*models.Review)(nil)).
			Where("book_id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model((*models.CollectionBook)(nil)).
			Where("book_id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model((*models.BookGenre)(nil)).
			Where("book_id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model((*models.Book)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		if book.CoverID == nil {
			return nil
		}

		// The cover may be shared via hash dedup; keep it while any other
		// book still points at it.
		refs, err := tx.
			NewSelect().
			Model((*models.Book)(nil)).
			Where("cover_id = ?", *book.CoverID).
			Count(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if refs > 0 {
			return nil
		}

		_, err = tx.
			NewDelete().
			Model((*models.Cover)(nil)).
			Where("id = ?", *book.CoverID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		if book.Cover != nil {
			removeCoverFile = book.Cover.Filename
		}
		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if removeCoverFile != "" {
		return svc.coverStorage.Remove(removeCoverFile)
	}
	return nil
}
