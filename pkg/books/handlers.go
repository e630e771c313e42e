package books

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfmark/shelfmark/pkg/auth"
	"github.com/shelfmark/shelfmark/pkg/covers"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/genres"
	"github.com/shelfmark/shelfmark/pkg/models"
	"github.com/shelfmark/shelfmark/pkg/reviews"
)

type handler struct {
	bookService   *Service
	genreService  *genres.Service
	reviewService *reviews.Service
	coverStorage  *covers.Storage
	pageSize      int
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	books, total, err := h.bookService.ListBooksWithTotal(ctx, ListBooksOptions{
		Page:     params.Page,
		PageSize: h.pageSize,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	pages := (total + h.pageSize - 1) / h.pageSize

	resp := struct {
		Books []*models.Book `json:"books"`
		Total int            `json:"total"`
		Page  int            `json:"page"`
		Pages int            `json:"pages"`
	}{books, total, params.Page, pages}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	bookReviews, err := h.reviewService.ListReviewsForBook(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	// The signed-in user's own review gates the review form on the detail
	// page.
	var userReview *models.Review
	if user, ok := auth.UserFromContext(c); ok {
		userReview, err = h.reviewService.RetrieveUserReview(ctx, user.ID, id)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	resp := struct {
		Book       *models.Book     `json:"book"`
		Reviews    []*models.Review `json:"reviews"`
		UserReview *models.Review   `json:"user_review"`
	}{book, bookReviews, userReview}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) cover(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	if book.Cover == nil {
		return errcodes.NotFound("Cover")
	}

	c.Response().Header().Set(echo.HeaderContentType, book.Cover.Mimetype)
	return errors.WithStack(c.File(h.coverStorage.Path(book.Cover.Filename)))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Reject unknown genre ids before touching the database.
	if _, err := h.genreService.RetrieveGenres(ctx, params.GenreIDs); err != nil {
		return errors.WithStack(err)
	}

	upload, err := coverFromForm(params.FormFiles)
	if err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.CreateBook(ctx, CreateBookOptions{
		Title:       params.Title,
		Description: params.Description,
		Year:        params.Year,
		Publisher:   params.Publisher,
		Author:      params.Author,
		Pages:       params.Pages,
		GenreIDs:    params.GenreIDs,
		Cover:       upload,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	// Bind params.
	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Fetch the book.
	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdateBookOptions{Columns: []string{}}

	if params.Title != nil && *params.Title != book.Title {
		book.Title = *params.Title
		opts.Columns = append(opts.Columns, "title")
	}
	if params.Description != nil && *params.Description != book.Description {
		book.Description = *params.Description
		opts.Columns = append(opts.Columns, "description")
	}
	if params.Year != nil && *params.Year != book.Year {
		book.Year = *params.Year
		opts.Columns = append(opts.Columns, "year")
	}
	if params.Publisher != nil && *params.Publisher != book.Publisher {
		book.Publisher = *params.Publisher
		opts.Columns = append(opts.Columns, "publisher")
	}
	if params.Author != nil && *params.Author != book.Author {
		book.Author = *params.Author
		opts.Columns = append(opts.Columns, "author")
	}
	if params.Pages != nil && *params.Pages != book.Pages {
		book.Pages = *params.Pages
		opts.Columns = append(opts.Columns, "pages")
	}

	if params.GenreIDs != nil {
		if _, err := h.genreService.RetrieveGenres(ctx, params.GenreIDs); err != nil {
			return errors.WithStack(err)
		}
		opts.GenreIDs = params.GenreIDs
	} else {
		// No genre_ids in the payload keeps the current set.
		for _, genre := range book.Genres {
			opts.GenreIDs = append(opts.GenreIDs, genre.ID)
		}
	}

	// Update the model.
	err = h.bookService.UpdateBook(ctx, book, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	book, err = h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	if err := h.bookService.DeleteBook(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

// coverFromForm reads the uploaded cover file, if present, and verifies it is
// an accepted image type. The mimetype comes from sniffing the bytes, not
// from the client-supplied header.
func coverFromForm(formFiles map[string]*multipart.FileHeader) (*CoverUpload, error) {
	fh, ok := formFiles["cover"]
	if !ok || fh == nil {
		return nil, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	mt := covers.DetectMimetype(content)
	if !covers.AllowedMimetypes[mt] {
		return nil, errcodes.ValidationError("Cover must be a JPEG or PNG image")
	}

	return &CoverUpload{
		OriginalFilename: fh.Filename,
		Mimetype:         mt,
		Content:          content,
	}, nil
}
