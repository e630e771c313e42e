package collections

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfmark/shelfmark/pkg/auth"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/models"
)

type handler struct {
	collectionService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	user, ok := auth.UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	collections, err := h.collectionService.ListCollectionsForUser(ctx, user.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, echo.Map{
		"collections": collections,
	}))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateCollectionPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, ok := auth.UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	collection, err := h.collectionService.CreateCollection(ctx, user.ID, params.Name)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, collection))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Collection")
	}

	user, ok := auth.UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	collection, err := h.collectionService.RetrieveCollection(ctx, RetrieveCollectionOptions{
		ID:     id,
		UserID: user.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if collection.Books == nil {
		collection.Books = []*models.Book{}
	}

	return errors.WithStack(c.JSON(http.StatusOK, collection))
}

func (h *handler) addBook(c echo.Context) error {
	ctx := c.Request().Context()
	bookID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	params := AddBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, ok := auth.UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	err = h.collectionService.AddBookToCollection(ctx, user.ID, params.CollectionID, bookID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
