package reviews

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfmark/shelfmark/pkg/auth"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
)

type handler struct {
	reviewService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	bookID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	params := CreateReviewPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, ok := auth.UserFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	review, err := h.reviewService.CreateReview(ctx, CreateReviewOptions{
		UserID: user.ID,
		BookID: bookID,
		Text:   params.Text,
		Rating: *params.Rating,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, review))
}
