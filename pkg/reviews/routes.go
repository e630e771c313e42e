package reviews

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfmark/shelfmark/pkg/auth"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers review routes. Posting a review requires a
// signed-in user; reading happens through the book detail endpoint.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware) {
	reviewService := NewService(db)

	h := &handler{
		reviewService: reviewService,
	}

	e.POST("/books/:id/reviews", h.create, authMiddleware.Authenticate)
}
