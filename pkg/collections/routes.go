package collections

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfmark/shelfmark/pkg/auth"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers collection routes. Everything here is scoped to
// the signed-in user.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware) {
	collectionService := NewService(db)

	h := &handler{
		collectionService: collectionService,
	}

	e.GET("/collections", h.list, authMiddleware.Authenticate)
	e.POST("/collections", h.create, authMiddleware.Authenticate)
	e.GET("/collections/:id", h.retrieve, authMiddleware.Authenticate)
	e.POST("/books/:id/collections", h.addBook, authMiddleware.Authenticate)
}
