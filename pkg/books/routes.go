package books

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfmark/shelfmark/pkg/auth"
	"github.com/shelfmark/shelfmark/pkg/config"
	"github.com/shelfmark/shelfmark/pkg/covers"
	"github.com/shelfmark/shelfmark/pkg/genres"
	"github.com/shelfmark/shelfmark/pkg/models"
	"github.com/shelfmark/shelfmark/pkg/reviews"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers catalog routes. Listing, detail, and cover serving
// are public; mutations are gated by role capability.
func RegisterRoutes(e *echo.Echo, db *bun.DB, cfg *config.Config, authMiddleware *auth.Middleware, coverStorage *covers.Storage) {
	bookService := NewService(db, coverStorage)
	genreService := genres.NewService(db)
	reviewService := reviews.NewService(db)

	h := &handler{
		bookService:   bookService,
		genreService:  genreService,
		reviewService: reviewService,
		coverStorage:  coverStorage,
		pageSize:      cfg.PageSize,
	}

	e.GET("/books", h.list)
	e.GET("/books/:id", h.retrieve, authMiddleware.AuthenticateOptional)
	e.GET("/books/:id/cover", h.cover)
	e.POST("/books", h.create, authMiddleware.Authenticate, authMiddleware.RequireCapability(models.CapabilityCreateBooks))
	e.POST("/books/:id", h.update, authMiddleware.Authenticate, authMiddleware.RequireCapability(models.CapabilityEditBooks))
	e.DELETE("/books/:id", h.delete, authMiddleware.Authenticate, authMiddleware.RequireCapability(models.CapabilityDeleteBooks))
}
