package auth

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all auth routes and returns the auth service so
// the rest of the server can build middleware from it.
func RegisterRoutes(e *echo.Echo, db *bun.DB, sessionSecret string, bcryptCost int) *Service {
	authService := NewService(db, sessionSecret, bcryptCost)

	h := &handler{
		authService: authService,
	}

	auth := e.Group("/auth")
	auth.POST("/login", h.login)
	auth.POST("/logout", h.logout)
	auth.GET("/me", h.me)

	return authService
}
