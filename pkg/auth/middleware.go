package auth

import (
	"github.com/labstack/echo/v4"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/models"
)

// Echo context keys for user data.
const (
	ContextKeyUserID   = "user_id"
	ContextKeyUsername = "username"
	ContextKeyUser     = "user"
)

// Middleware provides authentication middleware.
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{
		authService: authService,
	}
}

// Authenticate extracts and validates the session token from the cookie.
// If valid, it adds user info to the context; otherwise it returns 401.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		cookie, err := c.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			return errcodes.Unauthorized("Authentication required")
		}

		claims, err := m.authService.ValidateToken(cookie.Value)
		if err != nil {
			return errcodes.Unauthorized("Invalid or expired token")
		}

		// Verify user still exists
		user, err := m.authService.GetUserByID(ctx, claims.UserID)
		if err != nil {
			return errcodes.Unauthorized("User not found")
		}

		c.Set(ContextKeyUserID, user.ID)
		c.Set(ContextKeyUsername, user.Username)
		c.Set(ContextKeyUser, user)

		return next(c)
	}
}

// AuthenticateOptional extracts user info if available but doesn't require
// authentication. Used on public pages that render differently for
// signed-in users.
func (m *Middleware) AuthenticateOptional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		cookie, err := c.Cookie(CookieName)
		if err == nil && cookie.Value != "" {
			claims, err := m.authService.ValidateToken(cookie.Value)
			if err == nil {
				user, err := m.authService.GetUserByID(ctx, claims.UserID)
				if err == nil {
					c.Set(ContextKeyUserID, user.ID)
					c.Set(ContextKeyUsername, user.Username)
					c.Set(ContextKeyUser, user)
				}
			}
		}
		return next(c)
	}
}

// RequireCapability returns middleware that checks whether the user's role
// grants the given capability. Must be used after Authenticate.
func (m *Middleware) RequireCapability(capability models.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get(ContextKeyUser).(*models.User)
			if !ok {
				return errcodes.Unauthorized("Authentication required")
			}

			if !user.Can(capability) {
				return errcodes.Forbidden("This action")
			}

			return next(c)
		}
	}
}

// UserFromContext retrieves the authenticated user from the Echo context.
func UserFromContext(c echo.Context) (*models.User, bool) {
	user, ok := c.Get(ContextKeyUser).(*models.User)
	return user, ok
}
