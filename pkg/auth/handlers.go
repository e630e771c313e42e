package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfmark/shelfmark/pkg/models"
)

// CookieName is the name of the session cookie.
const CookieName = "shelfmark_session"

type handler struct {
	authService *Service
}

func buildMeResponse(user *models.User) MeResponse {
	roleName := ""
	if user.Role != nil {
		roleName = user.Role.Name
	}

	return MeResponse{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.FullName(),
		RoleID:   user.RoleID,
		RoleName: roleName,
	}
}

func sessionCookie(c echo.Context, token string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Request().TLS != nil || c.Request().Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	}
}

// login handles user login.
func (h *handler) login(c echo.Context) error {
	ctx := c.Request().Context()

	params := LoginPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Authenticate(ctx, params.Username, params.Password)
	if err != nil {
		return err
	}

	token, err := h.authService.GenerateToken(user, params.Remember)
	if err != nil {
		return errors.WithStack(err)
	}

	maxAge := TokenExpiry
	if params.Remember {
		maxAge = RememberMeExpiry
	}
	c.SetCookie(sessionCookie(c, token, maxAge))

	return c.JSON(http.StatusOK, buildMeResponse(user))
}

// logout tears down the session.
func (h *handler) logout(c echo.Context) error {
	cookie := sessionCookie(c, "", 0)
	cookie.MaxAge = -1
	c.SetCookie(cookie)

	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// me returns the current authenticated user's info.
func (h *handler) me(c echo.Context) error {
	ctx := c.Request().Context()

	cookie, err := c.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Not authenticated"})
	}

	claims, err := h.authService.ValidateToken(cookie.Value)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
	}

	user, err := h.authService.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "User not found"})
	}

	return c.JSON(http.StatusOK, buildMeResponse(user))
}
