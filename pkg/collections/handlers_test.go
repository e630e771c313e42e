package collections

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shelfmark/shelfmark/pkg/auth"
	"github.com/shelfmark/shelfmark/pkg/binder"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func setupTestApp(t *testing.T) (*echo.Echo, *bun.DB, *auth.Service) {
	t.Helper()

	db := setupTestDB(t)

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	authService := auth.RegisterRoutes(e, db, "test-secret", 4)
	authMiddleware := auth.NewMiddleware(authService)
	RegisterRoutes(e, db, authMiddleware)

	return e, db, authService
}

func sessionCookie(t *testing.T, authService *auth.Service, user *models.User) *http.Cookie {
	t.Helper()

	token, err := authService.GenerateToken(user, false)
	require.NoError(t, err)

	return &http.Cookie{Name: auth.CookieName, Value: token}
}

func TestCollectionsFlow(t *testing.T) {
	t.Parallel()
	e, db, authService := setupTestApp(t)

	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")
	book := createTestBook(t, db, "Книга")
	ownerCookie := sessionCookie(t, authService, owner)
	otherCookie := sessionCookie(t, authService, other)

	// Create a collection.
	req := httptest.NewRequest(http.MethodPost, "/collections", strings.NewReader(`{"name":"Любимое"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(ownerCookie)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var collection models.Collection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &collection))
	assert.Equal(t, "Любимое", collection.Name)

	// Add the book to it.
	payload := fmt.Sprintf(`{"collection_id":%d}`, collection.ID)
	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/books/%d/collections", book.ID), strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(ownerCookie)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	// Adding it again conflicts.
	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/books/%d/collections", book.ID), strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(ownerCookie)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The owner sees the collection with its book.
	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/collections/%d", collection.ID), nil)
	req.AddCookie(ownerCookie)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var retrieved models.Collection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &retrieved))
	require.Len(t, retrieved.Books, 1)
	assert.Equal(t, book.ID, retrieved.Books[0].ID)

	// Another user gets a 404, not a 403.
	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/collections/%d", collection.ID), nil)
	req.AddCookie(otherCookie)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// And their own listing stays empty.
	req = httptest.NewRequest(http.MethodGet, "/collections", nil)
	req.AddCookie(otherCookie)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var listing struct {
		Collections []*models.Collection `json:"collections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Empty(t, listing.Collections)
}

func TestCollectionsRequireAuthentication(t *testing.T) {
	t.Parallel()
	e, _, _ := setupTestApp(t)

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/collections"},
		{http.MethodPost, "/collections"},
		{http.MethodGet, "/collections/1"},
		{http.MethodPost, "/books/1/collections"},
	} {
		req := httptest.NewRequest(route.method, route.path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", route.method, route.path)
	}
}
