package books

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shelfmark/shelfmark/pkg/auth"
	"github.com/shelfmark/shelfmark/pkg/binder"
	"github.com/shelfmark/shelfmark/pkg/config"
	"github.com/shelfmark/shelfmark/pkg/covers"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// Smallest content that sniffs as PNG.
var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}

type testApp struct {
	e           *echo.Echo
	db          *bun.DB
	authService *auth.Service
	storage     *covers.Storage
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()

	db := setupTestDB(t)

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	storage := covers.NewStorage(t.TempDir())
	require.NoError(t, storage.Init())

	authService := auth.RegisterRoutes(e, db, "test-secret", 4)
	authMiddleware := auth.NewMiddleware(authService)

	cfg := &config.Config{PageSize: 2}
	RegisterRoutes(e, db, cfg, authMiddleware, storage)

	return &testApp{e: e, db: db, authService: authService, storage: storage}
}

// createTestUser creates a user with the named role, creating the role row if
// needed, and returns the user plus a valid session cookie.
func (app *testApp) createTestUser(t *testing.T, username, roleName string) (*models.User, *http.Cookie) {
	t.Helper()
	ctx := context.Background()

	role := &models.Role{}
	err := app.db.NewSelect().Model(role).Where("r.name = ?", roleName).Scan(ctx)
	if err != nil {
		role = &models.Role{Name: roleName, Description: "test"}
		_, err = app.db.NewInsert().Model(role).Returning("*").Exec(ctx)
		require.NoError(t, err)
	}

	hash, err := app.authService.HashPassword("password")
	require.NoError(t, err)

	now := time.Now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Username:     username,
		PasswordHash: hash,
		LastName:     "Тестов",
		FirstName:    "Тест",
		RoleID:       role.ID,
	}
	_, err = app.db.NewInsert().Model(user).Returning("*").Exec(ctx)
	require.NoError(t, err)
	user.Role = role

	token, err := app.authService.GenerateToken(user, false)
	require.NoError(t, err)

	return user, &http.Cookie{Name: auth.CookieName, Value: token}
}

func (app *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.e.ServeHTTP(rec, req)
	return rec
}

func multipartBookForm(t *testing.T, genreID int, cover []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fields := map[string]string{
		"title":       "Звёздный путь",
		"description": "Про космос и приключения.",
		"year":        "2020",
		"publisher":   "КосмоИздат",
		"author":      "Иван Космонавтов",
		"pages":       "320",
		"genre_ids":   fmt.Sprintf("%d", genreID),
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if cover != nil {
		fw, err := w.CreateFormFile("cover", "star.png")
		require.NoError(t, err)
		_, err = fw.Write(cover)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return body, w.FormDataContentType()
}

func TestCreateBookHandler(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	genre := createTestGenre(t, app.db, "Фантастика")
	_, adminCookie := app.createTestUser(t, "admin", models.RoleAdministrator)

	body, ctype := multipartBookForm(t, genre.ID, pngBytes)
	req := httptest.NewRequest(http.MethodPost, "/books", body)
	req.Header.Set(echo.HeaderContentType, ctype)
	req.AddCookie(adminCookie)

	rec := app.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var book models.Book
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
	assert.Equal(t, "Звёздный путь", book.Title)
	require.NotNil(t, book.Cover)
	assert.Equal(t, "image/png", book.Cover.Mimetype)
	require.Len(t, book.Genres, 1)
}

func TestCreateBookHandler_Unauthenticated(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	genre := createTestGenre(t, app.db, "Фантастика")

	body, ctype := multipartBookForm(t, genre.ID, nil)
	req := httptest.NewRequest(http.MethodPost, "/books", body)
	req.Header.Set(echo.HeaderContentType, ctype)

	rec := app.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateBookHandler_RequiresCapability(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	genre := createTestGenre(t, app.db, "Фантастика")
	ctx := context.Background()

	for _, roleName := range []string{models.RoleUser, models.RoleModerator} {
		t.Run(roleName, func(t *testing.T) {
			_, cookie := app.createTestUser(t, "u-"+roleName, roleName)

			body, ctype := multipartBookForm(t, genre.ID, nil)
			req := httptest.NewRequest(http.MethodPost, "/books", body)
			req.Header.Set(echo.HeaderContentType, ctype)
			req.AddCookie(cookie)

			rec := app.do(req)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}

	// A denied request must not leave rows behind.
	count, err := app.db.NewSelect().Model((*models.Book)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCreateBookHandler_RejectsNonImageCover(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	genre := createTestGenre(t, app.db, "Фантастика")
	_, adminCookie := app.createTestUser(t, "admin", models.RoleAdministrator)

	body, ctype := multipartBookForm(t, genre.ID, []byte("just some text"))
	req := httptest.NewRequest(http.MethodPost, "/books", body)
	req.Header.Set(echo.HeaderContentType, ctype)
	req.AddCookie(adminCookie)

	rec := app.do(req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	count, err := app.db.NewSelect().Model((*models.Book)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestUpdateBookHandler_Moderator(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	book := createTestBook(t, app.db, "Черновик", 2020)
	_, modCookie := app.createTestUser(t, "mod", models.RoleModerator)

	payload := `{"title":"Чистовик"}`
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/books/%d", book.ID), strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(modCookie)

	rec := app.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Book
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Чистовик", updated.Title)
}

func TestDeleteBookHandler(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	ctx := context.Background()
	book := createTestBook(t, app.db, "Обречённая", 2020)

	_, modCookie := app.createTestUser(t, "mod", models.RoleModerator)
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/books/%d", book.ID), nil)
	req.AddCookie(modCookie)
	rec := app.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	count, err := app.db.NewSelect().Model((*models.Book)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, adminCookie := app.createTestUser(t, "admin", models.RoleAdministrator)
	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/books/%d", book.ID), nil)
	req.AddCookie(adminCookie)
	rec = app.do(req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	count, err = app.db.NewSelect().Model((*models.Book)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestListBooksHandler_Pagination(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)

	createTestBook(t, app.db, "Первая", 2019)
	createTestBook(t, app.db, "Вторая", 2020)
	createTestBook(t, app.db, "Третья", 2021)

	req := httptest.NewRequest(http.MethodGet, "/books?page=2", nil)
	rec := app.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Books []*models.Book `json:"books"`
		Total int            `json:"total"`
		Page  int            `json:"page"`
		Pages int            `json:"pages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 2, resp.Pages)
	// Page size is 2, so the second page has the single oldest book.
	require.Len(t, resp.Books, 1)
	assert.Equal(t, "Первая", resp.Books[0].Title)
}

func TestRetrieveBookHandler_UserReview(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	ctx := context.Background()
	book := createTestBook(t, app.db, "Обсуждаемая", 2020)

	reader, readerCookie := app.createTestUser(t, "reader", models.RoleUser)
	other, _ := app.createTestUser(t, "other", models.RoleUser)

	for _, r := range []*models.Review{
		{CreatedAt: time.Now().Add(-time.Hour), Text: "моя", Rating: 4, UserID: reader.ID, BookID: book.ID},
		{CreatedAt: time.Now(), Text: "чужая", Rating: 2, UserID: other.ID, BookID: book.ID},
	} {
		_, err := app.db.NewInsert().Model(r).Exec(ctx)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/books/%d", book.ID), nil)
	req.AddCookie(readerCookie)
	rec := app.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Book       *models.Book     `json:"book"`
		Reviews    []*models.Review `json:"reviews"`
		UserReview *models.Review   `json:"user_review"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Book)
	require.Len(t, resp.Reviews, 2)
	assert.Equal(t, "чужая", resp.Reviews[0].Text)
	require.NotNil(t, resp.UserReview)
	assert.Equal(t, "моя", resp.UserReview.Text)

	// Anonymous requests get the reviews but no user_review.
	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/books/%d", book.ID), nil)
	rec = app.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.UserReview)
}

func TestCoverHandler(t *testing.T) {
	t.Parallel()
	app := setupTestApp(t)
	genre := createTestGenre(t, app.db, "Фантастика")
	_, adminCookie := app.createTestUser(t, "admin", models.RoleAdministrator)

	body, ctype := multipartBookForm(t, genre.ID, pngBytes)
	req := httptest.NewRequest(http.MethodPost, "/books", body)
	req.Header.Set(echo.HeaderContentType, ctype)
	req.AddCookie(adminCookie)
	rec := app.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var book models.Book
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/books/%d/cover", book.ID), nil)
	rec = app.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, pngBytes, rec.Body.Bytes())

	// A book without a cover 404s.
	bare := createTestBook(t, app.db, "Без обложки", 2020)
	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/books/%d/cover", bare.ID), nil)
	rec = app.do(req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
