package collections

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfmark/shelfmark/pkg/database"
	"github.com/shelfmark/shelfmark/pkg/errcodes"
	"github.com/shelfmark/shelfmark/pkg/migrations"
	"github.com/shelfmark/shelfmark/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	database.RegisterModels(db)

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return db
}

func createTestUser(t *testing.T, db *bun.DB, username string) *models.User {
	t.Helper()
	ctx := context.Background()

	role := &models.Role{}
	err := db.NewSelect().Model(role).Where("r.name = ?", models.RoleUser).Scan(ctx)
	if err != nil {
		role = &models.Role{Name: models.RoleUser, Description: "test"}
		_, err = db.NewInsert().Model(role).Returning("*").Exec(ctx)
		require.NoError(t, err)
	}

	now := time.Now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Username:     username,
		PasswordHash: "x",
		RoleID:       role.ID,
	}
	_, err = db.NewInsert().Model(user).Returning("*").Exec(ctx)
	require.NoError(t, err)

	return user
}

func createTestBook(t *testing.T, db *bun.DB, title string) *models.Book {
	t.Helper()

	now := time.Now()
	book := &models.Book{
		CreatedAt:   now,
		UpdatedAt:   now,
		Title:       title,
		Description: "d",
		Year:        2020,
		Publisher:   "p",
		Author:      "a",
		Pages:       100,
	}
	_, err := db.NewInsert().Model(book).Returning("*").Exec(context.Background())
	require.NoError(t, err)

	return book
}

func TestListCollectionsForUser_OnlyOwn(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")

	mine, err := svc.CreateCollection(ctx, owner.ID, "Моя подборка")
	require.NoError(t, err)
	_, err = svc.CreateCollection(ctx, other.ID, "Чужая подборка")
	require.NoError(t, err)

	book := createTestBook(t, db, "Книга")
	require.NoError(t, svc.AddBookToCollection(ctx, owner.ID, mine.ID, book.ID))

	collections, err := svc.ListCollectionsForUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, collections, 1)
	assert.Equal(t, "Моя подборка", collections[0].Name)
	assert.Equal(t, 1, collections[0].BookCount)
}

func TestRetrieveCollection_ForeignIsNotFound(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")

	collection, err := svc.CreateCollection(ctx, owner.ID, "Моя подборка")
	require.NoError(t, err)

	// Someone else's collection looks exactly like a missing one.
	_, err = svc.RetrieveCollection(ctx, RetrieveCollectionOptions{ID: collection.ID, UserID: other.ID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errcodes.NotFound("Collection")))

	retrieved, err := svc.RetrieveCollection(ctx, RetrieveCollectionOptions{ID: collection.ID, UserID: owner.ID})
	require.NoError(t, err)
	assert.Equal(t, collection.ID, retrieved.ID)
}

func TestAddBookToCollection(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	collection, err := svc.CreateCollection(ctx, owner.ID, "Моя подборка")
	require.NoError(t, err)
	book := createTestBook(t, db, "Книга")

	require.NoError(t, svc.AddBookToCollection(ctx, owner.ID, collection.ID, book.ID))

	retrieved, err := svc.RetrieveCollection(ctx, RetrieveCollectionOptions{ID: collection.ID, UserID: owner.ID})
	require.NoError(t, err)
	require.Len(t, retrieved.Books, 1)
	assert.Equal(t, book.ID, retrieved.Books[0].ID)
}

func TestAddBookToCollection_DuplicateConflicts(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	collection, err := svc.CreateCollection(ctx, owner.ID, "Моя подборка")
	require.NoError(t, err)
	book := createTestBook(t, db, "Книга")

	require.NoError(t, svc.AddBookToCollection(ctx, owner.ID, collection.ID, book.ID))

	err = svc.AddBookToCollection(ctx, owner.ID, collection.ID, book.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errcodes.Conflict("Book is already in this collection")))

	count, err := db.NewSelect().Model((*models.CollectionBook)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAddBookToCollection_MissingTargets(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")
	collection, err := svc.CreateCollection(ctx, owner.ID, "Моя подборка")
	require.NoError(t, err)
	book := createTestBook(t, db, "Книга")

	// Missing book.
	err = svc.AddBookToCollection(ctx, owner.ID, collection.ID, 12345)
	assert.True(t, errors.Is(err, errcodes.NotFound("Book")))

	// Missing collection.
	err = svc.AddBookToCollection(ctx, owner.ID, 12345, book.ID)
	assert.True(t, errors.Is(err, errcodes.NotFound("Collection")))

	// Someone else's collection.
	err = svc.AddBookToCollection(ctx, other.ID, collection.ID, book.ID)
	assert.True(t, errors.Is(err, errcodes.NotFound("Collection")))
}
