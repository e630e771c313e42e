// Package seed populates a fresh database with the fixture roles, users,
// genres, and sample books used for local development. Running it twice is a
// no-op.
package seed

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfmark/shelfmark/pkg/auth"
	"github.com/shelfmark/shelfmark/pkg/models"
	"github.com/uptrace/bun"
)

type seedUser struct {
	username   string
	password   string
	lastName   string
	firstName  string
	middleName string
	roleName   string
}

var roles = []*models.Role{
	{Name: models.RoleAdministrator, Description: "Полный доступ"},
	{Name: models.RoleModerator, Description: "Редактирование книг и рецензий"},
	{Name: models.RoleUser, Description: "Может оставлять рецензии"},
}

var users = []seedUser{
	{"admin", "adminpass", "Админов", "Админ", "Админович", models.RoleAdministrator},
	{"mod", "modpass", "Модеров", "Мод", "Модович", models.RoleModerator},
	{"user", "userpass", "Юзеров", "Юзер", "Юзерович", models.RoleUser},
}

var genreNames = []string{"Фантастика", "Приключения", "Научные"}

type seedBook struct {
	title       string
	description string
	year        int
	publisher   string
	author      string
	pages       int
	genres      []string
}

var books = []seedBook{
	{
		title:       "Звёздный путь",
		description: "Про космос и приключения.",
		year:        2020,
		publisher:   "КосмоИздат",
		author:      "Иван Космонавтов",
		pages:       320,
		genres:      []string{"Фантастика", "Приключения"},
	},
	{
		title:       "Мозг и разум",
		description: "Научные исследования о мозге.",
		year:        2021,
		publisher:   "НаукаПресс",
		author:      "Доктор Разумов",
		pages:       280,
		genres:      []string{"Научные"},
	},
}

// Run inserts the fixture data, skipping any row that already exists.
func Run(ctx context.Context, db *bun.DB, authService *auth.Service) error {
	return db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		roleIDs, err := seedRoles(ctx, tx)
		if err != nil {
			return err
		}
		if err := seedUsers(ctx, tx, authService, roleIDs); err != nil {
			return err
		}
		genreIDs, err := seedGenres(ctx, tx)
		if err != nil {
			return err
		}
		return seedBooks(ctx, tx, genreIDs)
	})
}

func seedRoles(ctx context.Context, tx bun.Tx) (map[string]int, error) {
	ids := map[string]int{}

	for _, role := range roles {
		existing := &models.Role{}
		err := tx.
			NewSelect().
			Model(existing).
			Where("r.name = ?", role.Name).
			Scan(ctx)
		if err == nil {
			ids[role.Name] = existing.ID
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, errors.WithStack(err)
		}

		r := &models.Role{Name: role.Name, Description: role.Description}
		if _, err := tx.NewInsert().Model(r).Returning("*").Exec(ctx); err != nil {
			return nil, errors.WithStack(err)
		}
		ids[role.Name] = r.ID
	}

	return ids, nil
}

func seedUsers(ctx context.Context, tx bun.Tx, authService *auth.Service, roleIDs map[string]int) error {
	now := time.Now()

	for _, u := range users {
		exists, err := tx.
			NewSelect().
			Model((*models.User)(nil)).
			Where("username = ? COLLATE NOCASE", u.username).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if exists {
			continue
		}

		hash, err := authService.HashPassword(u.password)
		if err != nil {
			return err
		}

		middleName := u.middleName
		user := &models.User{
			CreatedAt:    now,
			UpdatedAt:    now,
			Username:     u.username,
			PasswordHash: hash,
			LastName:     u.lastName,
			FirstName:    u.firstName,
			MiddleName:   &middleName,
			RoleID:       roleIDs[u.roleName],
		}
		if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
	}

	return nil
}

func seedGenres(ctx context.Context, tx bun.Tx) (map[string]int, error) {
	ids := map[string]int{}

	for _, name := range genreNames {
		existing := &models.Genre{}
		err := tx.
			NewSelect().
			Model(existing).
			Where("g.name = ?", name).
			Scan(ctx)
		if err == nil {
			ids[name] = existing.ID
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, errors.WithStack(err)
		}

		g := &models.Genre{Name: name}
		if _, err := tx.NewInsert().Model(g).Returning("*").Exec(ctx); err != nil {
			return nil, errors.WithStack(err)
		}
		ids[name] = g.ID
	}

	return ids, nil
}

func seedBooks(ctx context.Context, tx bun.Tx, genreIDs map[string]int) error {
	now := time.Now()

	for _, b := range books {
		exists, err := tx.
			NewSelect().
			Model((*models.Book)(nil)).
			Where("title = ?", b.title).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if exists {
			continue
		}

		book := &models.Book{
			CreatedAt:   now,
			UpdatedAt:   now,
			Title:       b.title,
			Description: b.description,
			Year:        b.year,
			Publisher:   b.publisher,
			Author:      b.author,
			Pages:       b.pages,
		}
		if _, err := tx.NewInsert().Model(book).Returning("*").Exec(ctx); err != nil {
			return errors.WithStack(err)
		}

		for _, genreName := range b.genres {
			link := &models.BookGenre{
				BookID:  book.ID,
				GenreID: genreIDs[genreName],
			}
			if _, err := tx.NewInsert().Model(link).Exec(ctx); err != nil {
				return errors.WithStack(err)
			}
		}
	}

	return nil
}
