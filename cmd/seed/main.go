package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfmark/shelfmark/pkg/auth"
	"github.com/shelfmark/shelfmark/pkg/config"
	"github.com/shelfmark/shelfmark/pkg/database"
	"github.com/shelfmark/shelfmark/pkg/migrations"
	"github.com/shelfmark/shelfmark/pkg/seed"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	app := &cli.App{
		Name:        "seed",
		Usage:       "populate the database with fixture data",
		Description: "Inserts the default roles, demo users, genres, and sample books. Safe to run more than once.",
		Action: func(c *cli.Context) error {
			if _, err := migrations.BringUpToDate(c.Context, db); err != nil {
				return err
			}

			authService := auth.NewService(db, cfg.SessionSecret, cfg.BcryptCost)
			if err := seed.Run(c.Context, db, authService); err != nil {
				return err
			}

			log.Info("seed complete")
			return nil
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("app run error")
	}
}
