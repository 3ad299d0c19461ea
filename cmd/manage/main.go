// Command manage runs administrative tasks against the configured store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli"

	"myrestaurants/internal/adapters/auth"
	"myrestaurants/internal/adapters/observability"
	"myrestaurants/internal/domain"
	"myrestaurants/internal/fixtures"
	"myrestaurants/internal/shared"
	mysqlrepo "myrestaurants/internal/storage/mysql"
)

var store *mysqlrepo.Store

var migrate = cli.Command{
	Name:  "migrate",
	Usage: "create the database schema if it is missing",
	Action: func(c *cli.Context) error {
		log.Info().Msg("schema is up to date")
		return nil
	},
}

var loadData = cli.Command{
	Name:      "loaddata",
	Usage:     "load YAML fixtures into the database",
	ArgsUsage: "FILE...",
	Flags: []cli.Flag{
		cli.IntFlag{
			Name:  "workers",
			Value: runtime.NumCPU(),
			Usage: "write this many objects in parallel",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() == 0 {
			return cli.NewExitError("loaddata needs at least one fixture file", 2)
		}
		n, err := fixtures.NewLoader(store, c.Int("workers")).LoadFiles(context.Background(), c.Args()...)
		if err != nil {
			return err
		}
		log.Info().Int("objects", n).Int("files", c.NArg()).Msg("installed fixtures")
		return nil
	},
}

var createUser = cli.Command{
	Name:  "createuser",
	Usage: "create a login account",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "username",
			Usage: "login name",
		},
		cli.StringFlag{
			Name:   "password",
			Usage:  "initial password",
			EnvVar: "MANAGE_PASSWORD",
		},
	},
	Action: func(c *cli.Context) error {
		username := strings.TrimSpace(c.String("username"))
		if username == "" || c.String("password") == "" {
			return cli.NewExitError("--username and --password are required", 2)
		}
		hash, err := auth.HashPassword(c.String("password"))
		if err != nil {
			return err
		}
		u, err := store.Users().Create(context.Background(), domain.User{Username: username, PasswordHash: hash})
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return cli.NewExitError(fmt.Sprintf("user %q already exists", username), 1)
		}
		if err != nil {
			return err
		}
		log.Info().Int64("id", u.ID).Str("username", u.Username).Msg("user created")
		return nil
	},
}

func main() {
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	app := cli.NewApp()
	app.Name = "manage"
	app.Usage = "administer the restaurants database"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "dsn",
			Value:  cfg.MySQLDSN,
			Usage:  "MySQL data source name",
			EnvVar: "MYSQL_DSN",
		},
	}
	app.Commands = []cli.Command{
		migrate,
		loadData,
		createUser,
	}
	app.Before = func(c *cli.Context) error {
		ctx := context.Background()
		db, err := mysqlrepo.Open(ctx, c.String("dsn"))
		if err != nil {
			return err
		}
		if err := mysqlrepo.Bootstrap(ctx, db); err != nil {
			return err
		}
		store = mysqlrepo.New(db)
		return nil
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("manage failed")
	}
}
