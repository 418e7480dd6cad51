package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/soledrop/soledrop-backend/internal/bootstrap"
	"github.com/soledrop/soledrop-backend/pkg/config"
	"github.com/soledrop/soledrop-backend/pkg/db"
	"github.com/soledrop/soledrop-backend/pkg/db/models"
	"github.com/soledrop/soledrop-backend/pkg/logger"
	"github.com/soledrop/soledrop-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate|seed")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

func run(opts options) error {
	// create and validate only touch the migrations directory
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return errors.New("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name, time.Now())
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	}

	cfg, logg, err := bootstrap.Load("migrate")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"cmd": opts.cmd,
		"dir": opts.dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer dbClient.Close()

	// The goose files are Postgres SQL; SQLite databases are built from the models.
	if dbClient.Dialect() == config.DriverSQLite {
		return runSQLite(ctx, logg, dbClient, opts.cmd)
	}

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("extract sql.DB: %w", err)
	}
	logg.Info(ctx, "migrate ready")
	return runGoose(ctx, logg, sqlDB, opts)
}

func runGoose(ctx context.Context, logg *logger.Logger, sqlDB *sql.DB, opts options) error {
	if opts.cmd == "seed" {
		return errors.New("sizings are seeded by the goose migrations; run -cmd=up")
	}
	runner, err := migrate.NewRunner(sqlDB, opts.dir)
	if err != nil {
		return err
	}
	switch opts.cmd {
	case "up":
		applied, err := runner.Up(ctx)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "applied", applied), "migrations applied")
		return nil
	case "down":
		version, err := runner.Down(ctx)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "version", version), "migration rolled back")
		return nil
	case "status":
		states, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		for _, st := range states {
			state := "pending"
			if st.Applied {
				state = "applied"
			}
			fmt.Printf("%d\t%s\t%s\n", st.Version, state, st.Path)
		}
		return nil
	case "version":
		if opts.version == "" {
			return errors.New("missing -version for version command")
		}
		return runner.MigrateTo(ctx, opts.version)
	default:
		return fmt.Errorf("unknown -cmd value: %s", opts.cmd)
	}
}

func runSQLite(ctx context.Context, logg *logger.Logger, dbClient *db.Client, cmd string) error {
	switch cmd {
	case "up":
		logg.Info(ctx, "building sqlite schema from models")
		if err := models.AutoMigrate(dbClient.DB()); err != nil {
			return err
		}
		return models.SeedSizings(dbClient.DB())
	case "seed":
		return models.SeedSizings(dbClient.DB())
	default:
		return fmt.Errorf("command %s is not supported on sqlite", cmd)
	}
}
