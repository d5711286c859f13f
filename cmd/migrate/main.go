// cmd/migrate/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"rewards-strategist/internal/common/config"
	"rewards-strategist/internal/common/database"
	"rewards-strategist/internal/common/logger"
	"rewards-strategist/internal/store/postgres"
)

func main() {
	configPath := flag.String("config", "", "config file (default: configs/config.yaml via loader search)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: migrate [-config path] up|down|status|version")
	}
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, "console")
	defer zapLog.Sync()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, command, pg, zapLog); err != nil {
		zapLog.Fatal("migration command failed", zap.String("command", command), zap.Error(err))
	}
}

func run(ctx context.Context, command string, pg *database.PostgresClient, log *zap.Logger) error {
	switch command {
	case "up":
		if err := pg.Migrate(ctx, postgres.Migrations, postgres.MigrationsDir); err != nil {
			return err
		}
	case "down", "status":
		goose.SetBaseFS(postgres.Migrations)
		if err := goose.SetDialect("postgres"); err != nil {
			return err
		}
		if command == "down" {
			if err := goose.DownContext(ctx, pg.GetDB(), postgres.MigrationsDir); err != nil {
				return err
			}
		} else if err := goose.StatusContext(ctx, pg.GetDB(), postgres.MigrationsDir); err != nil {
			return err
		}
	case "version":
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}

	version, err := pg.MigrationVersion(ctx)
	if err != nil {
		return err
	}
	log.Info("schema version", zap.Int64("version", version))
	return nil
}
