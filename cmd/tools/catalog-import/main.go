// cmd/tools/catalog-import/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"rewards-strategist/internal/common/config"
	"rewards-strategist/internal/common/database"
	"rewards-strategist/internal/common/logger"
	"rewards-strategist/internal/store/cache"
	"rewards-strategist/internal/store/postgres"
	"rewards-strategist/pkg/catalog"
)

func main() {
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	importPath := importCmd.String("path", "configs/catalog.json", "Path to catalog file")
	configPath := importCmd.String("config", "", "Config file (default: loader search)")
	dryRun := importCmd.Bool("dry-run", false, "Validate and print what would be imported")

	validatePath := validateCmd.String("path", "configs/catalog.json", "Path to catalog file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "import":
		importCmd.Parse(os.Args[2:])
		if err := importCatalog(*importPath, *configPath, *dryRun); err != nil {
			fmt.Printf("Catalog import failed: %v\n", err)
			os.Exit(1)
		}

	case "validate":
		validateCmd.Parse(os.Args[2:])
		f, err := catalog.Load(*validatePath)
		if err != nil {
			fmt.Printf("Catalog validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Catalog validation passed. Found %d cards (version %s).\n", len(f.Cards), f.Version)

	case "help":
		fallthrough
	default:
		help()
	}
}

func importCatalog(path, configPath string, dryRun bool) error {
	f, err := catalog.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	cards := f.AvailableCards()

	if dryRun {
		for _, c := range cards {
			fmt.Printf("  %-24s %-18s %-8s fee=%.0f rates=%v\n", c.Name, c.Bank, c.RewardType, c.AnnualFee, c.CategoryRates)
		}
		fmt.Printf("Dry run: %d cards would be imported.\n", len(cards))
		return nil
	}

	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.NewStructured(cfg.Logging.Level, "console")

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store := postgres.New(pg, log)
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	for _, c := range cards {
		id, err := store.UpsertCatalogCard(ctx, c)
		if err != nil {
			return fmt.Errorf("upsert %s (%s): %w", c.Name, c.Bank, err)
		}
		fmt.Printf("  upserted #%d %s (%s)\n", id, c.Name, c.Bank)
	}

	// stale catalog entries would otherwise survive until catalog_ttl
	if cfg.Database.Redis.Enabled {
		redis, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			fmt.Printf("Warning: catalog cache not invalidated: connect redis: %v\n", err)
		} else {
			defer redis.Close()
			if err := cache.New(store, redis, cache.TTLsFrom(cfg.Cache), log).InvalidateCatalog(ctx); err != nil {
				fmt.Printf("Warning: catalog cache not invalidated: %v\n", err)
			}
		}
	}

	fmt.Printf("Imported %d cards from %s.\n", len(cards), path)
	return nil
}

func help() {
	fmt.Print(`
Usage: catalog-import <command> [flags]

Commands:
  import   Validate a catalog file and upsert it into the database
  validate Validate a catalog file without touching the database
  help     Show this help message

Examples:
  catalog-import validate -path configs/catalog.json
  catalog-import import -path configs/catalog.json -dry-run
  catalog-import import -path configs/catalog.json -config configs/config.yaml

Use 'catalog-import <command> -h' for more information about a command.
`)
}
