// Command migrate manages the order sync engine's Postgres schema: the
// events and snapshots tables that back the event log and snapshot store.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/konozy/ordersync/config"
	"github.com/konozy/ordersync/database"
)

func main() {
	upCmd := flag.Bool("up", false, "Run all pending migrations")
	downCmd := flag.Bool("down", false, "Rollback the last migration")
	statusCmd := flag.Bool("status", false, "Show migration status")
	initCmd := flag.Bool("init", false, "Initialize the migrations table")
	dryRun := flag.Bool("dry-run", false, "Print migrations without applying them")
	verbose := flag.Bool("verbose", false, "Verbose migration logging")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("migrate: load config: %v", err)
	}

	db, err := database.Connect(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("migrate: connect: %v", err)
	}
	defer db.Close()

	log.Printf("migrate: connected to %s@%s:%s/%s",
		cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

	migrator := database.NewMigrator(db, database.WithDryRun(*dryRun), database.WithVerbose(*verbose))

	switch {
	case *initCmd:
		if err := migrator.Initialize(); err != nil {
			log.Fatalf("migrate: init: %v", err)
		}
		log.Println("migrate: migrations table initialized")

	case *upCmd:
		if err := migrator.Initialize(); err != nil {
			log.Fatalf("migrate: init: %v", err)
		}
		if err := migrator.Up(); err != nil {
			log.Fatalf("migrate: up: %v", err)
		}
		log.Println("migrate: all migrations applied")

	case *downCmd:
		if err := migrator.Down(); err != nil {
			log.Fatalf("migrate: down: %v", err)
		}
		log.Println("migrate: rolled back last migration")

	case *statusCmd:
		if err := migrator.Initialize(); err != nil {
			log.Fatalf("migrate: init: %v", err)
		}
		if err := migrator.Status(); err != nil {
			log.Fatalf("migrate: status: %v", err)
		}

	default:
		fmt.Println("Order Sync Engine - database migration tool")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  migrate -init          Initialize the migrations table")
		fmt.Println("  migrate -up            Run all pending migrations")
		fmt.Println("  migrate -down          Rollback the last migration")
		fmt.Println("  migrate -status        Show migration status")
		fmt.Println("  migrate -dry-run       Print migrations without applying")
		fmt.Println()
		fmt.Println("Configuration is read from the environment or a .env file (DB_HOST, DB_PORT, DB_NAME, DB_USER, DB_PASSWORD, DB_SSL_MODE).")
		os.Exit(1)
	}
}
