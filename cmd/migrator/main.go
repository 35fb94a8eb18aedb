package main

import (
	"context"
	"log"
	"time"

	"github.com/chris/custodial-ledger/pkg/config"
	"github.com/chris/custodial-ledger/pkg/storage/postgres"
)

// The migrator applies the Postgres schema ahead of a deploy so the server does not
// race other instances to do it.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Backend != config.BackendPostgres {
		log.Fatalf("STORE_BACKEND is %q; migrations only apply to postgres", cfg.Backend)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}
	log.Println("migrations applied")
}
