package postgres

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"testing"
	"time"
)

// newTestDB creates a throwaway database on the server named by PG_TEST_DSN and
// applies the migrations to it. Tests are skipped when the variable is unset.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	baseDSN := os.Getenv("PG_TEST_DSN")
	if baseDSN == "" {
		t.Skip("PG_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	admin, err := Open(ctx, baseDSN)
	if err != nil {
		t.Fatalf("open admin: %v", err)
	}

	var rnd [6]byte
	_, _ = rand.Read(rnd[:])
	dbName := "ledgertest_" + hex.EncodeToString(rnd[:])

	_, err = admin.ExecContext(ctx, fmt.Sprintf(`CREATE DATABASE "%s" WITH TEMPLATE template0 ENCODING 'UTF8'`, dbName))
	if err != nil {
		_ = admin.Close()
		t.Fatalf("create database: %v", err)
	}

	u, err := url.Parse(baseDSN)
	if err != nil {
		_ = admin.Close()
		t.Fatalf("parse dsn: %v", err)
	}
	u.Path = "/" + dbName

	db, err := Open(ctx, u.String())
	if err != nil {
		_ = admin.Close()
		t.Fatalf("open test db: %v", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		_ = admin.Close()
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()

		dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dcancel()
		_, _ = admin.ExecContext(dctx, fmt.Sprintf(`DROP DATABASE IF EXISTS "%s" WITH (FORCE)`, dbName))
		_ = admin.Close()
	})

	return db
}
