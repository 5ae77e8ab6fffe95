package main

import (
	"context"
	"log"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"duty-route-service/internal/adapters/cache"
	"duty-route-service/internal/platform/db"
)

// dbtool initializes the Postgres leg cache schema so the server can run
// against a database the service account cannot create tables in.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	pg, err := db.Open(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pg.Close()

	log.Println("Initializing leg cache schema...")
	if err := cache.NewSQLLegCache(pg).InitSchema(context.Background()); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")
}
