package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"duty-route-service/internal/adapters/cache"
	"duty-route-service/internal/adapters/gtfszip"
	"duty-route-service/internal/adapters/routing"
	"duty-route-service/internal/adapters/runpaths"
	"duty-route-service/internal/api"
	"duty-route-service/internal/api/handlers"
	"duty-route-service/internal/metrics"
	"duty-route-service/internal/platform/db"
	"duty-route-service/internal/ports"
)

// main is the application composition root.
// It wires concrete adapters (leg caches, ORS routing) behind ports and
// starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	port := getEnv("PORT", "8080")
	col := metrics.NewCollector()

	provider, err := buildProvider()
	if err != nil {
		log.Fatal(err)
	}

	legs, closeDB, err := buildLegCache()
	if err != nil {
		log.Fatal(err)
	}
	defer closeDB()

	app := handlers.NewApp(context.Background(), provider, legs, col)

	// Optional startup data so local runs don't need an upload round.
	if path := os.Getenv("TABLES_PATH"); path != "" {
		if err := loadTables(app, path); err != nil {
			log.Fatal(err)
		}
	}
	if path := os.Getenv("RUNPATHS_PATH"); path != "" {
		if err := loadRunPaths(app, path); err != nil {
			log.Fatal(err)
		}
	}

	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		col.Serve(addr)
	}

	router := api.NewRouter(app)

	// Timeouts are tuned for table uploads and cold-cache external lookups.
	log.Printf("Server listening addr=:%s", port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// buildProvider returns the ORS routing provider when a key is configured
// and the straight-line mock otherwise.
func buildProvider() (ports.RouteProvider, error) {
	orsKey := strings.TrimSpace(os.Getenv("ORS_API_KEY"))
	if orsKey == "" {
		log.Println("ORS_API_KEY not set; using the straight-line mock provider")
		return &routing.MockRouteProvider{}, nil
	}
	provider, err := routing.NewORSRouteProvider(orsKey)
	if err != nil {
		return nil, fmt.Errorf("build provider: %w", err)
	}
	return provider, nil
}

// buildLegCache layers the session memo over an optional persistent store:
// Postgres when DATABASE_URL is set, SQLite when SQLITE_PATH is set,
// memory only otherwise.
func buildLegCache() (ports.LegCache, func(), error) {
	size, _ := strconv.Atoi(getEnv("MEMO_CACHE_SIZE", "4096"))
	memo := cache.NewMemoryLegCache(size)
	noop := func() {}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		pg, err := db.Open(url)
		if err != nil {
			return nil, noop, fmt.Errorf("build leg cache: %w", err)
		}
		persistent := cache.NewSQLLegCache(pg)
		if err := persistent.InitSchema(context.Background()); err != nil {
			pg.Close()
			return nil, noop, fmt.Errorf("build leg cache: %w", err)
		}
		return cache.NewTieredLegCache(memo, persistent), func() { pg.Close() }, nil
	}

	if path := os.Getenv("SQLITE_PATH"); path != "" {
		lite, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, noop, fmt.Errorf("build leg cache: open sqlite %q: %w", path, err)
		}
		persistent := cache.NewSqliteLegCache(lite)
		if err := persistent.InitSchema(context.Background()); err != nil {
			lite.Close()
			return nil, noop, fmt.Errorf("build leg cache: %w", err)
		}
		return cache.NewTieredLegCache(memo, persistent), func() { lite.Close() }, nil
	}

	return memo, noop, nil
}

func loadTables(app *handlers.App, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load tables %q: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("load tables %q: %w", path, err)
	}
	tables, err := gtfszip.ParseTables(f, info.Size())
	if err != nil {
		return fmt.Errorf("load tables %q: %w", path, err)
	}
	app.SetTables(tables)
	log.Printf("tables loaded path=%s stops=%d trips=%d", path, len(tables.Stops), len(tables.Trips))
	return nil
}

func loadRunPaths(app *handlers.App, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load run paths %q: %w", path, err)
	}
	defer f.Close()

	paths, err := runpaths.ParseRunPaths(f)
	if err != nil {
		return fmt.Errorf("load run paths %q: %w", path, err)
	}
	app.SetRunPaths(paths)
	log.Printf("run paths loaded path=%s count=%d", path, len(paths))
	return nil
}
