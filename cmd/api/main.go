package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"go.uber.org/fx"
	_ "golang.org/x/crypto/x509roots/fallback"
	_ "modernc.org/sqlite"

	"github.com/jdholdren/learninghub/internal/api"
	"github.com/jdholdren/learninghub/internal/hub"
	"github.com/jdholdren/learninghub/internal/ingest"
	"github.com/jdholdren/learninghub/internal/logger"
	"github.com/jdholdren/learninghub/internal/metadata"
	"github.com/jdholdren/learninghub/internal/migrations"
	hubsqlite "github.com/jdholdren/learninghub/internal/sqlite"
)

type config struct {
	Database string `env:"DATABASE, required"`

	Port           int    `env:"PORT, default=5000"`
	CorsOrigin     string `env:"CORS_ORIGIN, default=*"`
	HTTPSCookies   bool   `env:"HTTPS_COOKIES, default=false"`
	CookieHashKey  string `env:"COOKIE_HASH_KEY"`
	CookieBlockKey string `env:"COOKIE_BLOCK_KEY"`

	MetadataTimeout   time.Duration `env:"METADATA_TIMEOUT, default=5s"`
	MetadataCacheSize int           `env:"METADATA_CACHE_SIZE, default=1024"`
	FetchConcurrency  int           `env:"FETCH_CONCURRENCY, default=4"`

	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// A .env file is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("error loading .env: %s", err)
	}

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	slog.SetDefault(logger.New(os.Stdout, cfg.LoggerFormat))

	// Connect to the sqlite db
	dbx, err := sqlx.Open("sqlite", cfg.Database+hubsqlite.DSNParams)
	if err != nil {
		log.Fatalf("error opening database: %s", err)
	}
	defer dbx.Close()

	// Run all migrations
	if _, err := migrations.Run(dbx); err != nil {
		log.Fatalf("error running migrations: %s", err)
	}

	repo := hubsqlite.New(dbx)

	fetcher, err := metadata.NewFetcher(metadata.Config{
		Timeout:   cfg.MetadataTimeout,
		CacheSize: cfg.MetadataCacheSize,
	})
	if err != nil {
		log.Fatalf("error creating metadata fetcher: %s", err)
	}

	// Start the application
	fx.New(
		fx.Supply(
			api.ServerConfig{
				Port:             cfg.Port,
				CookieHashKey:    cookieKey(cfg.CookieHashKey, "COOKIE_HASH_KEY"),
				CookieBlockKey:   cookieKey(cfg.CookieBlockKey, "COOKIE_BLOCK_KEY"),
				HttpsCookies:     cfg.HTTPSCookies,
				CorsOrigin:       cfg.CorsOrigin,
				FetchConcurrency: cfg.FetchConcurrency,
			},
			fx.Annotate(repo, fx.As(new(hub.Repository))),
			fx.Annotate(fetcher, fx.As(new(ingest.MetadataFetcher))),
		),
		api.Module,
		fx.Invoke(func(*api.Server) {}), // Start the API server
	).Run()
}

// Sessions don't survive a restart when the key is generated.
func cookieKey(configured, name string) []byte {
	if configured != "" {
		return []byte(configured)
	}

	slog.Warn("no cookie key configured, generating one", "env", name)
	return securecookie.GenerateRandomKey(32)
}
