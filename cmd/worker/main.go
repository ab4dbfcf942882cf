package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sethvargo/go-envconfig"
	"github.com/sethvargo/go-retry"
	"go.temporal.io/sdk/client"
	"golang.org/x/sync/errgroup"
	_ "golang.org/x/crypto/x509roots/fallback"
	_ "modernc.org/sqlite"

	"github.com/jdholdren/learninghub/internal/logger"
	"github.com/jdholdren/learninghub/internal/metadata"
	"github.com/jdholdren/learninghub/internal/migrations"
	hubsqlite "github.com/jdholdren/learninghub/internal/sqlite"
	"github.com/jdholdren/learninghub/internal/worker"
)

type config struct {
	Database          string `env:"DATABASE, required"`
	TemporalHostPort  string `env:"TEMPORAL_HOST_PORT, required"`
	TemporalNamespace string `env:"TEMPORAL_NAMESPACE, default=default"`

	AnthropicAPIKey string        `env:"ANTHROPIC_API_KEY"`
	MetadataTimeout time.Duration `env:"METADATA_TIMEOUT, default=5s"`
	MetricsPort     int           `env:"METRICS_PORT, default=9090"`

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

	if _, err := migrations.Run(dbx); err != nil {
		log.Fatalf("error running migrations: %s", err)
	}

	fetcher, err := metadata.NewFetcher(metadata.Config{Timeout: cfg.MetadataTimeout})
	if err != nil {
		log.Fatalf("error creating metadata fetcher: %s", err)
	}

	// Retry until temporal is ready
	var temporalCli client.Client
	if err := retry.Fibonacci(ctx, 1*time.Second, func(ctx context.Context) error {
		c, err := client.Dial(client.Options{
			HostPort:  cfg.TemporalHostPort,
			Namespace: cfg.TemporalNamespace,
		})
		if err != nil {
			slog.Warn("temporal not ready", "error", err)
			return retry.RetryableError(err)
		}
		temporalCli = c

		return nil
	}); err != nil {
		log.Fatalln("Unable to create Temporal client:", err)
	}
	defer temporalCli.Close()

	if err := worker.EnsureNamespace(ctx, temporalCli.WorkflowService(), cfg.TemporalNamespace); err != nil {
		log.Fatalf("error ensuring namespace: %s", err)
	}

	// Summaries are only written when there's a key for them
	var summarizer worker.Summarizer
	if cfg.AnthropicAPIKey != "" {
		claude := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
		summarizer = worker.NewClaudeSummarizer(&claude)
	}

	w, err := worker.NewWorker(ctx, hubsqlite.New(dbx), fetcher, summarizer, temporalCli)
	if err != nil {
		log.Fatalf("error creating worker: %s", err)
	}

	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: promhttp.Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stop := make(chan any)
		go func() {
			<-gctx.Done()
			close(stop)
		}()
		return w.Run(stop)
	})
	g.Go(func() error {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	slog.Info("started worker", "task_queue", worker.TaskQueue, "metrics_port", cfg.MetricsPort)
	if err := g.Wait(); err != nil {
		log.Fatalf("worker stopped: %s", err)
	}
}
