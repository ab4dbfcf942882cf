package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/jdholdren/learninghub/api"
	huberrs "github.com/jdholdren/learninghub/internal/errors"
	"github.com/jdholdren/learninghub/internal/hub"
	"github.com/jdholdren/learninghub/internal/ingest"
	"github.com/jdholdren/learninghub/internal/serverutil"
)

type (
	// Server handles requests to browse, submit and curate resources.
	Server struct {
		*http.Server

		repo     hub.Repository
		fetcher  ingest.MetadataFetcher
		pipeline *ingest.Pipeline

		sessions sessions
	}

	ServerConfig struct {
		Port           int
		CookieHashKey  []byte
		CookieBlockKey []byte
		HttpsCookies   bool
		CorsOrigin     string

		// How many pages a batch fetches metadata for at once
		FetchConcurrency int
	}

	Params struct {
		fx.In

		Config  ServerConfig
		Repo    hub.Repository
		Fetcher ingest.MetadataFetcher
	}
)

func NewServer(lc fx.Lifecycle, p Params) *Server {
	srvr := newServer(p.Config, p.Repo, p.Fetcher)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srvr.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("error listening", "error", err)
				}
			}()

			slog.Info("started api server", "port", p.Config.Port)

			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srvr.Shutdown(ctx)
		},
	})

	return srvr
}

func newServer(config ServerConfig, repo hub.Repository, fetcher ingest.MetadataFetcher) *Server {
	r := serverutil.ErrRouter{Router: mux.NewRouter()}

	corsOrigin := config.CorsOrigin
	if corsOrigin == "" {
		corsOrigin = "*"
	}

	srvr := &Server{
		repo:     repo,
		fetcher:  fetcher,
		pipeline: ingest.NewPipeline(repo, fetcher, config.FetchConcurrency),
		sessions: newSessions(config.CookieHashKey, config.CookieBlockKey, config.HttpsCookies),
		Server: &http.Server{
			Addr:        fmt.Sprintf(":%d", config.Port),
			ReadTimeout: 5 * time.Second,
			// Batches fetch a page per url, so writes get a long leash
			WriteTimeout: 2 * time.Minute,
			Handler: handlers.CORS(
				handlers.AllowedOrigins([]string{corsOrigin}),
				handlers.AllowCredentials(),
				handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
				handlers.AllowedHeaders([]string{"content-type"}),
			)(r),
		},
	}

	r.Use(serverutil.AccessLogMiddleware) // Log everything
	r.Use(serverutil.MetricsMiddleware)

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Learning Hub API is running"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Sessions
	r.HandleFuncE("/api/auth/login", srvr.postLogin).Methods(http.MethodPost)
	r.HandleFuncE("/api/auth/logout", srvr.postLogout).Methods(http.MethodPost)
	r.HandleFuncE("/api/viewer", srvr.getViewer).Methods(http.MethodGet)

	// Resources; the fixed paths go before {id} so they aren't taken for one
	r.HandleFuncE("/api/resources", srvr.getResources).Methods(http.MethodGet)
	r.HandleFuncE("/api/resources", srvr.postResource).Methods(http.MethodPost)
	r.HandleFuncE("/api/resources/batch", srvr.postBatch).Methods(http.MethodPost)
	r.HandleFuncE("/api/resources/metadata", srvr.getMetadata).Methods(http.MethodGet)
	r.HandleFuncE("/api/resources/{id}", srvr.getResource).Methods(http.MethodGet)
	r.HandleFuncE("/api/resources/{id}", srvr.deleteResource).Methods(http.MethodDelete)
	r.HandleFuncE("/api/resources/{id}/status", srvr.patchResourceStatus).Methods(http.MethodPatch)
	r.HandleFuncE("/api/resources/{id}/vote", srvr.postVote).Methods(http.MethodPost)

	// Teams
	r.HandleFuncE("/api/teams", srvr.getTeams).Methods(http.MethodGet)
	r.HandleFuncE("/api/teams", srvr.postTeam).Methods(http.MethodPost)
	r.HandleFuncE("/api/teams/{id}", srvr.getTeam).Methods(http.MethodGet)
	r.HandleFuncE("/api/teams/{id}", srvr.deleteTeam).Methods(http.MethodDelete)

	return srvr
}

// Decodes and validates a request body, turning validation failures into
// a 400 with the offending fields.
func decode[V serverutil.Validator](r *http.Request) (V, error) {
	v, err := serverutil.DecodeValid[V](r.Body)
	if err == nil {
		return v, nil
	}

	var apiErr api.Error
	if errors.As(err, &apiErr) {
		details := make([]huberrs.Detail, 0, len(apiErr.Details))
		for _, d := range apiErr.Details {
			details = append(details, huberrs.Detail{Field: d.Field, Error: d.Error})
		}
		return v, huberrs.E(http.StatusBadRequest, apiErr.Message, details)
	}

	return v, err
}

// Maps the repository's sentinels onto statuses.
func repoErr(err error, what string) error {
	switch {
	case errors.Is(err, hub.ErrNotFound):
		return huberrs.E(http.StatusNotFound, what+" not found")
	case errors.Is(err, hub.ErrConflict):
		return huberrs.E(http.StatusConflict, what+" already exists")
	default:
		return err
	}
}
