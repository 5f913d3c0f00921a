package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dveri-ekat/door-assistant/internal/catalog"
	"github.com/dveri-ekat/door-assistant/internal/collection"
	"github.com/dveri-ekat/door-assistant/internal/config"
	"github.com/dveri-ekat/door-assistant/internal/model"
)

const (
	maxSearchLimit  = 50
	shutdownTimeout = 10 * time.Second
)

var servePort int

// catalogAPI is the part of catalog.Service the HTTP handlers use.
type catalogAPI interface {
	Search(q string, limit int) []model.ScoredProduct
	Product(id string) (model.ProductRecord, bool)
	Collection(q string) (collection.Entry, bool)
	Stats() catalog.Stats
	Refresh(ctx context.Context) error
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the product search API and refresh the catalog on schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initCatalog(ctx, cfg, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Service.Init(ctx); err != nil {
			zap.L().Warn("catalog init incomplete, serving installed snapshot",
				zap.Bool("ready", env.Service.Stats().Ready),
				zap.Error(err),
			)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(ctx, env.Service, cfg.Catalog.StoreBaseURL, cfg.Server),
			ReadHeaderTimeout: 10 * time.Second,
		}
		sched := catalog.NewScheduler(env.Service, cfg.Catalog.RefreshInterval, cfg.Catalog.CheckInterval)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return sched.Run(gctx)
		})
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		// Graceful shutdown
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

// buildRouter wires the search API. ctx bounds background refreshes started
// through the API.
func buildRouter(ctx context.Context, svc catalogAPI, baseURL string, server config.ServerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", handleSearch(svc, baseURL))

		r.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
			p, ok := svc.Product(chi.URLParam(r, "id"))
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
				return
			}
			p.URL = p.AbsoluteURL(baseURL)
			writeJSON(w, http.StatusOK, p)
		})

		r.Get("/collections", func(w http.ResponseWriter, r *http.Request) {
			e, ok := svc.Collection(r.URL.Query().Get("q"))
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "no matching collection"})
				return
			}
			e.URL = model.ProductRecord{URL: e.URL}.AbsoluteURL(baseURL)
			writeJSON(w, http.StatusOK, e)
		})

		r.Get("/catalog", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, svc.Stats())
		})

		r.With(requireRefreshToken(server.RefreshToken)).Post("/catalog/refresh", func(w http.ResponseWriter, r *http.Request) {
			// Run refresh asynchronously
			go func() {
				if err := svc.Refresh(ctx); err != nil {
					zap.L().Error("manual refresh failed", zap.Error(err))
					return
				}
				zap.L().Info("manual refresh complete", zap.Int("products", svc.Stats().Products))
			}()
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
		})
	})

	return r
}

// requireRefreshToken admits requests carrying "Authorization: Bearer <token>".
// An empty token disables the route.
func requireRefreshToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "manual refresh disabled"})
				return
			}
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// handleSearch always answers 200 with a JSON array; any failure is an empty one.
func handleSearch(svc catalogAPI, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := []model.ScoredProduct{}
		defer func() {
			if rec := recover(); rec != nil {
				zap.L().Error("search handler panicked", zap.Any("panic", rec))
				results = []model.ScoredProduct{}
			}
			writeJSON(w, http.StatusOK, results)
		}()

		q := r.URL.Query()
		found := svc.Search(q.Get("q"), parseLimit(q.Get("limit")))
		for _, p := range found {
			p.URL = p.AbsoluteURL(baseURL)
			results = append(results, p)
		}
	}
}

// parseLimit maps the limit parameter to a Search limit. Missing or malformed
// values select the default.
func parseLimit(raw string) int {
	if raw == "" {
		return -1
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return -1
	}
	return min(n, maxSearchLimit)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
