package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/paper-guides/backend/conf"
	"github.com/paper-guides/backend/httpjson"
	"github.com/paper-guides/backend/logger"
	submhttp "github.com/paper-guides/backend/subm/http"
)

type HttpServer struct {
	router *chi.Mux
	logger *httplog.Logger
}

// NewHttpServer logs requests through log, the same logger the process uses.
func NewHttpServer(cfg *conf.Config, log *httplog.Logger, submHandler *submhttp.SubmHttpHandler) *HttpServer {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(httplog.RequestLogger(log))
	router.Use(logger.Middleware)
	router.Use(middleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           3000,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpjson.WriteSuccessJson(w, "ok")
	})
	submHandler.RegisterRoutes(router, []byte(cfg.JwtKey))

	return &HttpServer{router: router, logger: log}
}

// NewLogger builds the structured request logger.
func NewLogger(cfg conf.LogConfig) *httplog.Logger {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	return httplog.NewLogger("paper-guides", httplog.Options{
		JSON:             cfg.JSON,
		LogLevel:         level,
		Concise:          true,
		MessageFieldName: "message",
		QuietDownRoutes:  []string{"/healthz"},
		QuietDownPeriod:  time.Minute,
	})
}

func (s *HttpServer) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *HttpServer) Start(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
