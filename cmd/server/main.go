package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/paper-guides/backend/captcha"
	"github.com/paper-guides/backend/conf"
	"github.com/paper-guides/backend/http"
	"github.com/paper-guides/backend/logger"
	"github.com/paper-guides/backend/subm"
	submhttp "github.com/paper-guides/backend/subm/http"
	"github.com/paper-guides/backend/subm/pgrepo"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to an optional TOML config file")
	migrationsDir := flag.String("migrations", "migrate", "directory with SQL migrations")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", "error", err)
	}

	cfg, err := conf.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	httpLog := http.NewLogger(cfg.Log)
	log := httpLog.Logger
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	connStr, err := cfg.PgConnStr(ctx, nil)
	if err != nil {
		log.Error("failed to build postgres connection string", "error", err)
		os.Exit(1)
	}
	if err := pgrepo.Migrate(connStr, *migrationsDir, log); err != nil {
		log.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := pgrepo.NewStore(pool)
	moderator := subm.NewModerator(store)
	ingester := subm.NewIngester(store, moderator, cfg.MaxBlobBytes)
	verifier := captcha.NewVerifier(cfg.CaptchaConfig())

	handler := submhttp.NewSubmHttpHandler(ingester, moderator, verifier, cfg.MaxRequestBytes)
	server := http.NewHttpServer(cfg, httpLog, handler)

	if err := server.Start(ctx, cfg.ListenAddr); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
