package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Skotchmaster/projects_api/internal/cache"
	"github.com/Skotchmaster/projects_api/internal/config"
	"github.com/Skotchmaster/projects_api/internal/db"
	"github.com/Skotchmaster/projects_api/internal/events"
	"github.com/Skotchmaster/projects_api/internal/hash"
	"github.com/Skotchmaster/projects_api/internal/httpserver"
	"github.com/Skotchmaster/projects_api/internal/logging"
	"github.com/Skotchmaster/projects_api/internal/metrics"
	authmw "github.com/Skotchmaster/projects_api/internal/middleware/auth"
	"github.com/Skotchmaster/projects_api/internal/repo"
	"github.com/Skotchmaster/projects_api/internal/search"
	"github.com/Skotchmaster/projects_api/internal/service"
	"github.com/Skotchmaster/projects_api/internal/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	ctx := logging.IntoContext(context.Background(), logger)

	gdb, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("migration error: %v", err)
	}
	store := repo.New(gdb)

	hasher, err := hash.New(cfg.PasswordHasher)
	if err != nil {
		log.Fatal(err)
	}

	var revoked service.RevocationRegistry = store
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = cache.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatalf("redis init error: %v", err)
		}
		revoked = cache.NewRedisRevocations(rdb, store, time.Now)
	}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.AuthTopic)
	}

	var searcher service.ProjectSearcher
	if cfg.ElasticsearchURL != "" {
		esClient, err := search.NewClient(ctx, cfg.ElasticsearchURL)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		searcher = search.NewIndex(esClient, cfg.ElasticsearchIndex)
	}

	m := metrics.New(prometheus.NewRegistry())

	authSvc := &service.AuthService{
		Users:      store,
		Ledger:     store,
		Revoked:    revoked,
		Hasher:     hasher,
		Issuer:     tokens.NewIssuer([]byte(cfg.JWT.Secret), cfg.JWT.AccessTTL(), time.Now),
		RefreshTTL: cfg.JWT.RefreshTTL(),
		Events:     publisher,
		Metrics:    m,
		Now:        time.Now,
	}
	if cfg.Admin.Email != "" {
		if err := authSvc.EnsureAdmin(ctx, store, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			log.Fatalf("admin bootstrap error: %v", err)
		}
		logger.Info("admin_ready", "email", service.NormalizeEmail(cfg.Admin.Email))
	}

	projectSvc := &service.ProjectService{
		Store:  store,
		Guard:  &service.Guard{Projects: store},
		Search: searcher,
		Now:    time.Now,
	}

	e := httpserver.New(&httpserver.Deps{
		Logger:         logger,
		Metrics:        m,
		Gate:           &authmw.Gate{Authenticator: authSvc, Metrics: m},
		AuthHandler:    &httpserver.AuthHTTP{Svc: authSvc},
		ProjectHandler: &httpserver.ProjectHTTP{Svc: projectSvc},
		HealthHandler: &httpserver.HealthHTTP{
			Service: cfg.ServiceName,
			Ready:   func(ctx context.Context) error { return db.Ping(ctx, gdb) },
		},
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	go func() {
		<-quit
		log.Println("force exit")
		os.Exit(1)
	}()

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db close error", "error", err)
	}

	logger.Info("shutdown complete")
}
