package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"visado/internal/evaluation"
	evalhandler "visado/internal/evaluation/handler"
	evalmetrics "visado/internal/evaluation/metrics"
	"visado/internal/facts"
	factshandler "visado/internal/facts/handler"
	factstore "visado/internal/facts/store"
	"visado/internal/platform/config"
	"visado/internal/platform/httpserver"
	"visado/internal/platform/logger"
	platformmetrics "visado/internal/platform/metrics"
	platformredis "visado/internal/platform/redis"
	"visado/internal/rules/authoring"
	rulescache "visado/internal/rules/cache"
	ruleshandler "visado/internal/rules/handler"
	"visado/internal/rules/resolver"
	rulestore "visado/internal/rules/store"
	auditpublisher "visado/pkg/platform/audit/publisher"
	auditkafka "visado/pkg/platform/audit/sink/kafka"
	auditmemory "visado/pkg/platform/audit/store/memory"
	"visado/pkg/platform/middleware/admin"
	"visado/pkg/platform/middleware/requestid"
	"visado/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx := context.Background()

	// Store selection: Postgres when DATABASE_URL is set, in-memory otherwise.
	var (
		rules interface {
			authoring.Store
			resolver.VersionStore
			rulescache.RequirementLoader
		}
		factStore facts.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Error("database ping failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		rules = rulestore.NewPostgres(db)
		factStore = factstore.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		rules = rulestore.NewInMemoryStore()
		factStore = factstore.NewInMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	// Audit trail: Kafka sink when brokers are configured, otherwise an
	// in-process store.
	var sink auditpublisher.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := auditkafka.New(cfg.KafkaBrokers)
		if err != nil {
			log.Error("failed to connect kafka audit sink", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
		log.Info("audit events publishing to kafka", "brokers", cfg.KafkaBrokers)
	} else {
		sink = auditmemory.NewInMemoryStore()
		log.Warn("KAFKA_BROKERS not set, audit events stay in-process")
	}
	auditPub := auditpublisher.NewPublisher(sink,
		auditpublisher.WithAsyncBuffer(256),
		auditpublisher.WithLogger(log),
	)
	defer auditPub.Close()

	appMetrics := platformmetrics.New()

	factsSvc, err := facts.New(factStore,
		facts.WithLogger(log),
		facts.WithAuditPublisher(auditPub),
		facts.WithMetrics(appMetrics),
	)
	if err != nil {
		log.Error("failed to build fact service", "error", err)
		os.Exit(1)
	}

	authoringSvc, err := authoring.New(rules,
		authoring.WithLogger(log),
		authoring.WithAuditPublisher(auditPub),
	)
	if err != nil {
		log.Error("failed to build authoring service", "error", err)
		os.Exit(1)
	}

	versionResolver, err := resolver.New(rules, log)
	if err != nil {
		log.Error("failed to build version resolver", "error", err)
		os.Exit(1)
	}

	// Optional Redis read-through cache for requirement sets.
	requirements := rulescache.RequirementLoader(rules)
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		cached, err := rulescache.New(redisClient.Client, rules,
			rulescache.WithTTL(cfg.RuleCacheTTL),
			rulescache.WithLogger(log),
		)
		if err != nil {
			log.Error("failed to build requirement cache", "error", err)
			os.Exit(1)
		}
		requirements = cached
		log.Info("requirement cache enabled", "ttl", cfg.RuleCacheTTL)
	}

	evalSvc, err := evaluation.New(factStore, rules, versionResolver, requirements,
		evaluation.WithLogger(log),
		evaluation.WithMetrics(evalmetrics.New()),
		evaluation.WithAuditPublisher(auditPub),
	)
	if err != nil {
		log.Error("failed to build evaluation service", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(requestid.Middleware)
	router.Use(requesttime.Middleware)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())

	evalhandler.New(evalSvc, log).Register(router)

	router.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(cfg.AdminToken, log))
		ruleshandler.New(authoringSvc, log).Register(r)
		factshandler.New(factsSvc, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting visado", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
