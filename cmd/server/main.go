package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dcbgate/internal/admin"
	"dcbgate/internal/audit"
	auditkafka "dcbgate/internal/audit/kafka"
	auditmemory "dcbgate/internal/audit/store/memory"
	auditpostgres "dcbgate/internal/audit/store/postgres"
	"dcbgate/internal/catalog"
	"dcbgate/internal/detect"
	"dcbgate/internal/gateway"
	gwmetrics "dcbgate/internal/gateway/metrics"
	"dcbgate/internal/operator"
	"dcbgate/internal/operator/transport"
	"dcbgate/internal/platform/config"
	"dcbgate/internal/platform/httpserver"
	"dcbgate/internal/platform/logger"
	platformredis "dcbgate/internal/platform/redis"
	"dcbgate/internal/registry"
	registrymemory "dcbgate/internal/registry/store/memory"
	registrypostgres "dcbgate/internal/registry/store/postgres"
	"dcbgate/internal/sandbox"
	sandboxmemory "dcbgate/internal/sandbox/store/memory"
	sandboxredis "dcbgate/internal/sandbox/store/redis"
	"dcbgate/internal/sla"
)

// main wires the catalog, adapters, registry, gateway, and both HTTP
// surfaces. Business logic lives in internal packages; everything here is
// construction and lifecycle.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	cat := catalog.New()
	detector := detect.New(cat)

	// Outbound operator connectivity.
	client := transport.New(cfg.OperatorBaseURL, cfg.OperatorAPIKey, cfg.OperatorAPISecret)
	adapters, err := operator.BuildAdapters(cat, client)
	if err != nil {
		log.Error("failed to build operator adapters", "error", err)
		os.Exit(1)
	}

	// Backing stores. Postgres and Redis are optional; in-memory fallbacks
	// keep single-node and development deployments simple.
	var (
		auditStore audit.Store
		stateStore registry.StateStore
		sbStore    sandbox.Store
		pool       *pgxpool.Pool
		auditDB    *sql.DB
	)
	if cfg.PostgresURL != "" {
		pool, err = pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pgStates := registrypostgres.New(pool)
		if err := pgStates.Migrate(ctx); err != nil {
			log.Error("failed to migrate operator state schema", "error", err)
			os.Exit(1)
		}
		stateStore = pgStates

		auditDB, err = sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("failed to open audit database", "error", err)
			os.Exit(1)
		}
		defer auditDB.Close()

		pgAudit := auditpostgres.New(auditDB)
		if err := pgAudit.Migrate(ctx); err != nil {
			log.Error("failed to migrate audit schema", "error", err)
			os.Exit(1)
		}
		auditStore = pgAudit
	} else {
		stateStore = registrymemory.New()
		auditStore = auditmemory.New()
	}

	redisClient, err := platformredis.New(cfg.Redis())
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		sbStore = sandboxredis.New(redisClient.Client)
	} else {
		sbStore = sandboxmemory.New()
	}

	// Audit publisher: primary store plus the optional Kafka stream.
	publisherOpts := []audit.PublisherOption{
		audit.WithLogger(log),
		audit.WithAsyncBuffer(1024),
	}
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := auditkafka.NewSink(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
		if err != nil {
			log.Error("failed to connect kafka audit sink", "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		publisherOpts = append(publisherOpts, audit.WithSink(sink))
	}
	publisher := audit.NewPublisher(auditStore, publisherOpts...)
	defer publisher.Close()

	reg, err := registry.New(ctx, adapters, stateStore,
		registry.WithLogger(log),
		registry.WithAuditPublisher(publisher),
	)
	if err != nil {
		log.Error("failed to build operator registry", "error", err)
		os.Exit(1)
	}

	gw := gateway.New(reg,
		gateway.WithLogger(log),
		gateway.WithAuditPublisher(publisher),
		gateway.WithMetrics(gwmetrics.New()),
	)

	currency := func(code string) string {
		def, err := cat.Lookup(code)
		if err != nil {
			return ""
		}
		return def.Currency
	}
	sandboxSvc := sandbox.New(sbStore, detector, currency, sandbox.WithLogger(log))

	// Protocol surface.
	allowlist, err := sla.NewIPAllowlist(cfg.AllowedCIDRs, log)
	if err != nil {
		log.Error("invalid SLA_ALLOWED_CIDRS", "error", err)
		os.Exit(1)
	}
	slaAuth := sla.NewAuth(cfg.SLAUsername, cfg.SLAPasswordHash, log)
	slaHandler := sla.NewHandler(gw, detector, cat, sandboxSvc, log)

	// Management surface.
	jwtService := admin.NewJWTService(cfg.AdminJWTSigningKey, "dcbgate", "dcbgate-admin")
	adminHandler := admin.New(reg, cat, auditStore, jwtService, log)

	router := chi.NewRouter()
	slaHandler.Register(router, slaAuth, allowlist)
	adminHandler.Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting dcbgate", "addr", cfg.Addr, "operators", len(adapters))

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
