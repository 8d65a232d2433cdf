package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"shadow/internal/content"
	contenthandler "shadow/internal/content/handler"
	contentservice "shadow/internal/content/service"
	"shadow/internal/docstore"
	docmemory "shadow/internal/docstore/memory"
	docpostgres "shadow/internal/docstore/postgres"
	docredis "shadow/internal/docstore/redis"
	jwttoken "shadow/internal/jwt_token"
	naminghandler "shadow/internal/naming/handler"
	namingmetrics "shadow/internal/naming/metrics"
	namingservice "shadow/internal/naming/service"
	namingstore "shadow/internal/naming/store"
	"shadow/internal/platform/config"
	"shadow/internal/platform/httpserver"
	"shadow/internal/platform/logger"
	platformmetrics "shadow/internal/platform/metrics"
	"shadow/internal/platform/postgres"
	"shadow/internal/platform/redis"
	profilehandler "shadow/internal/profile/handler"
	profileservice "shadow/internal/profile/service"
	profilestore "shadow/internal/profile/store"
	ratelimithandler "shadow/internal/ratelimit/handler"
	ratelimitmetrics "shadow/internal/ratelimit/metrics"
	ratelimitmw "shadow/internal/ratelimit/middleware"
	ratelimitservice "shadow/internal/ratelimit/service"
	"shadow/internal/ratelimit/store/window"
	sitehandler "shadow/internal/site/handler"
	siteservice "shadow/internal/site/service"
	sitestore "shadow/internal/site/store"
	"shadow/internal/solana"
	solanahandler "shadow/internal/solana/handler"
	httptransport "shadow/internal/transport/http"
	"shadow/pkg/platform/audit"
	"shadow/pkg/platform/audit/publisher"
	auditkafka "shadow/pkg/platform/audit/store/kafka"
	auditmemory "shadow/pkg/platform/audit/store/memory"
	auditpostgres "shadow/pkg/platform/audit/store/postgres"
)

const auditBuffer = 1024

// infra holds the connections that outlive request handling and must be
// released on shutdown.
type infra struct {
	docs    docstore.Store
	db      *sql.DB
	checks  map[string]httptransport.HealthCheck
	closers []func() error
}

func (i *infra) close(log *slog.Logger) {
	for n := len(i.closers) - 1; n >= 0; n-- {
		if err := i.closers[n](); err != nil {
			log.Warn("failed to release resource", "error", err)
		}
	}
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Log.Level)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close(log)

	auditStore, err := openAuditStore(ctx, cfg, deps, log)
	if err != nil {
		return err
	}
	auditor := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(auditBuffer),
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics(reg)),
	)
	defer auditor.Close()

	tokens := jwttoken.NewWalletValidator(jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer))

	chain := solana.New(cfg.Solana, solana.WithLogger(log))
	deps.checks["solana"] = chain.Health

	contents, err := newContentService(ctx, cfg.Content, auditor, log)
	if err != nil {
		return err
	}

	authority, err := namingservice.New(namingstore.New(deps.docs),
		namingservice.WithLogger(log),
		namingservice.WithMetrics(namingmetrics.New(reg)),
		namingservice.WithAuditPublisher(auditor),
		namingservice.WithStoreTimeout(cfg.Store.Timeout),
	)
	if err != nil {
		return fmt.Errorf("naming authority: %w", err)
	}

	profiles := profileservice.New(profilestore.New(deps.docs), auditor, log, cfg.Store.Timeout)
	sites := siteservice.New(sitestore.New(deps.docs),
		siteservice.WithContentFetcher(contents),
		siteservice.WithAuditPublisher(auditor),
		siteservice.WithLogger(log),
		siteservice.WithStoreTimeout(cfg.Store.Timeout),
	)

	controller, err := ratelimitservice.New(window.NewInMemoryWindowStore(), cfg.RateLimit.Admission(),
		ratelimitservice.WithLogger(log),
		ratelimitservice.WithMetrics(ratelimitmetrics.New(reg)),
	)
	if err != nil {
		return fmt.Errorf("admission controller: %w", err)
	}
	admission := ratelimitmw.New(controller, log,
		ratelimitmw.WithDisabled(!cfg.RateLimit.Enabled),
		ratelimitmw.WithAuditPublisher(auditor),
	)

	proxies, err := cfg.Server.Proxies()
	if err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}

	router := httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		TrustedProxies: proxies,
		Observer:       platformmetrics.New(reg),
		Gatherer:       reg,
		Tokens:         tokens,
		Admission:      admission.Admit,
		AdminToken:     cfg.Admin.Token,
		Routes: []httptransport.Registrar{
			naminghandler.New(authority, chain, log, tokens),
			profilehandler.New(profiles, log, tokens),
			sitehandler.New(sites, chain, log, tokens),
			contenthandler.New(contents, log),
			solanahandler.New(chain, log),
		},
		Admin:  []httptransport.AdminRegistrar{ratelimithandler.New(controller, log)},
		Checks: deps.checks,
	})

	srv := httpserver.New(cfg.Server, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting shadow", "addr", cfg.Server.Addr(), "store", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// openInfra connects the document store backend the configuration selects.
func openInfra(ctx context.Context, cfg *config.Config, log *slog.Logger) (*infra, error) {
	deps := &infra{checks: make(map[string]httptransport.HealthCheck)}

	switch cfg.Store.Backend {
	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		deps.db = db
		deps.docs = docpostgres.New(db)
		deps.checks["store"] = db.PingContext
		deps.closers = append(deps.closers, db.Close)
	case config.StoreRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		if client == nil {
			return nil, errors.New("redis store selected but REDIS_URL is empty")
		}
		deps.docs = docredis.New(client.Client)
		deps.checks["store"] = client.Health
		deps.closers = append(deps.closers, client.Close)
	default:
		log.Warn("using in-memory store; records are lost on restart")
		deps.docs = docmemory.New()
	}
	deps.closers = append(deps.closers, deps.docs.Close)
	return deps, nil
}

// openAuditStore prefers Kafka, then the relational store, then memory.
func openAuditStore(ctx context.Context, cfg *config.Config, deps *infra, log *slog.Logger) (audit.Store, error) {
	if len(cfg.Kafka.Brokers) > 0 {
		k, err := auditkafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, fmt.Errorf("open kafka audit store: %w", err)
		}
		deps.closers = append(deps.closers, func() error {
			k.Close()
			return nil
		})
		if err := k.EnsureTopic(ctx, 1, 1); err != nil {
			return nil, fmt.Errorf("ensure audit topic: %w", err)
		}
		deps.checks["audit"] = k.Ping
		return k, nil
	}
	if deps.db != nil {
		return auditpostgres.New(deps.db), nil
	}
	log.Info("audit events kept in memory")
	return auditmemory.NewInMemoryStore(), nil
}

func newContentService(ctx context.Context, cfg config.ContentConfig, auditor contentservice.AuditPublisher, log *slog.Logger) (*contentservice.Service, error) {
	client := &http.Client{Timeout: cfg.FetchTimeout}
	opts := []contentservice.Option{
		contentservice.WithBackend(content.SchemeIPFS, content.NewPinata(cfg.PinataAPIURL, cfg.PinataJWT, cfg.IPFSGateway, client)),
		contentservice.WithBackend(content.SchemeArweave, content.NewBundlr(cfg.BundlrNodeURL, cfg.ArweaveGateway, client)),
		contentservice.WithAuditPublisher(auditor),
		contentservice.WithLogger(log),
	}
	if cfg.S3Bucket != "" {
		mirror, err := content.NewS3Mirror(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("s3 mirror: %w", err)
		}
		opts = append(opts, contentservice.WithBackend(content.SchemeS3, mirror))
	}
	return contentservice.New(opts...), nil
}
