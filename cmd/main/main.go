package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-wa-crm/internal/api"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/auth"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/config"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/dispatch"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/healthcheck"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/ingestion"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/ingestion/handler"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/jetstream"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/observer"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/provider"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/realtime"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/storage"
	"gitlab.com/timkado/api/daisi-wa-crm/internal/usecase"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/logger"
	"gitlab.com/timkado/api/daisi-wa-crm/pkg/utils"
)

const shutdownTimeout = 30 * time.Second

func main() {
	time.Local = time.UTC

	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	observer.InitMetrics(cfg.Metrics.Enabled)

	logger.Log.Info("Starting Daisi WA CRM",
		zap.String("environment", cfg.Environment),
		zap.String("nats_url", cfg.NATS.URL),
		zap.String("provider", cfg.Provider.Driver),
		zap.Bool("redis_relay", cfg.Redis.Enabled),
	)

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret)
	if err != nil {
		logger.Log.Fatal("Failed to initialize token verifier", zap.Error(err))
	}

	postgresRepo, err := initPostgresRepo(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	jsClient, err := jetstream.NewClient(cfg.NATS.URL, "daisi-wa-crm")
	if err != nil {
		logger.Log.Fatal("Failed to initialize JetStream client", zap.Error(err))
	}

	setupCtx, setupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := dispatch.Setup(setupCtx, jsClient, cfg.NATS.Dispatch); err != nil {
		setupCancel()
		logger.Log.Fatal("Failed to set up dispatch stream", zap.Error(err))
	}
	setupCancel()

	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	// Realtime: events go through the Redis relay when enabled so every
	// instance's hub sees them, otherwise straight to the local hub.
	hub := realtime.NewHub()
	deliver := realtime.DeliverFunc(hub.Broadcast)
	var relay *realtime.RedisRelay
	if cfg.Redis.Enabled {
		relay, err = realtime.NewRedisRelay(mainCtx, cfg.Redis, hub)
		if err != nil {
			logger.Log.Fatal("Failed to initialize Redis relay", zap.Error(err))
		}
		deliver = relay.Publish
		go relay.Run(mainCtx)
	}

	emitter, err := realtime.NewPoolEmitter(cfg.WorkerPools.Realtime, deliver)
	if err != nil {
		logger.Log.Fatal("Failed to initialize realtime emitter", zap.Error(err))
	}

	service := usecase.NewCRMService(
		storage.NewContactRepoAdapter(postgresRepo),
		storage.NewChannelAccountRepoAdapter(postgresRepo),
		storage.NewFunnelRepoAdapter(postgresRepo),
		storage.NewTicketRepoAdapter(postgresRepo),
		storage.NewMessageRepoAdapter(postgresRepo),
		storage.NewUserRepoAdapter(postgresRepo),
		emitter,
		dispatch.NewPublisher(jsClient, cfg.NATS.Dispatch),
	)

	sender, err := provider.NewSender(cfg.Provider, logger.Log)
	if err != nil {
		logger.Log.Fatal("Failed to initialize provider sender", zap.Error(err))
	}

	dispatchWorker, err := dispatch.NewWorker(cfg, logger.Log, jsClient, sender, service,
		storage.NewExhaustedDispatchRepoAdapter(postgresRepo))
	if err != nil {
		logger.Log.Fatal("Failed to initialize dispatch worker", zap.Error(err))
	}

	webhookHandler := handler.NewWebhookHandler(service)
	router := ingestion.NewRouter()
	router.Register(model.WebhookMessagesUpsert, webhookHandler.HandleEvent)
	router.Register(model.WebhookConnectionUpdate, webhookHandler.HandleEvent)
	router.RegisterDefault(webhookHandler.HandleUnknown)

	httpServer := &http.Server{
		Addr: ":" + strconv.Itoa(cfg.Server.Port),
		Handler: api.NewRouter(api.Routes{
			API:      api.NewHandler(service),
			Webhooks: ingestion.NewWebhookServer(router),
			Realtime: realtime.NewHandler(hub, verifier, emitter, realtime.OptionsFromConfig(cfg.Realtime)),
			Verifier: verifier,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	healthServer := healthcheck.NewServer(strconv.Itoa(cfg.Metrics.Port), logger.Log)
	healthServer.AddCheck("postgres", postgresRepo.Ping)
	healthServer.AddCheck("nats", func(context.Context) error {
		if !jsClient.IsConnected() {
			return fmt.Errorf("%w: not connected", apperrors.ErrNATS)
		}
		return nil
	})
	if relay != nil {
		healthServer.AddCheck("redis", relay.Ping)
	}
	if cfg.Metrics.Enabled {
		healthServer.RegisterMetricsHandler(promhttp.Handler())
		logger.Log.Info("Metrics endpoint enabled", zap.String("path", "/metrics"), zap.Int("port", cfg.Metrics.Port))
	}
	healthServer.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	utils.SafeGo(func() {
		logger.Log.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("HTTP server failed, initiating shutdown...", zap.Error(err))
			requestShutdown(sigChan)
		}
	}, nil)

	go func() {
		if err := dispatchWorker.Start(mainCtx); err != nil {
			logger.Log.Error("Dispatch worker failed to start, initiating shutdown...", zap.Error(err))
			mainCancel()
			requestShutdown(sigChan)
		}
	}()

	sig := <-sigChan
	logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))
	mainCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", shutdownTimeout))

	var wg sync.WaitGroup
	stopComponent := func(name string, stop func() error) {
		wg.Add(1)
		utils.SafeGo(func() {
			defer wg.Done()
			logger.Log.Info("[shutdown] Stopping " + name)
			start := time.Now()
			if err := stop(); err != nil {
				logger.Log.Error("[shutdown] Error stopping "+name, zap.Error(err))
				return
			}
			logger.Log.Info("[shutdown] Stopped "+name, zap.Duration("duration", time.Since(start)))
		}, func(r interface{}, stack []byte) {
			logger.Log.Error("[shutdown] Panic while stopping "+name,
				zap.Any("panic", r),
				zap.ByteString("stack", stack),
			)
		})
	}

	stopComponent("HTTP server", func() error { return httpServer.Shutdown(shutdownCtx) })
	stopComponent("dispatch worker", func() error { dispatchWorker.Stop(); return nil })
	stopComponent("health check server", func() error { return healthServer.Stop(shutdownCtx) })
	wg.Wait()

	// Released once HTTP handlers have drained.
	emitter.Release()
	if relay != nil {
		if err := relay.Close(); err != nil {
			logger.Log.Warn("[shutdown] Failed to close Redis relay", zap.Error(err))
		}
	}
	jsClient.Close()
	if err := postgresRepo.Close(shutdownCtx); err != nil {
		logger.Log.Error("[shutdown] Failed to close PostgreSQL connection", zap.Error(err))
	}

	logger.Log.Info("Daisi WA CRM shutdown complete")
}

func requestShutdown(sigChan chan os.Signal) {
	select {
	case sigChan <- syscall.SIGTERM:
	default:
		logger.Log.Warn("Could not send SIGTERM to signal channel immediately")
	}
}

func initPostgresRepo(cfg *config.Config) (*storage.PostgresRepo, error) {
	if cfg.Database.PostgresDSN == "" {
		return nil, fmt.Errorf("%w: postgres DSN is required", apperrors.ErrConfiguration)
	}

	repo, err := storage.NewPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.AutoMigrate, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
	}
	return repo, nil
}
