package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/threatwatch-dashboard/internal/alerts"
	"github.com/xela07ax/threatwatch-dashboard/internal/backend"
	"github.com/xela07ax/threatwatch-dashboard/internal/broadcast"
	"github.com/xela07ax/threatwatch-dashboard/internal/channel"
	"github.com/xela07ax/threatwatch-dashboard/internal/console/handler"
	"github.com/xela07ax/threatwatch-dashboard/internal/console/server"
	"github.com/xela07ax/threatwatch-dashboard/internal/console/service"
	"github.com/xela07ax/threatwatch-dashboard/internal/domain"
	"github.com/xela07ax/threatwatch-dashboard/internal/engine"
	"github.com/xela07ax/threatwatch-dashboard/internal/infra"
)

func main() {
	// 1. Конфиг и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// Контекст для управления жизненным циклом фоновых горутин
	// При SIGTERM cancel() остановит координатор, push-канал и слушателей Redis
	appCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 2. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(reg)

	// 3. Клиент сервиса детекции + надежность (Rate Limiter -> CB -> Retry)
	client, err := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger)
	if err != nil {
		logger.Fatal("backend client", zap.Error(err))
	}
	fetcher := engine.NewReliableFetcher(client, engine.ReliabilityConfig{
		RetryAttempts: cfg.Reliability.RetryAttempts,
		CBMaxRequests: cfg.Reliability.CBMaxRequests,
		CBInterval:    cfg.Reliability.CBInterval,
		CBTimeout:     cfg.Reliability.CBTimeout,
		CBFailures:    cfg.Reliability.CBFailures,
		RateLimit:     cfg.Reliability.RateLimit,
		RateBurst:     cfg.Reliability.RateBurst,
		CallTimeout:   cfg.Backend.Timeout,
	}, metrics, logger)

	// 4. Fan-out в Redis (опционально)
	var (
		rdb       *redis.Client
		publisher *broadcast.Publisher
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()

		publisher = broadcast.NewPublisher(broadcast.NewRedisSink(rdb), infra.RedisChanView, infra.RedisChanAlerts, 256, logger)
		publisher.Start()
		defer publisher.Stop()
	}

	// 5. Лента уведомлений
	alertLog := alerts.NewLog(cfg.Alerts.Capacity, logger)
	alertLog.OnRecord(func(a domain.Alert) {
		metrics.ObserveAlert(a)
		if publisher != nil {
			publisher.PublishAlert(a)
		}
	})

	// 6. Координатор
	opts := engine.Options{
		PollInterval: cfg.Sync.PollInterval,
		FetchTimeout: cfg.Sync.FetchTimeout,
	}
	if publisher != nil {
		opts.Publisher = publisher
	}
	coord := engine.NewCoordinator(fetcher, cfg.Fallback.Policy(), alertLog, metrics, logger, opts)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := coord.Run(appCtx); err != nil {
			logger.Error("coordinator exited", zap.Error(err))
		}
	}()

	// 7. Push-канал: события идут в ту же очередь координатора
	push := channel.NewClient(channel.WSURL(client.BaseURL(), cfg.Backend.WSPath), coord, channel.ReconnectPolicy{
		Enabled:  cfg.Channel.Reconnect,
		Attempts: cfg.Channel.ReconnectAttempts,
		Delay:    cfg.Channel.ReconnectDelay,
	}, logger)
	go func() {
		defer wg.Done()
		if err := push.Run(appCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("push channel finished", zap.Error(err))
		}
	}()

	if rdb != nil {
		go engine.ListenRefreshRequests(appCtx, rdb, logger, infra.RedisChanRefresh, coord.Trigger)
	}

	// 8. Console API
	actions := service.NewActionService(client, coord, alertLog, logger)
	consoleSrv := server.NewConsoleServer(
		logger,
		reg,
		handler.NewDashboardHandler(service.NewDashboardService(coord, alertLog)),
		handler.NewSystemHandler(service.NewStatusService(client)),
		handler.NewActionHandler(actions),
	)
	srv := &http.Server{
		Addr:         cfg.Server.ListenAddr(),
		Handler:      consoleSrv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("dashboard console started",
			zap.String("addr", srv.Addr),
			zap.String("backend", cfg.Backend.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// 9. Graceful Shutdown
	<-appCtx.Done()
	logger.Info("dashboard stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	wg.Wait()
	logger.Info("dashboard exited properly")
}
