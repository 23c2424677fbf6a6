package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/army-battle/internal/api"
	"github.com/annel0/army-battle/internal/army"
	"github.com/annel0/army-battle/internal/auth"
	"github.com/annel0/army-battle/internal/cache"
	"github.com/annel0/army-battle/internal/config"
	"github.com/annel0/army-battle/internal/eventbus"
	"github.com/annel0/army-battle/internal/game"
	"github.com/annel0/army-battle/internal/logging"
	"github.com/annel0/army-battle/internal/network"
	"github.com/annel0/army-battle/internal/observability"
	"github.com/annel0/army-battle/internal/protocol"
	"github.com/annel0/army-battle/internal/scheduler"
	"github.com/annel0/army-battle/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML/TOML конфигурации (по умолчанию $BATTLE_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	logOpts := logging.Options{
		Dir:          cfg.Logging.Dir,
		ConsoleLevel: logging.ParseLevel(cfg.Logging.ConsoleLevel),
		FileLevel:    logging.ParseLevel(cfg.Logging.FileLevel),
		JSON:         cfg.Logging.JSON,
	}
	logging.GetLoggerManager().Configure(logOpts)
	if err := logging.InitDefaultLogger("server", logOpts); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🎮 Запуск Army Battle Server...")

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === ТЕЛЕМЕТРИЯ ===
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName)
		if err != nil {
			logging.Warn("OpenTelemetry недоступна: %v", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logging.Warn("Ошибка остановки OpenTelemetry: %v", err)
				}
			}()
		}
	}

	// === ХРАНИЛИЩЕ ===
	backend, err := storage.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("хранилище %q: %w", cfg.Storage.Backend, err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logging.Error("Ошибка закрытия хранилища: %v", err)
		}
	}()

	armies := backend.Armies
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			logging.Warn("Redis недоступен, кеш армий отключен: %v", err)
		} else {
			defer redisCache.Close()
			armies = cache.NewCachedArmyRepo(armies, redisCache, cfg.Cache.CacheTTL())
			logging.Info("Кеш армий включен (TTL %s)", cfg.Cache.CacheTTL())
		}
	}

	// === АУТЕНТИФИКАЦИЯ ===
	if cfg.Auth.JWTSecret != "" {
		if err := auth.SetJWTSecret(cfg.Auth.JWTSecret); err != nil {
			return fmt.Errorf("JWT секрет: %w", err)
		}
	} else {
		logging.Warn("JWT секрет не задан: используется случайный, токены не переживут перезапуск")
	}
	auth.SetTokenTTL(cfg.Auth.TokenDuration())

	authService := auth.NewService(backend.Users)
	if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		return err
	}

	// === ШИНА СОБЫТИЙ ===
	var bus eventbus.EventBus
	if cfg.EventBus.URL != "" {
		retention := time.Duration(cfg.EventBus.Retention) * time.Hour
		jsBus, err := eventbus.NewJetStreamBus(cfg.EventBus.URL, cfg.EventBus.Stream, retention)
		if err != nil {
			return fmt.Errorf("NATS JetStream: %w", err)
		}
		bus = jsBus
	} else {
		bus = eventbus.NewMemoryBus(cfg.EventBus.Capacity)
		logging.Info("Используется in-memory шина событий")
	}
	defer bus.Close()

	if sub, err := eventbus.StartLoggingListener(ctx, bus); err != nil {
		logging.Warn("Логгер событий не запущен: %v", err)
	} else {
		defer sub.Unsubscribe()
	}

	busMetrics := eventbus.NewMetricsExporter(bus, prometheus.DefaultRegisterer)
	busMetrics.Start(5 * time.Second)
	defer busMetrics.Stop()

	// === СИМУЛЯЦИЯ ===
	sched := scheduler.NewTickScheduler(cfg.Game.TickDuration())
	defer sched.Shutdown()

	factory := army.NewFactory(armies, army.WithEnforceBounds(cfg.Game.EnforceBounds))
	manager := game.NewManager(factory, sched, bus, game.ManagerConfig{
		TickPeriod:    cfg.Game.TickPeriod,
		AutosaveTicks: cfg.Game.AutosaveTicks,
		EventBuffer:   cfg.Game.EventBuffer,
	}, game.NewMetrics(prometheus.DefaultRegisterer))

	// === СЕТЬ ===
	hub := network.NewHub(bus, protocol.NewSerializer(cfg.Game.UseGzipCompr), network.HubOptions{
		Lookup: func(id string) bool {
			_, err := manager.Get(id)
			return err == nil
		},
		Metrics: network.NewMetrics(prometheus.DefaultRegisterer),
	})
	if err := hub.Start(ctx); err != nil {
		return fmt.Errorf("WebSocket-хаб: %w", err)
	}
	defer hub.Stop()

	gin.SetMode(gin.ReleaseMode)
	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	rest := api.NewRestServer(api.Config{
		Port:        restPort,
		ServiceName: cfg.Telemetry.ServiceName,
		Users:       backend.Users,
		Armies:      armies,
		Auth:        authService,
		Factory:     factory,
		Games:       manager,
		WebSocket:   hub,
		Registerer:  prometheus.DefaultRegisterer,
		Gatherer:    prometheus.DefaultGatherer,
	})

	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.GetMetricsPort()),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() { errCh <- rest.Start() }()
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics: %w", err)
		}
	}()

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API: http://localhost%s/api", restPort)
	logging.Info("   🔌 WebSocket: ws://localhost%s/ws?game=<id>", restPort)
	logging.Info("   📈 Метрики: http://localhost%s/metrics", metricsSrv.Addr)
	logging.Info("   💾 Хранилище: %s", backend.Name)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		logging.Info("📡 Получен сигнал %v, завершение работы...", sig)
	case runErr = <-errCh:
		logging.Error("Сервер завершился с ошибкой: %v", runErr)
	}

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()

	if err := rest.Stop(shutdownCtx); err != nil {
		logging.Error("Ошибка остановки REST API: %v", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Ошибка остановки сервера метрик: %v", err)
	}
	if err := manager.StopAll(shutdownCtx); err != nil {
		logging.Error("Ошибка сохранения игр при остановке: %v", err)
	}
	return runErr
}
