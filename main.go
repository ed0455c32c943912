package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sjsage522/pricewatcher/config"
	"sjsage522/pricewatcher/helpers"
	"sjsage522/pricewatcher/internal/alert"
	"sjsage522/pricewatcher/internal/fetcher"
	"sjsage522/pricewatcher/internal/model"
	"sjsage522/pricewatcher/internal/scraper"
	"sjsage522/pricewatcher/logger"
	"sjsage522/pricewatcher/services/cache"
	"sjsage522/pricewatcher/services/notify"
	"sjsage522/pricewatcher/services/publisher"
	"sjsage522/pricewatcher/services/scheduler"
	"sjsage522/pricewatcher/services/store"
	"sjsage522/pricewatcher/services/worker"

	"github.com/joho/godotenv"
)

const shutdownGrace = 30 * time.Second

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Dur("check_interval", cfg.CheckInterval).
		Str("store", cfg.StoreDriver).
		Str("render_backend", cfg.RenderBackend).
		Str("alert_repeat", string(cfg.AlertRepeat)).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	var failures helpers.FailureLog = helpers.NopFailureLog{}
	if cfg.ErrorLogFile != "" {
		failures = helpers.NewFileFailureLog(cfg.ErrorLogFile)
	}

	w := worker.NewWorker(
		services.Store,
		scraper.New(services.Fetcher),
		services.Dispatcher,
		worker.Options{
			Concurrency: cfg.CheckConcurrency,
			Filter:      model.Filter{UserID: cfg.TargetUserID},
			AlertFilter: alert.NewFilter(cfg.AlertRepeat, services.Cache),
			FailureLog:  failures,
		},
	)

	sched := scheduler.New(ctx, w)

	if cfg.AutoStart {
		if err := sched.Start(cfg.CheckInterval); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	if cfg.RunOnStart {
		go func() {
			summary := sched.RunOnce(ctx)
			if summary.Err != nil {
				log.Error().Err(summary.Err).Msg("Initial check cycle failed")
			}
		}()
	}

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().
		Str("signal", sig.String()).
		Msg("Received shutdown signal")

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	if err := sched.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("In-flight cycle did not finish in time, cancelling")
	}
	cancel()

	status := sched.Status()
	log.Info().
		Int64("skipped_ticks", status.Skipped).
		Time("last_run", status.LastRun).
		Msg("Scheduler stopped")
}

// Services holds all the initialized services
type Services struct {
	Cache      cache.CacheService
	Store      store.Store
	Fetcher    fetcher.Fetcher
	Dispatcher worker.Dispatcher

	publisher publisher.Publisher
	renderer  *fetcher.RodRenderer
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.renderer != nil {
		if err := s.renderer.Close(); err != nil {
			logger.Warn("Failed to close browser: %v", err)
		}
	}
	if s.Store != nil {
		s.Store.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	// Initialize cache service, falling back to process memory when memcache is down
	memcacheService := cache.NewMemcacheService(cfg.MemcacheAddr, cfg.MemcachePrefix)
	if err := memcacheService.Ping(); err != nil {
		logger.Warn("Memcache at %s unavailable (%v), using in-memory cache", cfg.MemcacheAddr, err)
		services.Cache = cache.NewMemoryService()
	} else {
		services.Cache = memcacheService
		logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
	}

	// Initialize store
	st, err := store.Open(ctx, cfg.StoreDriver, cfg.StoreDSN())
	if err != nil {
		return nil, err
	}
	services.Store = st
	logger.Info("Opened %s store", cfg.StoreDriver)

	// Initialize fetcher
	var renderer fetcher.Renderer
	switch cfg.RenderBackend {
	case config.RenderRod:
		services.renderer = fetcher.NewRodRenderer(cfg.ChromeBin, cfg.ChromeControlURL, cfg.FetchTimeout)
		renderer = services.renderer
	case config.RenderBrowserless:
		renderer = fetcher.NewBrowserlessRenderer(cfg.BrowserlessAddr, cfg.BrowserlessToken, cfg.FetchTimeout)
	}
	services.Fetcher = fetcher.New(fetcher.Config{
		Timeout:    cfg.FetchTimeout,
		Cooldown:   cfg.Cooldown,
		RenderWait: cfg.RenderWait,
	}, renderer, services.Cache)

	// Initialize dispatchers
	var dispatchers []notify.Dispatcher

	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(ctx); err != nil {
			redisPublisher.Close()
			services.Cleanup()
			return nil, err
		}
		services.publisher = redisPublisher
		dispatchers = append(dispatchers, redisPublisher)

		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}

	if cfg.TelegramToken != "" {
		telegram, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			services.Cleanup()
			return nil, err
		}
		dispatchers = append(dispatchers, telegram)
		logger.Info("Telegram notifications enabled")
	}

	if len(dispatchers) > 0 {
		services.Dispatcher = notify.NewFanout(dispatchers...)
	} else {
		logger.Warn("No alert dispatcher configured, alerts will only be logged")
	}

	return services, nil
}
