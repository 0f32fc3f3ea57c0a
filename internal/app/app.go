// Package app wires configuration, storage, clients, and services together.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seanmcgrath/macrocal/internal/clients/eodhd"
	"github.com/seanmcgrath/macrocal/internal/clients/finnhub"
	"github.com/seanmcgrath/macrocal/internal/clients/fred"
	"github.com/seanmcgrath/macrocal/internal/clients/respcache"
	"github.com/seanmcgrath/macrocal/internal/clients/tradingeconomics"
	"github.com/seanmcgrath/macrocal/internal/common"
	"github.com/seanmcgrath/macrocal/internal/interfaces"
	"github.com/seanmcgrath/macrocal/internal/services/cache"
	"github.com/seanmcgrath/macrocal/internal/services/calendar"
	"github.com/seanmcgrath/macrocal/internal/services/earnings"
	"github.com/seanmcgrath/macrocal/internal/services/scheduler"
	"github.com/seanmcgrath/macrocal/internal/storage/postgres"
)

// App holds all initialized clients and services. It is the shared core used
// by cmd/macrocal-server.
type App struct {
	Config          *common.Config
	Logger          *common.Logger
	Storage         interfaces.StorageManager
	CalendarService interfaces.CalendarService
	Cache           interfaces.EconomicDataCache
	EarningsService interfaces.EarningsService
	Scheduler       interfaces.SchedulerService
	StartupTime     time.Time

	redisClient *redis.Client
	listener    *postgres.Listener
}

// NewApp initializes storage, clients, and services from configuration.
// configPath may be empty, in which case MACROCAL_CONFIG and the default
// path are tried in order.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	if configPath == "" {
		configPath = os.Getenv("MACROCAL_CONFIG")
	}
	if configPath == "" {
		configPath = "config/macrocal.toml"
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(config.Logging.Level)

	storageManager, err := postgres.NewManager(config.Database.DSN(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a := &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		StartupTime: startupStart,
	}

	// Provider response cache: Redis when configured, in-memory otherwise
	var respCache respcache.Cache
	if config.Redis.Enabled {
		a.redisClient = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		if err := a.redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn().Err(err).Msg("Redis unreachable, falling back to in-memory response cache")
			a.redisClient.Close()
			a.redisClient = nil
			respCache = respcache.NewMemory()
		} else {
			respCache = respcache.NewRedis(a.redisClient)
		}
	} else {
		respCache = respcache.NewMemory()
	}

	eodhdClient, finnhubClient, fredClient, teClient := buildClients(config, logger, respCache)

	var providers []interfaces.EventProvider
	if eodhdClient != nil {
		providers = append(providers, calendar.NewEODHDProvider(eodhdClient))
	}
	if finnhubClient != nil {
		providers = append(providers, calendar.NewFinnhubProvider(finnhubClient))
	}
	if fredClient != nil {
		providers = append(providers, calendar.NewFREDProvider(fredClient))
	}
	if teClient != nil {
		providers = append(providers, calendar.NewTradingEconomicsProvider(teClient))
	}
	if len(providers) == 0 {
		logger.Warn().Msg("No provider API keys configured - calendar refreshes will fail")
	}

	a.CalendarService = calendar.NewService(logger, providers...)

	a.Cache = cache.NewService(storageManager, a.CalendarService, logger,
		cache.WithTTL(config.Cache.GetTTL()),
		cache.WithMaxErrors(config.Cache.MaxErrorCount),
		cache.WithRetention(time.Duration(config.Cache.RetentionDays)*24*time.Hour),
		cache.WithReadOnly(config.Cache.ReadOnly),
	)

	a.EarningsService = earnings.NewService(eodhdClient, finnhubClient, storageManager, logger,
		earnings.WithTTL(config.Cache.GetTTL()),
		earnings.WithReadOnly(config.Cache.ReadOnly),
	)

	a.Scheduler = scheduler.NewService(a.Cache, a.EarningsService, logger,
		scheduler.WithSchedules(config.Scheduler.RefreshSchedule, config.Scheduler.CleanupSchedule),
		scheduler.WithCountries(config.Scheduler.Countries, config.Scheduler.WindowDays),
	)

	// A read-only instance never refreshes; subscribe to the change channel
	// so upstream writes from the refreshing instance are visible in logs.
	if config.Cache.ReadOnly {
		listener, err := postgres.NewListener(config.Database.DSN(), logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Event change listener unavailable")
		} else {
			a.listener = listener
			go func() {
				for range listener.Events() {
					logger.Debug().Msg("Event data changed upstream")
				}
			}()
		}
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// buildClients constructs one client per provider with a configured API key.
func buildClients(config *common.Config, logger *common.Logger, respCache respcache.Cache) (
	*eodhd.Client, *finnhub.Client, *fred.Client, *tradingeconomics.Client) {

	var eodhdClient *eodhd.Client
	if key := common.ResolveAPIKey("eodhd", config.Clients.EODHD.APIKey); key != "" {
		eodhdClient = eodhd.NewClient(key,
			eodhd.WithBaseURL(config.Clients.EODHD.BaseURL),
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
			eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
			eodhd.WithCache(respCache),
		)
	} else {
		logger.Warn().Msg("EODHD API key not configured")
	}

	var finnhubClient *finnhub.Client
	if key := common.ResolveAPIKey("finnhub", config.Clients.Finnhub.APIKey); key != "" {
		finnhubClient = finnhub.NewClient(key,
			finnhub.WithBaseURL(config.Clients.Finnhub.BaseURL),
			finnhub.WithLogger(logger),
			finnhub.WithRateLimit(config.Clients.Finnhub.RateLimit),
			finnhub.WithTimeout(config.Clients.Finnhub.GetTimeout()),
			finnhub.WithCache(respCache),
		)
	} else {
		logger.Warn().Msg("Finnhub API key not configured")
	}

	var fredClient *fred.Client
	if key := common.ResolveAPIKey("fred", config.Clients.FRED.APIKey); key != "" {
		fredClient = fred.NewClient(key,
			fred.WithBaseURL(config.Clients.FRED.BaseURL),
			fred.WithLogger(logger),
			fred.WithRateLimit(config.Clients.FRED.RateLimit),
			fred.WithTimeout(config.Clients.FRED.GetTimeout()),
			fred.WithCache(respCache),
		)
	} else {
		logger.Warn().Msg("FRED API key not configured")
	}

	var teClient *tradingeconomics.Client
	if key := common.ResolveAPIKey("tradingeconomics", config.Clients.TradingEconomics.APIKey); key != "" {
		teClient = tradingeconomics.NewClient(key,
			tradingeconomics.WithBaseURL(config.Clients.TradingEconomics.BaseURL),
			tradingeconomics.WithLogger(logger),
			tradingeconomics.WithRateLimit(config.Clients.TradingEconomics.RateLimit),
			tradingeconomics.WithTimeout(config.Clients.TradingEconomics.GetTimeout()),
			tradingeconomics.WithCache(respCache),
		)
	} else {
		logger.Warn().Msg("Trading Economics API key not configured")
	}

	return eodhdClient, finnhubClient, fredClient, teClient
}

// Close releases all resources held by the App.
// Shutdown order: stop scheduler, close redis, close storage.
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.listener != nil {
		a.listener.Close()
		a.listener = nil
	}
	if a.redisClient != nil {
		a.redisClient.Close()
		a.redisClient = nil
	}
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}

// StartScheduler launches the background refresh schedule.
func (a *App) StartScheduler() error {
	return a.Scheduler.Start()
}
