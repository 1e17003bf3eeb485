package backend

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/services"
	"fintrack/internal/storage"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	// cleaner, when set, receives the in-process report cache for periodic expiry.
	cleaner *cache.Manager
}

// NewFactory creates a new backend factory. manager may be nil.
func NewFactory(logger *log.Logger, manager *cache.Manager) Factory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{logger: logger, cleaner: manager}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	st, err := f.createStore(config)
	if err != nil {
		return nil, err
	}
	cleanups := []CleanupFunc{st.Close}

	reportCache, closeCache := f.createCache(ctx, config)
	cleanups = append(cleanups, closeCache)

	reports := services.NewReportService(st, reportCache, services.ReportOptions{
		Location: config.Location,
		Epoch:    config.Epoch,
		Logger:   f.logger.WithComponent(log.ComponentReport),
	})

	// A nil *amqp.Client must not become a non-nil Publisher.
	var publisher services.Publisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger.WithComponent(log.ComponentAMQP))
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without ledger events", "error", err)
		} else {
			publisher = client
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	ledger := services.NewLedgerService(st, publisher, f.logger.WithComponent(log.ComponentLedger), reports)
	// LedgerService.Close releases the publisher and the store.
	cleanups[0] = ledger.Close

	f.logger.Info("Initialized backend",
		"type", config.Type.String(),
		"amqp_enabled", publisher != nil,
		"redis_cache", config.RedisURL != "")

	return &BackendResult{
		Store:   st,
		Ledger:  ledger,
		Reports: reports,
		Cleanup: joinCleanups(cleanups...),
	}, nil
}

func (f *DefaultFactory) createStore(config Config) (store.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil
	case MemoryBackend:
		dataDir := config.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		st := memory.NewFromFiles(dataDir, config.Location)
		f.logger.Info("Initialized memory backend", "data_directory", dataDir)
		return st, nil
	}
	return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
}

// createCache prefers Redis and falls back to an in-process LRU when Redis
// is unset or unreachable.
func (f *DefaultFactory) createCache(ctx context.Context, config Config) (cache.Cache[report.Report], CleanupFunc) {
	if config.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, config.RedisURL)
		if err == nil {
			f.logger.Info("Initialized Redis report cache")
			return cache.NewRedisCache[report.Report](client, "fintrack:report:", config.CacheTTL, f.logger.WithComponent(log.ComponentCache)), client.Close
		}
		f.logger.Warn("Failed to connect to Redis, using in-process report cache", "error", err)
	}

	lru := cache.NewLRUCache[report.Report](config.CacheSize, config.CacheTTL)
	if f.cleaner != nil {
		f.cleaner.Register(lru)
	}
	return lru, nil
}
