package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dailybudget/internal/amqp"
	"dailybudget/internal/events/kafka"
	"dailybudget/internal/ports"
	"dailybudget/internal/ports/memory"
	"dailybudget/internal/remote/redis"
	"dailybudget/internal/remote/sheets"
	"dailybudget/internal/storage"
	"dailybudget/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// Create implements Factory.Create. On error every resource opened so far is released.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Components, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var cleanups []CleanupFunc
	release := func() error {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	c := &Components{}

	store, cleanup, err := f.createStore(ctx, config)
	if err != nil {
		return nil, err
	}
	c.Store = store
	if cleanup != nil {
		cleanups = append(cleanups, cleanup)
	}

	switch config.Remote {
	case RedisRemote:
		rc, err := redis.Connect(ctx, config.RedisURL, config.RedisKeyPrefix)
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to initialize Redis remote: %w", err)
		}
		c.Remote = rc
		cleanups = append(cleanups, rc.Close)
		f.logger.Info("Initialized Redis remote", "key_prefix", config.RedisKeyPrefix)
	case SheetsRemote:
		sc, err := sheets.New(ctx, config.GoogleSpreadsheetID, sheets.Credentials{
			JSON: config.GoogleServiceAccountJSON,
			File: config.GoogleServiceAccountFile,
		})
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to initialize Google Sheets remote: %w", err)
		}
		c.Remote = sc
		f.logger.Info("Initialized Google Sheets remote")
	}

	switch config.Events {
	case AMQPEvents:
		ac, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			// The service pushes to the remote directly when no publisher is available.
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			break
		}
		c.Publisher = ac
		cleanups = append(cleanups, ac.Close)
		f.logger.Info("Initialized AMQP client",
			"exchange", config.AMQPExchange,
			"queue", config.AMQPQueue)
	case KafkaEvents:
		kp := kafka.NewPublisher(config.KafkaBrokers, config.KafkaTopic)
		c.Publisher = kp
		cleanups = append(cleanups, kp.Close)
		f.logger.Info("Initialized Kafka publisher", "topic", config.KafkaTopic)
	}

	c.Cleanup = release
	return c, nil
}

// CreateConsumer implements Factory.CreateConsumer.
func (f *DefaultFactory) CreateConsumer(ctx context.Context, config Config) (Consumer, error) {
	switch config.Events {
	case AMQPEvents:
		ac, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AMQP consumer: %w", err)
		}
		return ac, nil
	case KafkaEvents:
		return kafka.NewConsumer(config.KafkaBrokers, config.KafkaTopic), nil
	default:
		return nil, nil
	}
}

func (f *DefaultFactory) createStore(ctx context.Context, config Config) (ports.LedgerStore, CleanupFunc, error) {
	switch config.Store {
	case SQLiteStore:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return repo, repo.Close, nil
	case PostgresStore:
		opts := postgres.DefaultOptions()
		if config.ConnectRetries > 0 {
			opts.MaxRetries = config.ConnectRetries
		}
		if config.ConnectRetryDelay > 0 {
			opts.RetryDelay = config.ConnectRetryDelay
		}
		pg, err := postgres.Open(ctx, config.DatabaseURL, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
		}
		f.logger.Info("Initialized Postgres store")
		return pg, pg.Close, nil
	default:
		dataDir := config.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		f.logger.Info("Initialized memory store", "data_directory", dataDir)
		return memory.NewFromDir(dataDir), nil, nil
	}
}
