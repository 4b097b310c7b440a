package backend

import (
	"context"
	"fmt"
	"time"

	"carpool/internal/log"
	"carpool/internal/remote"
	gsheet "carpool/internal/remote/google"
	remotemem "carpool/internal/remote/memory"
	"carpool/internal/remote/redis"
	"carpool/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateLocal implements Factory.CreateLocal
func (f *DefaultFactory) CreateLocal(config Config) (*LocalResult, error) {
	switch config.Local {
	case SQLiteLocal:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return &LocalResult{Store: repo, Cleanup: repo.Close}, nil
	case MemoryLocal:
		f.logger.Warn("Using in-memory local store, ledger will not survive restarts")
		store := storage.NewMemoryStore()
		return &LocalResult{Store: store, Cleanup: store.Close}, nil
	default:
		return nil, fmt.Errorf("unsupported local backend: %s", config.Local)
	}
}

// CreateRemote implements Factory.CreateRemote
func (f *DefaultFactory) CreateRemote(ctx context.Context, config Config) (*RemoteResult, error) {
	var (
		endpoint remote.Endpoint
		pinger   Pinger
		cleanup  CleanupFunc
	)

	switch config.Remote {
	case NoRemote:
		f.logger.Info("No remote backend configured, sync disabled")
		return &RemoteResult{}, nil
	case MemoryRemote:
		endpoint = remotemem.New()
		f.logger.Info("Initialized in-memory remote")
	case SheetsRemote:
		cli, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetName:       config.GoogleSheetName,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
			ReadCacheTTL:    config.GoogleReadCacheTTL,
		}, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		endpoint = cli
		f.logger.Info("Initialized Google Sheets remote", "sheet", config.GoogleSheetName)
	case RedisRemote:
		cli, err := redis.NewFromURL(config.RedisURL, config.RedisKeyPrefix, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
		}
		endpoint, pinger, cleanup = cli, cli, cli.Close
		f.logger.Info("Initialized Redis remote", "prefix", config.RedisKeyPrefix)
	default:
		return nil, fmt.Errorf("unsupported remote backend: %s", config.Remote)
	}

	timeout := config.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	breaker := remote.WithBreaker(config.Remote.String(), endpoint, timeout)

	return &RemoteResult{
		Endpoint: breaker,
		Breaker:  breaker,
		Cleanup:  cleanup,
		Pinger:   pinger,
	}, nil
}
