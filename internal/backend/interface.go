package backend

import (
	"context"
	"time"

	"carpool/internal/ledger"
	"carpool/internal/remote"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// Pinger is implemented by backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LocalResult is the durable device store and its cleanup.
type LocalResult struct {
	Store   ledger.LocalStore
	Cleanup CleanupFunc
}

// RemoteResult is the sync endpoint. Endpoint is nil when no remote is
// configured.
type RemoteResult struct {
	Endpoint remote.Endpoint
	Breaker  *remote.BreakerEndpoint
	Cleanup  CleanupFunc
	// Pinger is set for remotes with a cheap health check.
	Pinger Pinger
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateLocal(config Config) (*LocalResult, error)
	CreateRemote(ctx context.Context, config Config) (*RemoteResult, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Local  LocalType
	Remote RemoteType

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleReadCacheTTL       time.Duration

	// Redis specific
	RedisURL       string
	RedisKeyPrefix string

	// BreakerTimeout is how long an open breaker waits before probing again.
	BreakerTimeout time.Duration
}

// LocalType names the durable device store.
type LocalType string

const (
	SQLiteLocal LocalType = "sqlite"
	MemoryLocal LocalType = "memory"
)

func (t LocalType) String() string { return string(t) }

// IsValid returns true if the local type is known.
func (t LocalType) IsValid() bool {
	switch t {
	case SQLiteLocal, MemoryLocal:
		return true
	default:
		return false
	}
}

// RemoteType names the sync endpoint.
type RemoteType string

const (
	NoRemote     RemoteType = "none"
	MemoryRemote RemoteType = "memory"
	SheetsRemote RemoteType = "sheets"
	RedisRemote  RemoteType = "redis"
)

func (t RemoteType) String() string { return string(t) }

// IsValid returns true if the remote type is known.
func (t RemoteType) IsValid() bool {
	switch t {
	case NoRemote, MemoryRemote, SheetsRemote, RedisRemote:
		return true
	default:
		return false
	}
}
