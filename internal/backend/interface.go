package backend

import (
	"context"
	"time"

	"dailybudget/internal/events"
	"dailybudget/internal/ports"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Consumer delivers ledger change messages to the sync worker.
type Consumer interface {
	ConsumeLedgerChanged(ctx context.Context, handler events.Handler) error
	Close() error
}

// Components bundles the collaborators of the budget service. Remote and
// Publisher are nil when the matching backend is "none".
type Components struct {
	Store     ports.LedgerStore
	Remote    ports.RemoteSync
	Publisher ports.ChangePublisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// Create builds the store, remote mirror and change publisher.
	Create(ctx context.Context, config Config) (*Components, error)
	// CreateConsumer builds the change consumer used by the worker.
	CreateConsumer(ctx context.Context, config Config) (Consumer, error)
}

// Config holds configuration for backend creation
type Config struct {
	Store  StoreType
	Remote RemoteType
	Events EventsType

	// Local store
	SQLiteDBPath  string
	DatabaseURL   string
	DataDirectory string

	// Remote mirror
	RedisURL                 string
	RedisKeyPrefix           string
	GoogleSpreadsheetID      string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Change events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	KafkaBrokers []string
	KafkaTopic   string

	// Postgres connection retries
	ConnectRetries    int
	ConnectRetryDelay time.Duration
}

// StoreType selects the local ledger store.
type StoreType string

const (
	MemoryStore   StoreType = "memory"
	SQLiteStore   StoreType = "sqlite"
	PostgresStore StoreType = "postgres"
)

// RemoteType selects the remote mirror.
type RemoteType string

const (
	NoRemote     RemoteType = "none"
	RedisRemote  RemoteType = "redis"
	SheetsRemote RemoteType = "sheets"
)

// EventsType selects the change notification transport.
type EventsType string

const (
	NoEvents    EventsType = "none"
	AMQPEvents  EventsType = "amqp"
	KafkaEvents EventsType = "kafka"
)

// String implements fmt.Stringer
func (t StoreType) String() string { return string(t) }

// IsValid returns true if the store type is known
func (t StoreType) IsValid() bool {
	switch t {
	case MemoryStore, SQLiteStore, PostgresStore:
		return true
	default:
		return false
	}
}

func (t RemoteType) String() string { return string(t) }

func (t RemoteType) IsValid() bool {
	switch t {
	case NoRemote, RedisRemote, SheetsRemote:
		return true
	default:
		return false
	}
}

func (t EventsType) String() string { return string(t) }

func (t EventsType) IsValid() bool {
	switch t {
	case NoEvents, AMQPEvents, KafkaEvents:
		return true
	default:
		return false
	}
}
