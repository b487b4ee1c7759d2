// Package storage provides the document store backends, the Redis read
// cache and the change-event queue behind the todo service.
package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"todo-api/config"
	"todo-api/domain"
)

// Provisioner creates the cloud resources a component depends on.
// Provision must be idempotent.
type Provisioner interface {
	Provision(ctx context.Context) error
}

// Backend bundles the store and optional collaborators built from config.
type Backend struct {
	Store  domain.Store
	Events domain.EventPublisher

	provisioners []Provisioner
	redis        *redis.Client
}

// Open builds the backend selected by cfg. It performs no network calls.
func Open(cfg config.Config) (*Backend, error) {
	b := &Backend{}
	switch cfg.Backend {
	case config.BackendCosmos:
		s, err := NewCosmos(cfg.Cosmos.Endpoint, cfg.Cosmos.Key, cfg.Cosmos.Database, cfg.Cosmos.Container, cfg.Cosmos.Throughput)
		if err != nil {
			return nil, err
		}
		b.Store = s
		b.provisioners = append(b.provisioners, s)
	case config.BackendTables:
		s, err := NewTables(cfg.StorageConnectionString, cfg.TodosTable)
		if err != nil {
			return nil, fmt.Errorf("tables: %w", err)
		}
		b.Store = s
		b.provisioners = append(b.provisioners, s)
	case config.BackendMemory:
		b.Store = NewMemory()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	if cfg.EventsQueue != "" {
		q, err := NewQueuePublisher(cfg.StorageConnectionString, cfg.EventsQueue)
		if err != nil {
			return nil, fmt.Errorf("events queue: %w", err)
		}
		b.Events = q
		b.provisioners = append(b.provisioners, q)
	}

	if cfg.Redis != nil {
		b.redis = redis.NewClient(cfg.Redis)
		b.Store = NewCache(b.Store, b.redis, cfg.CacheTTL)
	}
	return b, nil
}

// Provision runs every provisioning step once, in order.
func (b *Backend) Provision(ctx context.Context) error {
	for _, p := range b.provisioners {
		if err := p.Provision(ctx); err != nil {
			return err
		}
	}
	log.WithField("steps", len(b.provisioners)).Info("storage provisioned")
	return nil
}

// Close releases network clients held by the backend.
func (b *Backend) Close() error {
	if b.redis != nil {
		return b.redis.Close()
	}
	return nil
}
