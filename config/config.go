// Package config reads the service configuration from the environment.
package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store backends.
const (
	BackendCosmos = "cosmos"
	BackendTables = "tables"
	BackendMemory = "memory"
)

const (
	defaultThroughput = 400
	defaultCacheTTL   = 5 * time.Minute
	defaultPrefix     = "/api"
	defaultPort       = "8080"
)

// Cosmos holds the settings of the Cosmos DB backend.
type Cosmos struct {
	Endpoint   string
	Key        string
	Database   string
	Container  string
	Throughput int32
}

// Config is the complete service configuration.
type Config struct {
	Backend string
	Cosmos  Cosmos

	StorageConnectionString string
	TodosTable              string
	EventsQueue             string

	Redis    *redis.Options
	CacheTTL time.Duration

	RoutePrefix      string
	ProvisionOnStart bool
	ListenAddr       string

	Debug     bool
	LogFormat string
	Tracing   string
}

// Load reads the configuration using os.LookupEnv.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads the configuration from the supplied lookup function.
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	get := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}

	cfg := Config{
		Backend:                 strings.ToLower(get("STORE_BACKEND")),
		StorageConnectionString: get("STORAGE_CONNECTION_STRING"),
		TodosTable:              get("TODOS_TABLE"),
		EventsQueue:             get("TODO_EVENTS_QUEUE"),
		CacheTTL:                defaultCacheTTL,
		RoutePrefix:             defaultPrefix,
		ProvisionOnStart:        true,
		ListenAddr:              ":" + defaultPort,
		LogFormat:               strings.ToLower(get("LOG_FORMAT")),
		Tracing:                 strings.ToLower(get("TRACING")),
		Cosmos: Cosmos{
			Endpoint:   get("COSMOS_ENDPOINT", "Cosmos__EndpointUri"),
			Key:        get("COSMOS_KEY", "Cosmos__PrimaryKey"),
			Database:   get("COSMOS_DATABASE", "Cosmos__DatabaseName"),
			Container:  get("COSMOS_CONTAINER", "Cosmos__ContainerName"),
			Throughput: defaultThroughput,
		},
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendCosmos
	}

	if v := get("DEBUG"); v != "" {
		dbg, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DEBUG: %w", err)
		}
		cfg.Debug = dbg
	}
	if v := get("PROVISION_ON_START"); v != "" {
		p, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PROVISION_ON_START: %w", err)
		}
		cfg.ProvisionOnStart = p
	}
	if v := get("COSMOS_THROUGHPUT"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 400 {
			return Config{}, fmt.Errorf("invalid COSMOS_THROUGHPUT %q: must be an integer >= 400", v)
		}
		cfg.Cosmos.Throughput = int32(n)
	}
	if v, ok := lookup("ROUTE_PREFIX"); ok {
		cfg.RoutePrefix = normalizePrefix(v)
	}
	if port := get("FUNCTIONS_CUSTOMHANDLER_PORT", "PORT"); port != "" {
		cfg.ListenAddr = ":" + port
	}

	if conn := get("REDIS_CONNECTION_STRING"); conn != "" {
		cfg.Redis = ParseRedis(conn)
	}
	if v := get("REDIS_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid REDIS_CACHE_TTL %q", v)
		}
		cfg.CacheTTL = d
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	switch c.Backend {
	case BackendCosmos:
		if c.Cosmos.Endpoint == "" {
			errs = append(errs, errors.New("COSMOS_ENDPOINT missing"))
		}
		if c.Cosmos.Key == "" {
			errs = append(errs, errors.New("COSMOS_KEY missing"))
		}
		if c.Cosmos.Database == "" {
			errs = append(errs, errors.New("COSMOS_DATABASE missing"))
		}
		if c.Cosmos.Container == "" {
			errs = append(errs, errors.New("COSMOS_CONTAINER missing"))
		}
	case BackendTables:
		if c.StorageConnectionString == "" {
			errs = append(errs, errors.New("STORAGE_CONNECTION_STRING missing"))
		}
		if c.TodosTable == "" {
			errs = append(errs, errors.New("TODOS_TABLE missing"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Backend))
	}
	if c.EventsQueue != "" && c.StorageConnectionString == "" {
		errs = append(errs, errors.New("TODO_EVENTS_QUEUE requires STORAGE_CONNECTION_STRING"))
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// ParseRedis accepts either a redis:// URL or the Azure style
// "host:port,password=...,ssl=true" connection string.
func ParseRedis(conn string) *redis.Options {
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts := &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(strings.TrimSpace(kv[1]), "true") {
				opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			}
		}
	}
	return opts
}

func normalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
