package seed

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Config struct {
	MongoURI       string
	ConnectTimeout time.Duration
	Seed           int64
	Customers      int
	Orders         int
	Books          int
	BatchSize      int
	// Reset empties the demo collections before inserting.
	Reset bool
}

func DefaultConfig() Config {
	return Config{
		MongoURI:       "mongodb://localhost:27017/",
		ConnectTimeout: 10 * time.Second,
		Seed:           42,
		Customers:      50,
		Orders:         200,
		Books:          40,
		BatchSize:      100,
		Reset:          true,
	}
}

func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultConfig()
	if err := applyString(lookup, "DOCMESH_MONGO_URI", &cfg.MongoURI); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DOCMESH_DEMO_MONGO_URI", &cfg.MongoURI); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DOCMESH_DEMO_CONNECT_TIMEOUT", &cfg.ConnectTimeout); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "DOCMESH_DEMO_SEED", &cfg.Seed); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DOCMESH_DEMO_CUSTOMERS", &cfg.Customers); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DOCMESH_DEMO_ORDERS", &cfg.Orders); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DOCMESH_DEMO_BOOKS", &cfg.Books); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DOCMESH_DEMO_BATCH_SIZE", &cfg.BatchSize); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DOCMESH_DEMO_RESET", &cfg.Reset); err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.MongoURI) == "" {
		return Config{}, fmt.Errorf("DOCMESH_DEMO_MONGO_URI is required")
	}
	if cfg.ConnectTimeout <= 0 {
		return Config{}, fmt.Errorf("DOCMESH_DEMO_CONNECT_TIMEOUT must be > 0")
	}
	if cfg.Customers <= 0 {
		return Config{}, fmt.Errorf("DOCMESH_DEMO_CUSTOMERS must be > 0")
	}
	if cfg.Orders < 0 {
		return Config{}, fmt.Errorf("DOCMESH_DEMO_ORDERS must be >= 0")
	}
	if cfg.Books < 0 {
		return Config{}, fmt.Errorf("DOCMESH_DEMO_BOOKS must be >= 0")
	}
	if cfg.BatchSize <= 0 {
		return Config{}, fmt.Errorf("DOCMESH_DEMO_BATCH_SIZE must be > 0")
	}
	return cfg, nil
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}
