package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Store         StoreConfig
	Explore       ExploreConfig
	AI            AIConfig
	Export        ExportConfig
	ObjectStore   ObjectStoreConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type StoreBackend string

const (
	StoreBackendMongo  StoreBackend = "mongo"
	StoreBackendMemory StoreBackend = "memory"
)

type StoreConfig struct {
	Backend             StoreBackend
	MongoURI            string
	MongoConnectTimeout time.Duration
	// MemoryDemoData seeds the memory backend with the demo data set.
	MemoryDemoData bool
}

type ExploreConfig struct {
	SampleLimit int
}

type AIConfig struct {
	Enabled     bool
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

type ExportConfig struct {
	Enabled bool
	Prefix  string
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("DOCMESH_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid DOCMESH_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	backend := string(cfg.Store.Backend)
	_, aiEnabledSet := lookup("DOCMESH_AI_ENABLED")
	if err := firstError(
		applyString(lookup, "DOCMESH_SERVICE_NAME", &cfg.Service.Name),
		applyString(lookup, "DOCMESH_HTTP_ADDR", &cfg.HTTP.Address),
		applyDuration(lookup, "DOCMESH_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout),
		applyDuration(lookup, "DOCMESH_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout),
		applyDuration(lookup, "DOCMESH_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout),
		applyString(lookup, "DOCMESH_STORE_BACKEND", &backend),
		applyString(lookup, "DOCMESH_MONGO_URI", &cfg.Store.MongoURI),
		applyDuration(lookup, "DOCMESH_MONGO_CONNECT_TIMEOUT", &cfg.Store.MongoConnectTimeout),
		applyBool(lookup, "DOCMESH_MEMORY_DEMO_DATA", &cfg.Store.MemoryDemoData),
		applyInt(lookup, "DOCMESH_EXPLORE_SAMPLE_LIMIT", &cfg.Explore.SampleLimit),
		applyString(lookup, "OPENAI_API_KEY", &cfg.AI.APIKey),
		applyString(lookup, "DOCMESH_AI_API_KEY", &cfg.AI.APIKey),
		applyBool(lookup, "DOCMESH_AI_ENABLED", &cfg.AI.Enabled),
		applyString(lookup, "DOCMESH_AI_BASE_URL", &cfg.AI.BaseURL),
		applyString(lookup, "DOCMESH_AI_MODEL", &cfg.AI.Model),
		applyFloat(lookup, "DOCMESH_AI_TEMPERATURE", &cfg.AI.Temperature),
		applyInt(lookup, "DOCMESH_AI_MAX_TOKENS", &cfg.AI.MaxTokens),
		applyDuration(lookup, "DOCMESH_AI_TIMEOUT", &cfg.AI.Timeout),
		applyBool(lookup, "DOCMESH_EXPORT_ENABLED", &cfg.Export.Enabled),
		applyString(lookup, "DOCMESH_EXPORT_PREFIX", &cfg.Export.Prefix),
		applyString(lookup, "DOCMESH_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint),
		applyString(lookup, "DOCMESH_OBJECTSTORE_REGION", &cfg.ObjectStore.Region),
		applyString(lookup, "DOCMESH_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket),
		applyString(lookup, "DOCMESH_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID),
		applyString(lookup, "DOCMESH_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey),
		applyBool(lookup, "DOCMESH_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL),
		applyString(lookup, "DOCMESH_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix),
		applyBool(lookup, "DOCMESH_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket),
		applyBool(lookup, "DOCMESH_LOG_JSON", &cfg.Observability.LogJSON),
		applyLogLevel(lookup, "DOCMESH_LOG_LEVEL", &cfg.Observability.LogLevel),
	); err != nil {
		return Config{}, err
	}
	cfg.Store.Backend = StoreBackend(strings.ToLower(backend))
	// A configured key turns translation on unless it was switched off explicitly.
	if !aiEnabledSet && cfg.AI.APIKey != "" {
		cfg.AI.Enabled = true
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	switch cfg.Store.Backend {
	case StoreBackendMongo:
		if cfg.Store.MongoURI == "" {
			return Config{}, fmt.Errorf("DOCMESH_MONGO_URI is required for the mongo backend")
		}
	case StoreBackendMemory:
	default:
		return Config{}, fmt.Errorf("invalid DOCMESH_STORE_BACKEND: %q", cfg.Store.Backend)
	}
	if cfg.Explore.SampleLimit <= 0 {
		return Config{}, fmt.Errorf("DOCMESH_EXPLORE_SAMPLE_LIMIT must be positive")
	}
	if cfg.AI.Enabled && cfg.AI.APIKey == "" {
		return Config{}, fmt.Errorf("DOCMESH_AI_API_KEY or OPENAI_API_KEY is required when AI is enabled")
	}
	if cfg.Export.Enabled && cfg.ObjectStore.Bucket == "" {
		return Config{}, fmt.Errorf("DOCMESH_OBJECTSTORE_BUCKET is required when export is enabled")
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "docmesh-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Store: StoreConfig{
			Backend:             StoreBackendMongo,
			MongoURI:            "mongodb://localhost:27017/",
			MongoConnectTimeout: 10 * time.Second,
		},
		Explore: ExploreConfig{
			SampleLimit: 5,
		},
		AI: AIConfig{
			Enabled:     false,
			BaseURL:     "https://api.openai.com",
			Model:       "gpt-3.5-turbo",
			Temperature: 0.1,
			MaxTokens:   1024,
			Timeout:     30 * time.Second,
		},
		Export: ExportConfig{
			Enabled: false,
			Prefix:  "exports",
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "docmesh",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "",
			AutoCreateBucket: true,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Store.Backend = StoreBackendMemory
		cfg.Store.MemoryDemoData = true
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
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
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
