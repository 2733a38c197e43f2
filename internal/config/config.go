package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/courierhq/dispatch/pkg/api"
)

type (
	// Config holds configuration settings for the orchestrator
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		AgentURL string
		LogLevel string

		// Workflow
		MaxHops         int
		AdapterTimeout  time.Duration
		ShutdownTimeout time.Duration
		DefaultStrategy api.Strategy

		// Approval
		AutoApprovalLimit float64
		ApprovalPolicy    string

		// Stores
		RunStore       StoreConfig
		InterruptStore StoreConfig
		LabelBucketURL string

		// External collaborators
		IntentEndpoint string

		// Providers
		Providers ProviderConfig
	}

	// StoreConfig holds Redis connection settings for a durable store.
	// An empty Addr selects the in-memory reference implementation
	StoreConfig struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}

	// ProviderConfig holds per-provider enable flags and credentials
	ProviderConfig struct {
		MockEnabled bool
		Velocity    VelocityConfig
	}

	// VelocityConfig configures the Velocity Express network adapter
	VelocityConfig struct {
		Enabled    bool
		BaseURL    string
		APIKey     string
		MaxRetries int
	}
)

const (
	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535

	DefaultMaxHops         = 25
	DefaultAdapterTimeout  = 10 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	DefaultAutoApprovalLimit = 5000.0
	DefaultApprovalPolicy    = "value > limit"

	DefaultRedisPrefix     = "dispatch"
	DefaultVelocityRetries = 3
	MaxHopsCeiling         = 10_000
	MaxAdapterTimeout      = 5 * time.Minute
	MaxVelocityRetries     = 10
	MaxAutoApprovalCeiling = 1_000_000_000
)

var (
	ErrInvalidAPIPort        = errors.New("invalid API port")
	ErrInvalidMaxHops        = errors.New("max hops must be positive")
	ErrInvalidAdapterTimeout = errors.New("adapter timeout must be positive")
	ErrInvalidApprovalLimit  = errors.New(
		"auto-approval limit cannot be negative",
	)
	ErrInvalidStrategy      = errors.New("invalid default strategy")
	ErrVelocityBaseURLEmpty = errors.New(
		"velocity base URL required when enabled",
	)
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// engine, the approval gate, and the provider adapters
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:  DefaultAPIHost,
		APIPort:  DefaultAPIPort,
		AgentURL: "http://localhost:8080",
		LogLevel: "info",

		MaxHops:         DefaultMaxHops,
		AdapterTimeout:  DefaultAdapterTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		DefaultStrategy: api.StrategyCheapest,

		AutoApprovalLimit: DefaultAutoApprovalLimit,
		ApprovalPolicy:    DefaultApprovalPolicy,

		RunStore:       StoreConfig{Prefix: DefaultRedisPrefix},
		InterruptStore: StoreConfig{Prefix: DefaultRedisPrefix},

		Providers: ProviderConfig{
			MockEnabled: true,
			Velocity: VelocityConfig{
				MaxRetries: DefaultVelocityRetries,
			},
		},
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed
func (c *Config) LoadFromEnv() error {
	loadStoreConfigFromEnv(&c.RunStore, "RUN")
	loadStoreConfigFromEnv(&c.InterruptStore, "INTERRUPT")

	if apiHost := os.Getenv("API_HOST"); apiHost != "" {
		c.APIHost = apiHost
	}
	if agentURL := os.Getenv("AGENT_URL"); agentURL != "" {
		c.AgentURL = agentURL
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if policy := os.Getenv("APPROVAL_POLICY"); policy != "" {
		c.ApprovalPolicy = policy
	}
	if strategy := os.Getenv("DEFAULT_STRATEGY"); strategy != "" {
		c.DefaultStrategy = api.Strategy(strategy)
	}
	if endpoint := os.Getenv("INTENT_ENDPOINT"); endpoint != "" {
		c.IntentEndpoint = endpoint
	}
	if bucketURL := os.Getenv("LABEL_BUCKET_URL"); bucketURL != "" {
		c.LabelBucketURL = bucketURL
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"MAX_HOPS", &c.MaxHops, 0, MaxHopsCeiling,
	); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"ADAPTER_TIMEOUT", &c.AdapterTimeout, MaxAdapterTimeout,
	); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"SHUTDOWN_TIMEOUT", &c.ShutdownTimeout, MaxAdapterTimeout,
	); err != nil {
		return err
	}
	if err := loadEnvFloat(
		"AUTO_APPROVAL_LIMIT", &c.AutoApprovalLimit, MaxAutoApprovalCeiling,
	); err != nil {
		return err
	}

	loadEnvBool("MOCK_PROVIDER_ENABLED", &c.Providers.MockEnabled)
	loadEnvBool("VELOCITY_ENABLED", &c.Providers.Velocity.Enabled)
	if baseURL := os.Getenv("VELOCITY_BASE_URL"); baseURL != "" {
		c.Providers.Velocity.BaseURL = baseURL
	}
	if apiKey := os.Getenv("VELOCITY_API_KEY"); apiKey != "" {
		c.Providers.Velocity.APIKey = apiKey
	}
	if err := loadEnvInt(
		"VELOCITY_MAX_RETRIES", &c.Providers.Velocity.MaxRetries,
		-1, MaxVelocityRetries,
	); err != nil {
		return err
	}

	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}
	if c.MaxHops <= 0 {
		return ErrInvalidMaxHops
	}
	if c.AdapterTimeout <= 0 {
		return ErrInvalidAdapterTimeout
	}
	if c.AutoApprovalLimit < 0 {
		return ErrInvalidApprovalLimit
	}
	if !api.ValidStrategy(c.DefaultStrategy) {
		return fmt.Errorf("%w: %s", ErrInvalidStrategy, c.DefaultStrategy)
	}
	if c.Providers.Velocity.Enabled && c.Providers.Velocity.BaseURL == "" {
		return ErrVelocityBaseURLEmpty
	}
	return nil
}

// loadStoreConfigFromEnv loads Redis store configuration from environment
// variables with the given prefix (e.g., "RUN" or "INTERRUPT")
func loadStoreConfigFromEnv(s *StoreConfig, prefix string) {
	if addr := os.Getenv(prefix + "_REDIS_ADDR"); addr != "" {
		s.Addr = addr
	}
	if password := os.Getenv(prefix + "_REDIS_PASSWORD"); password != "" {
		s.Password = password
	}
	if dbStr := os.Getenv(prefix + "_REDIS_DB"); dbStr != "" {
		db, err := strconv.Atoi(dbStr)
		if err == nil {
			s.DB = db
		}
	}
	if envPrefix := os.Getenv(prefix + "_REDIS_PREFIX"); envPrefix != "" {
		s.Prefix = envPrefix
	}
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}

// loadEnvDuration reads key as a number of milliseconds
func loadEnvDuration(key string, dst *time.Duration, max time.Duration) error {
	var ms int64
	if err := loadEnvInt(key, &ms, 0, max.Milliseconds()); err != nil {
		return err
	}
	if ms > 0 {
		*dst = time.Duration(ms) * time.Millisecond
	}
	return nil
}

// loadEnvFloat reads key as a non-negative floating point value
func loadEnvFloat(key string, dst *float64, max float64) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	if v < 0 || v > max {
		return fmt.Errorf("invalid %s: %f out of range [0, %f]", key, v, max)
	}
	*dst = v
	return nil
}

// loadEnvBool reads key as a boolean, ignoring unparseable values
func loadEnvBool(key string, dst *bool) {
	s := os.Getenv(key)
	if s == "" {
		return
	}
	if v, err := strconv.ParseBool(s); err == nil {
		*dst = v
	}
}
