package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/IRASUBIZA-SALY-NELSON/nexasec/internal/store"
)

// Config represents the complete daemon configuration
type Config struct {
	// Daemon configuration
	Daemon DaemonConfig `yaml:"daemon" json:"daemon"`

	// Device store configuration
	Store store.Config `yaml:"store" json:"store"`

	// Discovery configuration
	Discovery DiscoveryConfig `yaml:"discovery" json:"discovery"`

	// Enrichment configuration
	Enrichment EnrichmentConfig `yaml:"enrichment" json:"enrichment"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// DaemonConfig holds daemon-specific settings
type DaemonConfig struct {
	// PID file location
	PIDFile string `yaml:"pid_file" json:"pid_file"`

	// Working directory
	WorkDir string `yaml:"work_dir" json:"work_dir"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DiscoveryConfig holds discovery loop settings
type DiscoveryConfig struct {
	// Networks to sweep in CIDR notation. When empty, the local
	// interface networks are used.
	Networks []string `yaml:"networks" json:"networks"`

	// Interval between full discovery cycles
	FullInterval time.Duration `yaml:"full_interval" json:"full_interval"`

	// Delay before retrying after a failed full cycle
	FullBackoff time.Duration `yaml:"full_backoff" json:"full_backoff"`

	// Interval between quick liveness check rounds
	QuickInterval time.Duration `yaml:"quick_interval" json:"quick_interval"`

	// Delay before retrying after a failed quick round
	QuickBackoff time.Duration `yaml:"quick_backoff" json:"quick_backoff"`

	// Number of devices checked concurrently per quick batch
	QuickBatchSize int `yaml:"quick_batch_size" json:"quick_batch_size"`

	// Grace period before a silent device is marked offline
	OfflineGrace time.Duration `yaml:"offline_grace" json:"offline_grace"`

	// Age after which a device is evicted entirely
	EvictAfter time.Duration `yaml:"evict_after" json:"evict_after"`
}

// EnrichmentConfig holds per-device enrichment settings
type EnrichmentConfig struct {
	// Number of concurrent enrichment workers
	WorkerPoolSize int `yaml:"worker_pool_size" json:"worker_pool_size"`

	// TCP ports probed on each discovered device
	ProbePorts []int `yaml:"probe_ports" json:"probe_ports"`

	// Timeout for a single TCP connect probe
	ProbeTimeout time.Duration `yaml:"probe_timeout" json:"probe_timeout"`

	// Timeout for a reverse DNS lookup
	DNSTimeout time.Duration `yaml:"dns_timeout" json:"dns_timeout"`
}

// MetricsConfig holds metrics endpoint settings
type MetricsConfig struct {
	// Enable the Prometheus metrics endpoint
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Listen address
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`

	// Listen port
	Port int `yaml:"port" json:"port"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format"`

	// Log output (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Daemon: DaemonConfig{
			PIDFile:         "/var/run/nexasec.pid",
			WorkDir:         "/var/lib/nexasec",
			ShutdownTimeout: 30 * time.Second,
		},
		Store: store.DefaultConfig(),
		Discovery: DiscoveryConfig{
			Networks:       nil,
			FullInterval:   5 * time.Minute,
			FullBackoff:    30 * time.Second,
			QuickInterval:  1 * time.Minute,
			QuickBackoff:   10 * time.Second,
			QuickBatchSize: 10,
			OfflineGrace:   10 * time.Minute,
			EvictAfter:     7 * 24 * time.Hour,
		},
		Enrichment: EnrichmentConfig{
			WorkerPoolSize: 10,
			ProbePorts:     []int{22, 23, 53, 80, 135, 139, 443, 445, 993, 995},
			ProbeTimeout:   1 * time.Second,
			DNSTimeout:     1 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: "127.0.0.1",
			Port:       9090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	// Start with defaults
	config := Default()

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil // Return defaults if no config file
	}

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate store configuration
	if c.Store.Host == "" {
		return fmt.Errorf("store host is required")
	}
	if c.Store.Database == "" {
		return fmt.Errorf("store database name is required")
	}
	if c.Store.Username == "" {
		return fmt.Errorf("store username is required")
	}

	// Validate discovery configuration
	if c.Discovery.FullInterval <= 0 {
		return fmt.Errorf("full discovery interval must be positive")
	}
	if c.Discovery.QuickInterval <= 0 {
		return fmt.Errorf("quick check interval must be positive")
	}
	if c.Discovery.QuickBatchSize <= 0 {
		return fmt.Errorf("quick check batch size must be positive")
	}
	if c.Discovery.OfflineGrace <= 0 {
		return fmt.Errorf("offline grace period must be positive")
	}
	if c.Discovery.EvictAfter <= c.Discovery.OfflineGrace {
		return fmt.Errorf("eviction age must exceed the offline grace period")
	}

	// Validate enrichment configuration
	if c.Enrichment.WorkerPoolSize <= 0 {
		return fmt.Errorf("worker pool size must be positive")
	}
	if c.Enrichment.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be positive")
	}
	for _, port := range c.Enrichment.ProbePorts {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("invalid probe port: %d", port)
		}
	}

	// Validate metrics configuration
	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			return fmt.Errorf("metrics port must be between 1 and 65535")
		}
		if c.Metrics.ListenAddr == "" {
			return fmt.Errorf("metrics listen address is required when metrics are enabled")
		}
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// GetStoreConfig returns the device store configuration
func (c *Config) GetStoreConfig() store.Config {
	return c.Store
}

// GetMetricsAddress returns the full metrics listen address
func (c *Config) GetMetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Metrics.ListenAddr, c.Metrics.Port)
}

// IsMetricsEnabled returns true if the metrics endpoint is enabled
func (c *Config) IsMetricsEnabled() bool {
	return c.Metrics.Enabled
}
