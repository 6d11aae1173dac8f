package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Inbound  InboundConfig  `mapstructure:"inbound"`
	AI       AIConfig       `mapstructure:"ai"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver       string        `mapstructure:"driver"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Name         string        `mapstructure:"name"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	SSLMode      string        `mapstructure:"ssl_mode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
}

type StorageConfig struct {
	// Backend selects the blob store: "filesystem" or "database".
	Backend  string `mapstructure:"backend"`
	BasePath string `mapstructure:"base_path"`
}

type InboundConfig struct {
	// WebhookSecret is the capability token embedded in the webhook URL
	// path. Not a signature scheme; anyone holding the URL can post.
	WebhookSecret string `mapstructure:"webhook_secret"`
	// Domain is the inbound address suffix, e.g. support.example.com.
	Domain string `mapstructure:"domain"`
}

type AIConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	AccountID string        `mapstructure:"account_id"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Provider loads configuration and serves the current snapshot, swapping it
// atomically when the file changes on disk.
type Provider struct {
	mu  sync.RWMutex
	cfg *Config
}

// Load reads the YAML config file at path, applies DESKMAIL_-prefixed
// environment overrides, and starts watching the file for changes.
func Load(path string) (*Provider, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("DESKMAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Environment-only configuration is valid; a missing file is not
		// fatal, a malformed one is.
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{cfg: cfg}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		newCfg := &Config{}
		if err := v.Unmarshal(newCfg); err != nil {
			fmt.Printf("config reload failed for %s: %v\n", e.Name, err)
			return
		}
		if err := newCfg.Validate(); err != nil {
			fmt.Printf("config reload rejected for %s: %v\n", e.Name, err)
			return
		}
		p.mu.Lock()
		p.cfg = newCfg
		p.mu.Unlock()
	})

	return p, nil
}

// Get returns the current configuration snapshot (thread-safe).
func (p *Provider) Get() *Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// Validate checks the fields the pipeline cannot run without.
func (c *Config) Validate() error {
	if c.Inbound.WebhookSecret == "" {
		return fmt.Errorf("inbound.webhook_secret is required")
	}
	if c.Inbound.Domain == "" {
		return fmt.Errorf("inbound.domain is required")
	}
	if c.AI.Enabled && (c.AI.AccountID == "" || c.AI.APIKey == "") {
		return fmt.Errorf("ai.account_id and ai.api_key are required when ai.enabled")
	}
	switch c.Storage.Backend {
	case "filesystem", "database":
	default:
		return fmt.Errorf("storage.backend must be filesystem or database, got %q", c.Storage.Backend)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "deskmail")
	v.SetDefault("app.env", "development")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "deskmail")
	v.SetDefault("database.user", "deskmail")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_lifetime", time.Hour)
	v.SetDefault("storage.backend", "filesystem")
	v.SetDefault("storage.base_path", "data/attachments")
	// Registered so AutomaticEnv can populate them without a config file.
	v.SetDefault("inbound.webhook_secret", "")
	v.SetDefault("inbound.domain", "")
	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.account_id", "")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "@cf/meta/llama-3.2-1b-instruct")
	v.SetDefault("ai.timeout", 15*time.Second)
	v.SetDefault("metrics.enabled", true)
}
