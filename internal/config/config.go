// Package config loads logrelay configuration from defaults, an optional YAML
// file, and LOGRELAY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/telhawk-systems/logrelay/internal/models"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Service    ServiceConfig    `mapstructure:"service"`
	Delivery   DeliveryConfig   `mapstructure:"delivery"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
	Logstash   LogstashConfig   `mapstructure:"logstash"`
	Backends   []models.Backend `mapstructure:"backends"`
	Redis      RedisConfig      `mapstructure:"redis"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Logging    LoggingConfig    `mapstructure:"logging"`

	// BackendList overrides Backends when set, as
	// "name=host:port,name=host:port". Set through LOGRELAY_BACKEND_LIST.
	BackendList string `mapstructure:"backend_list"`
}

type ServerConfig struct {
	Port               int           `mapstructure:"port"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
}

// ServiceConfig names the origin stamped on events this service creates.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

type DeliveryConfig struct {
	AttemptTimeout  time.Duration `mapstructure:"attempt_timeout"`
	AnnounceStartup bool          `mapstructure:"announce_startup"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	MaxEventSize    int64         `mapstructure:"max_event_size"`
}

type OpenSearchConfig struct {
	URL           string `mapstructure:"url"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	TLSSkipVerify bool   `mapstructure:"tls_skip_verify"`
	Index         string `mapstructure:"index"`
}

type LogstashConfig struct {
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration. An empty configPath searches ./config.yaml and
// /etc/logrelay/config.yaml; a missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/logrelay")
	}

	// Environment variables override, e.g. LOGRELAY_OPENSEARCH_URL
	v.SetEnvPrefix("LOGRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.BackendList != "" {
		cfg.Backends = ParseBackendList(cfg.BackendList)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.cors_allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("service.name", "logrelay")
	v.SetDefault("service.environment", "development")

	v.SetDefault("delivery.attempt_timeout", "5s")
	v.SetDefault("delivery.announce_startup", true)
	v.SetDefault("delivery.startup_delay", "5s")
	v.SetDefault("delivery.max_event_size", 1048576)

	v.SetDefault("opensearch.url", "http://elasticsearch-master:9200")
	v.SetDefault("opensearch.username", "")
	v.SetDefault("opensearch.password", "")
	v.SetDefault("opensearch.tls_skip_verify", true)
	v.SetDefault("opensearch.index", "app-logs")

	v.SetDefault("logstash.url", "http://logstash-server:8080")

	v.SetDefault("backends", []map[string]any{
		{"name": "postgresql", "host": "postgres-main", "port": 5432},
		{"name": "mongodb", "host": "mongodb-server", "port": 27017},
		{"name": "redis", "host": "redis-main", "port": 6379},
		{"name": "elasticsearch", "host": "elasticsearch-master", "port": 9200},
	})
	v.SetDefault("backend_list", "")

	v.SetDefault("redis.url", "redis://redis-main:6379/0")
	v.SetDefault("redis.enabled", false)

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.requests", 600)
	v.SetDefault("ratelimit.window", "1m")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate rejects configurations the delivery path cannot run with.
// Backend descriptors are never rejected; bad entries degrade in the report.
func (c *Config) Validate() error {
	var errs []error
	if c.Delivery.AttemptTimeout <= 0 {
		errs = append(errs, fmt.Errorf("delivery.attempt_timeout must be positive, got %s", c.Delivery.AttemptTimeout))
	}
	if c.OpenSearch.URL == "" {
		errs = append(errs, errors.New("opensearch.url is required"))
	}
	if c.OpenSearch.Index == "" {
		errs = append(errs, errors.New("opensearch.index is required"))
	}
	if c.Logstash.URL == "" {
		errs = append(errs, errors.New("logstash.url is required"))
	}
	if c.Service.Name == "" {
		errs = append(errs, errors.New("service.name is required"))
	}
	if c.RateLimit.Enabled && c.RateLimit.Requests <= 0 {
		errs = append(errs, fmt.Errorf("ratelimit.requests must be positive, got %d", c.RateLimit.Requests))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ParseBackendList parses "name=host:port" pairs separated by commas.
// Malformed pairs are kept with whatever could be parsed so the health report
// can still show them.
func ParseBackendList(s string) []models.Backend {
	var backends []models.Backend
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		name, addr, _ := strings.Cut(item, "=")
		b := models.Backend{Name: strings.TrimSpace(name)}

		addr = strings.TrimSpace(addr)
		if host, port, err := net.SplitHostPort(addr); err == nil {
			b.Host = host
			if p, err := strconv.Atoi(port); err == nil {
				b.Port = p
			}
		} else {
			b.Host = addr
		}

		backends = append(backends, b)
	}
	return backends
}
