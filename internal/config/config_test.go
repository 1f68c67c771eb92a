package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/logrelay/internal/models"
)

func TestLoad_WithDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, "logrelay", cfg.Service.Name)
	assert.Equal(t, "development", cfg.Service.Environment)
	assert.Equal(t, 5*time.Second, cfg.Delivery.AttemptTimeout)
	assert.Equal(t, 5*time.Second, cfg.Delivery.StartupDelay)
	assert.True(t, cfg.Delivery.AnnounceStartup)
	assert.Equal(t, int64(1<<20), cfg.Delivery.MaxEventSize)
	assert.Equal(t, "http://elasticsearch-master:9200", cfg.OpenSearch.URL)
	assert.Equal(t, "app-logs", cfg.OpenSearch.Index)
	assert.True(t, cfg.OpenSearch.TLSSkipVerify)
	assert.Equal(t, "http://logstash-server:8080", cfg.Logstash.URL)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 600, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.Equal(t, []models.Backend{
		{Name: "postgresql", Host: "postgres-main", Port: 5432},
		{Name: "mongodb", Host: "mongodb-server", Port: 27017},
		{Name: "redis", Host: "redis-main", Port: 6379},
		{Name: "elasticsearch", Host: "elasticsearch-master", Port: 9200},
	}, cfg.Backends)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
service:
  name: go-app
  environment: staging
delivery:
  attempt_timeout: 2s
opensearch:
  url: https://search.internal:9200
  index: staging-logs
logstash:
  url: http://logstash.internal:8080
backends:
  - name: redis
    host: cache
    port: 6380
  - name: postgresql
    host: db
    port: 5433
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "go-app", cfg.Service.Name)
	assert.Equal(t, "staging", cfg.Service.Environment)
	assert.Equal(t, 2*time.Second, cfg.Delivery.AttemptTimeout)
	assert.Equal(t, "https://search.internal:9200", cfg.OpenSearch.URL)
	assert.Equal(t, "staging-logs", cfg.OpenSearch.Index)
	assert.Equal(t, "http://logstash.internal:8080", cfg.Logstash.URL)
	assert.Equal(t, []models.Backend{
		{Name: "redis", Host: "cache", Port: 6380},
		{Name: "postgresql", Host: "db", Port: 5433},
	}, cfg.Backends)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOGRELAY_SERVER_PORT", "7070")
	t.Setenv("LOGRELAY_OPENSEARCH_URL", "http://es:9200")
	t.Setenv("LOGRELAY_DELIVERY_ATTEMPT_TIMEOUT", "750ms")
	t.Setenv("LOGRELAY_BACKEND_LIST", "postgresql=pg:5432, redis=cache:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "http://es:9200", cfg.OpenSearch.URL)
	assert.Equal(t, 750*time.Millisecond, cfg.Delivery.AttemptTimeout)
	assert.Equal(t, []models.Backend{
		{Name: "postgresql", Host: "pg", Port: 5432},
		{Name: "redis", Host: "cache", Port: 6379},
	}, cfg.Backends)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_ValidationFailure(t *testing.T) {
	t.Setenv("LOGRELAY_DELIVERY_ATTEMPT_TIMEOUT", "0s")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delivery.attempt_timeout")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Service:    ServiceConfig{Name: "logrelay"},
			Delivery:   DeliveryConfig{AttemptTimeout: time.Second},
			OpenSearch: OpenSearchConfig{URL: "http://es:9200", Index: "app-logs"},
			Logstash:   LogstashConfig{URL: "http://logstash:8080"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"negative timeout", func(c *Config) { c.Delivery.AttemptTimeout = -time.Second }, "attempt_timeout"},
		{"missing opensearch url", func(c *Config) { c.OpenSearch.URL = "" }, "opensearch.url"},
		{"missing index", func(c *Config) { c.OpenSearch.Index = "" }, "opensearch.index"},
		{"missing logstash url", func(c *Config) { c.Logstash.URL = "" }, "logstash.url"},
		{"missing service name", func(c *Config) { c.Service.Name = "" }, "service.name"},
		{"rate limit without budget", func(c *Config) {
			c.RateLimit.Enabled = true
			c.RateLimit.Requests = 0
		}, "ratelimit.requests"},
		{"broken backends are allowed", func(c *Config) {
			c.Backends = []models.Backend{{Name: "", Host: "", Port: -1}}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseBackendList(t *testing.T) {
	tests := []struct {
		input string
		want  []models.Backend
	}{
		{"", nil},
		{"postgresql=postgres-main:5432", []models.Backend{{Name: "postgresql", Host: "postgres-main", Port: 5432}}},
		{"a=h1:1,,b=h2:2", []models.Backend{{Name: "a", Host: "h1", Port: 1}, {Name: "b", Host: "h2", Port: 2}}},
		{"redis=redis-main", []models.Backend{{Name: "redis", Host: "redis-main"}}},
		{"redis=redis-main:abc", []models.Backend{{Name: "redis", Host: "redis-main"}}},
		{"=cache:11211", []models.Backend{{Name: "", Host: "cache", Port: 11211}}},
		{"mongodb=", []models.Backend{{Name: "mongodb"}}},
		{"pg=[::1]:5432", []models.Backend{{Name: "pg", Host: "::1", Port: 5432}}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseBackendList(tt.input))
		})
	}
}
