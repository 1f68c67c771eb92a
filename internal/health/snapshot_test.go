package health

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/telhawk-systems/logrelay/internal/models"
)

func TestSnapshot_PreservesOrder(t *testing.T) {
	backends := []models.Backend{
		{Name: "postgresql", Host: "postgres-main", Port: 5432},
		{Name: "redis", Host: "redis-main", Port: 6379},
	}

	payload, err := json.Marshal(Snapshot(backends))
	require.NoError(t, err)
	assert.Equal(t, `{"postgresql":"postgres-main:5432","redis":"redis-main:6379"}`, string(payload))

	reversed := []models.Backend{backends[1], backends[0]}
	payload, err = json.Marshal(Snapshot(reversed))
	require.NoError(t, err)
	assert.Equal(t, `{"redis":"redis-main:6379","postgresql":"postgres-main:5432"}`, string(payload))
}

func TestSnapshot_Idempotent(t *testing.T) {
	backends := []models.Backend{
		{Name: "postgresql", Host: "postgres-main", Port: 5432},
		{Name: "mongodb", Host: "mongodb-server", Port: 27017},
		{Name: "redis", Host: "redis-main", Port: 6379},
		{Name: "elasticsearch", Host: "elasticsearch-master", Port: 9200},
	}

	first := Snapshot(backends)
	second := Snapshot(backends)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"postgresql", "mongodb", "redis", "elasticsearch"}, first.Names())
}

func TestSnapshot_DegradedEntries(t *testing.T) {
	tests := []struct {
		name     string
		backends []models.Backend
		want     Databases
	}{
		{
			name: "empty host is unconfigured",
			backends: []models.Backend{
				{Name: "postgresql", Host: "postgres-main", Port: 5432},
				{Name: "mongodb", Host: "", Port: 27017},
				{Name: "redis", Host: "redis-main", Port: 6379},
			},
			want: Databases{
				{Name: "postgresql", Address: "postgres-main:5432"},
				{Name: "mongodb", Address: Unconfigured},
				{Name: "redis", Address: "redis-main:6379"},
			},
		},
		{
			name:     "whitespace host is unconfigured",
			backends: []models.Backend{{Name: "redis", Host: "  ", Port: 6379}},
			want:     Databases{{Name: "redis", Address: Unconfigured}},
		},
		{
			name: "non-positive port renders host alone",
			backends: []models.Backend{
				{Name: "redis", Host: "redis-main", Port: 0},
				{Name: "mongodb", Host: "mongodb-server", Port: -1},
			},
			want: Databases{
				{Name: "redis", Address: "redis-main"},
				{Name: "mongodb", Address: "mongodb-server"},
			},
		},
		{
			name: "empty name uses position",
			backends: []models.Backend{
				{Name: "postgresql", Host: "postgres-main", Port: 5432},
				{Name: "", Host: "cache", Port: 11211},
			},
			want: Databases{
				{Name: "postgresql", Address: "postgres-main:5432"},
				{Name: "backend-2", Address: "cache:11211"},
			},
		},
		{
			name: "duplicate keeps first position and last value",
			backends: []models.Backend{
				{Name: "redis", Host: "redis-old", Port: 6379},
				{Name: "postgresql", Host: "postgres-main", Port: 5432},
				{Name: "redis", Host: "redis-new", Port: 6380},
			},
			want: Databases{
				{Name: "redis", Address: "redis-new:6380"},
				{Name: "postgresql", Address: "postgres-main:5432"},
			},
		},
		{
			name:     "ipv6 host",
			backends: []models.Backend{{Name: "pg", Host: "::1", Port: 5432}},
			want:     Databases{{Name: "pg", Address: "[::1]:5432"}},
		},
		{
			name:     "empty list",
			backends: nil,
			want:     Databases{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Snapshot(tt.backends))
		})
	}
}

func TestDatabases_Get(t *testing.T) {
	d := Snapshot([]models.Backend{{Name: "redis", Host: "redis-main", Port: 6379}})

	addr, ok := d.Get("redis")
	assert.True(t, ok)
	assert.Equal(t, "redis-main:6379", addr)

	_, ok = d.Get("mongodb")
	assert.False(t, ok)
}

func TestDatabases_JSONRoundTrip(t *testing.T) {
	original := Databases{
		{Name: "zeta", Address: "z:1"},
		{Name: "alpha", Address: Unconfigured},
		{Name: "mid", Address: "m"},
	}

	payload, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"z:1","alpha":"unconfigured","mid":"m"}`, string(payload))

	var decoded Databases
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, original, decoded)

	require.NoError(t, json.Unmarshal([]byte(`null`), &decoded))
	assert.Nil(t, decoded)

	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &decoded))
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &decoded))
}

func TestDatabases_EmptyJSON(t *testing.T) {
	payload, err := json.Marshal(Databases{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(payload))
}

func TestDatabases_YAMLOrder(t *testing.T) {
	d := Databases{
		{Name: "redis", Address: "redis-main:6379"},
		{Name: "postgresql", Address: "postgres-main:5432"},
	}

	out, err := yaml.Marshal(map[string]any{"databases": d})
	require.NoError(t, err)
	assert.Equal(t, "databases:\n    redis: redis-main:6379\n    postgresql: postgres-main:5432\n", string(out))
}

func TestAggregator_Report(t *testing.T) {
	backends := []models.Backend{
		{Name: "postgresql", Host: "postgres-main", Port: 5432},
		{Name: "redis", Host: "redis-main", Port: 6379},
	}
	agg := NewAggregator("go-app", "development", backends)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return fixed }

	// Later changes to the caller's slice are not seen.
	backends[0].Host = "elsewhere"

	report := agg.Report()
	assert.Equal(t, StatusHealthy, report.Status)

	payload, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Equal(t,
		`{"status":"healthy","timestamp":"2024-03-01T12:00:00Z","service":"go-app","environment":"development",`+
			`"databases":{"postgresql":"postgres-main:5432","redis":"redis-main:6379"}}`,
		string(payload))

	var decoded Report
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, report, decoded)
}

func TestAggregator_ConcurrentReports(t *testing.T) {
	agg := NewAggregator("go-app", "development", []models.Backend{
		{Name: "postgresql", Host: "postgres-main", Port: 5432},
		{Name: "redis", Host: "redis-main", Port: 6379},
	})
	want := agg.Report().Databases

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, agg.Report().Databases)
		}()
	}
	wg.Wait()
}
