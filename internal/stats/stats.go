// Package stats keeps Redis-backed delivery counters per service.
//
// Several relay instances may write concurrently. Any instance (or the CLI)
// can read the totals back.
//
// Redis Key Structure:
//
//	relay:stats:{service}            - Hash with totals per path and last delivery
//	relay:daily:{service}:{YYYYMMDD} - Hash with per-path counts for one day (expires 7d)
//	relay:instances:{service}        - Hash of relay instance -> last seen timestamp
package stats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldPrimary        = "primary"
	fieldSecondary      = "secondary"
	fieldFailed         = "none"
	fieldLastDeliveryAt = "last_delivery_at"
	fieldLastPath       = "last_path"
)

// Stats holds delivery totals for one service.
type Stats struct {
	Service          string            `json:"service"`
	Primary          int64             `json:"primary"`
	Secondary        int64             `json:"secondary"`
	Failed           int64             `json:"failed"`
	Total            int64             `json:"total"`
	Today            map[string]int64  `json:"today"`
	LastDeliveryAt   *time.Time        `json:"last_delivery_at,omitempty"`
	LastPath         string            `json:"last_path,omitempty"`
	Instances        map[string]string `json:"instances,omitempty"`
	StatsRetrievedAt time.Time         `json:"stats_retrieved_at"`
}

// Client records and reads delivery counters.
type Client struct {
	redis      *redis.Client
	instanceID string
	now        func() time.Time
}

// NewClient connects to redisURL and verifies the connection.
// instanceID should be unique per relay instance (e.g. hostname-pid).
func NewClient(redisURL string, instanceID string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewClientFromRedis(client, instanceID), nil
}

// NewClientFromRedis creates a client from an existing Redis connection.
func NewClientFromRedis(client *redis.Client, instanceID string) *Client {
	return &Client{
		redis:      client,
		instanceID: instanceID,
		now:        time.Now,
	}
}

// RecordDelivery counts one delivery for service under path
// ("primary", "secondary" or "none").
func (c *Client) RecordDelivery(ctx context.Context, service, path string) error {
	now := c.now()
	nowUnix := strconv.FormatInt(now.Unix(), 10)

	pipe := c.redis.TxPipeline()

	statsKey := statsKey(service)
	pipe.HIncrBy(ctx, statsKey, path, 1)
	pipe.HSet(ctx, statsKey, map[string]any{
		fieldLastDeliveryAt: nowUnix,
		fieldLastPath:       path,
	})

	dailyKey := dailyKey(service, now)
	pipe.HIncrBy(ctx, dailyKey, path, 1)
	pipe.Expire(ctx, dailyKey, 7*24*time.Hour)

	instancesKey := instancesKey(service)
	pipe.HSet(ctx, instancesKey, c.instanceID, nowUnix)
	pipe.Expire(ctx, instancesKey, 24*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

// Get reads the totals for service. A service with no deliveries returns zeros.
func (c *Client) Get(ctx context.Context, service string) (*Stats, error) {
	now := c.now()

	pipe := c.redis.Pipeline()
	totalsCmd := pipe.HGetAll(ctx, statsKey(service))
	dailyCmd := pipe.HGetAll(ctx, dailyKey(service, now))
	instancesCmd := pipe.HGetAll(ctx, instancesKey(service))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}

	totals := totalsCmd.Val()
	s := &Stats{
		Service:          service,
		Primary:          parseInt(totals[fieldPrimary]),
		Secondary:        parseInt(totals[fieldSecondary]),
		Failed:           parseInt(totals[fieldFailed]),
		LastPath:         totals[fieldLastPath],
		Today:            make(map[string]int64),
		StatsRetrievedAt: now.UTC(),
	}
	s.Total = s.Primary + s.Secondary + s.Failed

	if ts := parseInt(totals[fieldLastDeliveryAt]); ts > 0 {
		t := time.Unix(ts, 0).UTC()
		s.LastDeliveryAt = &t
	}

	for path, count := range dailyCmd.Val() {
		s.Today[path] = parseInt(count)
	}

	if instances := instancesCmd.Val(); len(instances) > 0 {
		s.Instances = make(map[string]string, len(instances))
		for id, seen := range instances {
			if ts := parseInt(seen); ts > 0 {
				s.Instances[id] = time.Unix(ts, 0).UTC().Format(time.RFC3339)
			}
		}
	}

	return s, nil
}

// Close closes the underlying Redis connection.
func (c *Client) Close() error {
	return c.redis.Close()
}

func statsKey(service string) string {
	return fmt.Sprintf("relay:stats:%s", service)
}

func dailyKey(service string, t time.Time) string {
	return fmt.Sprintf("relay:daily:%s:%s", service, t.Format("20060102"))
}

func instancesKey(service string) string {
	return fmt.Sprintf("relay:instances:%s", service)
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
