package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// metricsKey is the Redis key the collector reports under.
	metricsKey = "metrics:alertd"
	// metricsTTL is how long metrics stay in Redis if not refreshed.
	metricsTTL = 2 * time.Minute
	// defaultReportInterval is the default interval for writing metrics to Redis.
	defaultReportInterval = 30 * time.Second
)

// Snapshot is the JSON document written to Redis for dashboards.
type Snapshot struct {
	ServiceName string    `json:"service_name"`
	StartedAt   time.Time `json:"started_at"`
	LastUpdated time.Time `json:"last_updated"`

	Dispatches        map[string]uint64 `json:"dispatches"`
	SendsSucceeded    map[string]uint64 `json:"sends_succeeded"`
	SendsFailed       map[string]uint64 `json:"sends_failed"`
	SendsSkipped      uint64            `json:"sends_skipped"`
	AlertsEscalated   uint64            `json:"alerts_escalated"`
	RequestsThrottled uint64            `json:"requests_throttled"`
}

// Collector is a Recorder that periodically reports counters to Redis so the
// values survive across instances and are visible to dashboards.
type Collector struct {
	redis          *redis.Client
	startedAt      time.Time
	reportInterval time.Duration

	mu             sync.Mutex
	dispatches     map[string]uint64
	sendsSucceeded map[string]uint64
	sendsFailed    map[string]uint64

	sendsSkipped      atomic.Uint64
	alertsEscalated   atomic.Uint64
	requestsThrottled atomic.Uint64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewCollector creates a Redis-reporting metrics collector.
func NewCollector(redisClient *redis.Client) *Collector {
	return &Collector{
		redis:          redisClient,
		startedAt:      time.Now().UTC(),
		reportInterval: defaultReportInterval,
		dispatches:     make(map[string]uint64),
		sendsSucceeded: make(map[string]uint64),
		sendsFailed:    make(map[string]uint64),
		stopCh:         make(chan struct{}),
	}
}

// SetReportInterval sets the interval for writing metrics to Redis.
func (c *Collector) SetReportInterval(interval time.Duration) {
	c.reportInterval = interval
}

// Start begins the periodic metrics reporting to Redis.
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.write(context.Background()) // Final write
				return
			case <-c.stopCh:
				c.write(context.Background()) // Final write
				return
			case <-ticker.C:
				c.write(ctx)
			}
		}
	}()
}

// Stop stops the metrics reporting.
func (c *Collector) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

func (c *Collector) RecordDispatch(wave string) {
	c.mu.Lock()
	c.dispatches[wave]++
	c.mu.Unlock()
}

func (c *Collector) RecordSend(channel string, success bool) {
	c.mu.Lock()
	if success {
		c.sendsSucceeded[channel]++
	} else {
		c.sendsFailed[channel]++
	}
	c.mu.Unlock()
}

func (c *Collector) RecordSkipped()   { c.sendsSkipped.Add(1) }
func (c *Collector) RecordEscalated() { c.alertsEscalated.Add(1) }
func (c *Collector) RecordThrottled() { c.requestsThrottled.Add(1) }

// GetSnapshot returns current counters without writing to Redis.
func (c *Collector) GetSnapshot() *Snapshot {
	c.mu.Lock()
	dispatches := make(map[string]uint64, len(c.dispatches))
	for k, v := range c.dispatches {
		dispatches[k] = v
	}
	succeeded := make(map[string]uint64, len(c.sendsSucceeded))
	for k, v := range c.sendsSucceeded {
		succeeded[k] = v
	}
	failed := make(map[string]uint64, len(c.sendsFailed))
	for k, v := range c.sendsFailed {
		failed[k] = v
	}
	c.mu.Unlock()

	return &Snapshot{
		ServiceName:       "alertd",
		StartedAt:         c.startedAt,
		LastUpdated:       time.Now().UTC(),
		Dispatches:        dispatches,
		SendsSucceeded:    succeeded,
		SendsFailed:       failed,
		SendsSkipped:      c.sendsSkipped.Load(),
		AlertsEscalated:   c.alertsEscalated.Load(),
		RequestsThrottled: c.requestsThrottled.Load(),
	}
}

// write writes current counters to Redis.
func (c *Collector) write(ctx context.Context) {
	if c.redis == nil {
		return
	}

	data, err := json.Marshal(c.GetSnapshot())
	if err != nil {
		slog.Error("Failed to marshal metrics", "error", err)
		return
	}
	if err := c.redis.Set(ctx, metricsKey, data, metricsTTL).Err(); err != nil {
		slog.Error("Failed to write metrics to Redis", "error", err)
		return
	}
	slog.Debug("Metrics written to Redis", "key", metricsKey)
}

// Ensure Collector implements Recorder
var _ Recorder = (*Collector)(nil)
