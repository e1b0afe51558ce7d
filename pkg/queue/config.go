package queue

import "time"

// Config holds the settings shared by every worker and the Redis store
type Config struct {
	PollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"1s"`
	LockTimeout       time.Duration `env:"QUEUE_LOCK_TIMEOUT" envDefault:"5m"`
	JobTimeout        time.Duration `env:"QUEUE_JOB_TIMEOUT" envDefault:"2m"`
	ShutdownTimeout   time.Duration `env:"QUEUE_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	SchedulerInterval time.Duration `env:"QUEUE_SCHEDULER_INTERVAL" envDefault:"30s"`
	KeyPrefix         string        `env:"QUEUE_KEY_PREFIX" envDefault:"shopflow:queue:"`
	CompletedTTL      time.Duration `env:"QUEUE_COMPLETED_TTL" envDefault:"1h"`
	DeadTTL           time.Duration `env:"QUEUE_DEAD_TTL" envDefault:"168h"`
}

// WorkerConfig holds the settings of one queue. Parse it with an envPrefix
// such as "QUEUE_ORDERS_".
type WorkerConfig struct {
	Concurrency int           `env:"CONCURRENCY" envDefault:"5"`
	RateMax     int           `env:"RATE_MAX" envDefault:"0"` // 0 disables rate limiting
	RateWindow  time.Duration `env:"RATE_WINDOW" envDefault:"1s"`
}

// WorkerOptions translates the shared and per-queue settings into worker options
func (c Config) WorkerOptions(queue string, wc WorkerConfig) []WorkerOption {
	opts := []WorkerOption{
		WithWorkerQueue(queue),
		WithPullInterval(c.PollInterval),
		WithLockTimeout(c.LockTimeout),
		WithJobTimeout(c.JobTimeout),
		WithShutdownTimeout(c.ShutdownTimeout),
		WithConcurrency(wc.Concurrency),
	}
	if wc.RateMax > 0 {
		opts = append(opts, WithRateLimit(wc.RateMax, wc.RateWindow))
	}
	return opts
}

// RedisOptions translates the settings into RedisStorage options
func (c Config) RedisOptions() []RedisStorageOption {
	return []RedisStorageOption{
		WithKeyPrefix(c.KeyPrefix),
		WithRetention(c.CompletedTTL, c.DeadTTL),
	}
}
