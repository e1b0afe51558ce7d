package redis

import "time"

// Config holds the queue store connection settings.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL,required"`
	PoolSize       int           `env:"REDIS_POOL_SIZE" envDefault:"0"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}
