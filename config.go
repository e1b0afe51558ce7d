package shopflow

import (
	"errors"
	"time"

	"github.com/dmitrymomot/shopflow/pkg/config"
	"github.com/dmitrymomot/shopflow/pkg/email"
	"github.com/dmitrymomot/shopflow/pkg/environment"
	"github.com/dmitrymomot/shopflow/pkg/httpserver"
	"github.com/dmitrymomot/shopflow/pkg/logger"
	"github.com/dmitrymomot/shopflow/pkg/mongo"
	"github.com/dmitrymomot/shopflow/pkg/queue"
	"github.com/dmitrymomot/shopflow/pkg/redis"
	"github.com/dmitrymomot/shopflow/svc/jobs"
	"github.com/dmitrymomot/shopflow/svc/notify"
	"github.com/dmitrymomot/shopflow/svc/payment"
	"github.com/dmitrymomot/shopflow/svc/platform"
)

// Config aggregates the configuration of every component.
type Config struct {
	Env         environment.Environment `env:"APP_ENV" envDefault:"development"`
	ServiceName string                  `env:"SERVICE_NAME" envDefault:"shopflow"`

	Log      logger.Config
	HTTP     httpserver.Config
	Mongo    mongo.Config
	Redis    redis.Config
	Queue    queue.Config
	Email    email.Config
	Webhook  notify.Config
	Platform platform.Config

	Paddle         payment.PaddleConfig
	Square         payment.SquareConfig
	Sweeper        payment.SweeperConfig
	DefaultGateway string        `env:"PAYMENT_DEFAULT_GATEWAY" envDefault:"paddle"`
	GatewayTimeout time.Duration `env:"PAYMENT_GATEWAY_TIMEOUT" envDefault:"15s"`
	SweepInterval  time.Duration `env:"PAYMENT_SWEEP_INTERVAL" envDefault:"10m"`

	PlatformTimeout time.Duration `env:"PUBLISH_PLATFORM_TIMEOUT" envDefault:"60s"`
	OpsAddr         string        `env:"OPS_ADDR" envDefault:":9090"`

	// Workers holds per-queue settings parsed from QUEUE_<NAME>_* variables.
	Workers map[string]queue.WorkerConfig
}

var workerPrefixes = map[string]string{
	jobs.QueueOrders:         "QUEUE_ORDERS_",
	jobs.QueueScheduledPosts: "QUEUE_SCHEDULED_POSTS_",
	jobs.QueueEmails:         "QUEUE_EMAILS_",
}

// LoadConfig reads the process configuration from the environment and an
// optional .env file.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}

	cfg.Workers = make(map[string]queue.WorkerConfig, len(workerPrefixes))
	for name, prefix := range workerPrefixes {
		var wc queue.WorkerConfig
		if err := config.Parse(&wc, prefix); err != nil {
			return Config{}, errors.Join(ErrInvalidConfig, err)
		}
		cfg.Workers[name] = wc
	}
	return cfg, nil
}

// Worker returns the settings of the named queue, falling back to defaults.
func (c Config) Worker(name string) queue.WorkerConfig {
	if wc, ok := c.Workers[name]; ok {
		return wc
	}
	return queue.WorkerConfig{Concurrency: 5, RateWindow: time.Second}
}
