package shopflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/shopflow/pkg/email"
	"github.com/dmitrymomot/shopflow/pkg/httpserver"
	"github.com/dmitrymomot/shopflow/pkg/logger"
	"github.com/dmitrymomot/shopflow/pkg/mongo"
	"github.com/dmitrymomot/shopflow/pkg/queue"
	"github.com/dmitrymomot/shopflow/pkg/ratelimiter"
	"github.com/dmitrymomot/shopflow/pkg/redis"
	"github.com/dmitrymomot/shopflow/pkg/secrets"
	"github.com/dmitrymomot/shopflow/svc/jobs"
	"github.com/dmitrymomot/shopflow/svc/notify"
	"github.com/dmitrymomot/shopflow/svc/order"
	"github.com/dmitrymomot/shopflow/svc/payment"
	"github.com/dmitrymomot/shopflow/svc/platform"
	"github.com/dmitrymomot/shopflow/svc/post"
	"github.com/dmitrymomot/shopflow/svc/publishing"
)

// Container holds the process-wide dependencies. It is built once at start
// and passed explicitly; nothing in it is global.
type Container struct {
	Config Config
	Logger *slog.Logger

	Mongo *mongodriver.Client
	Redis *goredis.Client

	Queue        *queue.RedisStorage
	RateLimits   *ratelimiter.RedisStore
	Jobs         *jobs.Client
	Orders       order.Repository
	Posts        post.Repository
	Credentials  platform.CredentialStore
	Platforms    *platform.Factory
	PostSchedule *publishing.Scheduler
	Metrics      *queue.Metrics
	Registry     *prometheus.Registry

	notifier *notify.OrderNotifier
}

// NewContainer connects to the stores and builds the shared services.
func NewContainer(ctx context.Context, cfg Config, log *slog.Logger) (*Container, error) {
	if log == nil {
		log = slog.Default()
	}

	mongoClient, err := mongo.New(ctx, cfg.Mongo)
	if err != nil {
		return nil, err
	}
	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		_ = mongoClient.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}

	c := &Container{
		Config:   cfg,
		Logger:   log,
		Mongo:    mongoClient,
		Redis:    redisClient,
		Registry: prometheus.NewRegistry(),
	}
	if err := c.build(ctx); err != nil {
		_ = c.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return c, nil
}

func (c *Container) build(ctx context.Context) error {
	db := c.Mongo.Database(c.Config.Mongo.Database)

	storage, err := queue.NewRedisStorage(c.Redis, c.Config.Queue.RedisOptions()...)
	if err != nil {
		return fmt.Errorf("queue storage: %w", err)
	}
	c.Queue = storage
	c.RateLimits = ratelimiter.NewRedisStore(c.Redis, c.Config.Queue.KeyPrefix+"ratelimit:")

	enq, err := queue.NewEnqueuer(storage)
	if err != nil {
		return fmt.Errorf("enqueuer: %w", err)
	}
	c.Jobs = jobs.NewClient(enq)

	orders := order.NewMongoRepository(db)
	if err := orders.EnsureIndexes(ctx); err != nil {
		return err
	}
	c.Orders = orders
	c.Posts = post.NewMongoRepository(db)

	if c.Config.Platform.CredentialsAppKey == "" {
		if c.Config.Env.IsProduction() {
			return fmt.Errorf("%w: CREDENTIALS_APP_KEY is required in production", ErrInvalidConfig)
		}
		c.Logger.Warn("CREDENTIALS_APP_KEY not set, platform credentials are kept in memory")
		c.Credentials = platform.NewMemoryCredentialStore()
	} else {
		key, err := secrets.ParseKey(c.Config.Platform.CredentialsAppKey)
		if err != nil {
			return errors.Join(ErrInvalidConfig, err)
		}
		cipher, err := secrets.NewCipher(key)
		if err != nil {
			return errors.Join(ErrInvalidConfig, err)
		}
		store := platform.NewMongoCredentialStore(db, cipher)
		if err := store.EnsureIndexes(ctx); err != nil {
			return err
		}
		c.Credentials = store
	}

	c.Platforms = platform.NewFactory(c.Config.Platform, c.Credentials,
		platform.WithLogger(c.Logger))
	c.PostSchedule = publishing.NewScheduler(c.Posts, c.Jobs,
		publishing.WithSchedulerLogger(c.Logger))
	c.Metrics = queue.NewMetrics(c.Registry)

	return nil
}

// Gateways builds the payment gateways that have credentials configured.
func (c *Container) Gateways() (*payment.Gateways, error) {
	var gws []payment.Gateway
	if c.Config.Paddle.APIKey != "" {
		gw, err := payment.NewPaddleGateway(c.Config.Paddle)
		if err != nil {
			return nil, err
		}
		gws = append(gws, gw)
	}
	if c.Config.Square.AccessToken != "" {
		gw, err := payment.NewSquareGateway(c.Config.Square)
		if err != nil {
			return nil, err
		}
		gws = append(gws, gw)
	}
	if len(gws) == 0 {
		return nil, ErrNoGateway
	}
	return payment.NewGateways(c.Config.DefaultGateway, gws...)
}

// JobHandlers builds the worker-side engines and binds them to their job types.
func (c *Container) JobHandlers() (jobs.Handlers, error) {
	gateways, err := c.Gateways()
	if err != nil {
		return jobs.Handlers{}, err
	}

	notifier, err := notify.NewOrderNotifier(c.Config.Webhook, notify.WithLogger(c.Logger))
	if err != nil {
		return jobs.Handlers{}, err
	}
	c.notifier = notifier

	sender, err := email.New(c.Config.Email, c.Logger)
	if err != nil {
		return jobs.Handlers{}, err
	}

	reconciler := payment.NewReconciler(c.Orders, gateways,
		payment.WithGatewayTimeout(c.Config.GatewayTimeout),
		payment.WithNotifiers(notifier, notify.NewReceiptMailer(c.Jobs, c.Logger)),
		payment.WithReconcilerLogger(c.Logger),
	)
	publisher := publishing.NewPublisher(c.Posts, c.Platforms,
		publishing.WithPlatformTimeout(c.Config.PlatformTimeout),
		publishing.WithPublisherLogger(c.Logger),
	)
	sweeper := payment.NewSweeper(c.Orders, c.Jobs, c.Config.Sweeper, c.Logger)

	return jobs.Handlers{
		CheckPaymentStatus:   reconciler.Handle,
		PublishScheduledPost: publisher.Handle,
		SendEmail:            jobs.SendEmailHandler(sender),
		SweepPendingPayments: sweeper.Sweep,
	}, nil
}

// WorkerOptions returns the options for the worker of the named queue.
func (c *Container) WorkerOptions(name string) []queue.WorkerOption {
	opts := c.Config.Queue.WorkerOptions(name, c.Config.Worker(name))
	return append(opts,
		queue.WithRateLimitStore(c.RateLimits),
		queue.WithMetrics(c.Metrics),
		queue.WithWorkerLogger(c.Logger.With(logger.Queue(name))),
	)
}

// Checks returns the readiness checks of the backing stores.
func (c *Container) Checks() map[string]httpserver.Check {
	return map[string]httpserver.Check{
		"mongo": mongo.Healthcheck(c.Mongo),
		"redis": redis.Healthcheck(c.Redis),
	}
}

// Close waits for in-flight webhook deliveries and disconnects the stores.
func (c *Container) Close(ctx context.Context) error {
	if c.notifier != nil {
		c.notifier.Wait()
	}
	var errs []error
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.Mongo != nil {
		errs = append(errs, c.Mongo.Disconnect(ctx))
	}
	return errors.Join(errs...)
}
