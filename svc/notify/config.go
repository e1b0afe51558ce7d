package notify

import "time"

// Config holds the order webhook settings. An empty URL disables the webhook.
type Config struct {
	WebhookURL       string        `env:"ORDER_WEBHOOK_URL"`
	WebhookSecret    string        `env:"ORDER_WEBHOOK_SECRET"`
	Timeout          time.Duration `env:"ORDER_WEBHOOK_TIMEOUT" envDefault:"10s"`
	MaxRetries       int           `env:"ORDER_WEBHOOK_MAX_RETRIES" envDefault:"2"`
	BreakerThreshold int           `env:"ORDER_WEBHOOK_BREAKER_THRESHOLD" envDefault:"5"`
	BreakerCooldown  time.Duration `env:"ORDER_WEBHOOK_BREAKER_COOLDOWN" envDefault:"1m"`
}
