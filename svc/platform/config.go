package platform

import "time"

// ProviderConfig holds the OAuth client and API endpoint of one platform.
// Empty URLs fall back to the platform's public endpoints.
type ProviderConfig struct {
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	RedirectURL  string   `env:"REDIRECT_URL"`
	Scopes       []string `env:"SCOPES" envSeparator:","`
	AuthURL      string   `env:"AUTH_URL"`
	TokenURL     string   `env:"TOKEN_URL"`
	APIBaseURL   string   `env:"API_BASE_URL"`
}

// Config configures the adapter factory.
type Config struct {
	Facebook ProviderConfig `envPrefix:"FACEBOOK_"`
	TikTok   ProviderConfig `envPrefix:"TIKTOK_"`
	X        ProviderConfig `envPrefix:"X_"`

	// CredentialsAppKey is the base64 key stored tokens are encrypted with.
	CredentialsAppKey string        `env:"CREDENTIALS_APP_KEY"`
	RequestTimeout    time.Duration `env:"PLATFORM_REQUEST_TIMEOUT" envDefault:"30s"`
	// TokenCacheSize bounds the token sources kept by the factory.
	TokenCacheSize int `env:"PLATFORM_TOKEN_CACHE_SIZE" envDefault:"1024"`
}

var defaultProviders = map[string]ProviderConfig{
	Facebook: {
		AuthURL:    "https://www.facebook.com/v21.0/dialog/oauth",
		TokenURL:   "https://graph.facebook.com/v21.0/oauth/access_token",
		APIBaseURL: "https://graph.facebook.com/v21.0",
		Scopes:     []string{"pages_manage_posts", "pages_read_engagement"},
	},
	TikTok: {
		AuthURL:    "https://www.tiktok.com/v2/auth/authorize/",
		TokenURL:   "https://open.tiktokapis.com/v2/oauth/token/",
		APIBaseURL: "https://open.tiktokapis.com",
		Scopes:     []string{"video.publish", "video.list"},
	},
	X: {
		AuthURL:    "https://x.com/i/oauth2/authorize",
		TokenURL:   "https://api.x.com/2/oauth2/token",
		APIBaseURL: "https://api.x.com",
		Scopes:     []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
	},
}

func (c Config) provider(name string) (ProviderConfig, bool) {
	def, ok := defaultProviders[name]
	if !ok {
		return ProviderConfig{}, false
	}

	var p ProviderConfig
	switch name {
	case Facebook:
		p = c.Facebook
	case TikTok:
		p = c.TikTok
	case X:
		p = c.X
	}

	if p.AuthURL == "" {
		p.AuthURL = def.AuthURL
	}
	if p.TokenURL == "" {
		p.TokenURL = def.TokenURL
	}
	if p.APIBaseURL == "" {
		p.APIBaseURL = def.APIBaseURL
	}
	if len(p.Scopes) == 0 {
		p.Scopes = def.Scopes
	}
	return p, true
}
