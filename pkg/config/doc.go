// Package config loads typed configuration from environment variables.
//
// Every package declares its own Config struct with env tags
// (github.com/caarlos0/env/v11). Load parses a type once and caches it;
// Parse handles prefixed, repeated structs; LoadEnvFiles reads extra .env
// files through github.com/joho/godotenv.
//
//	type Config struct {
//		URL     string        `env:"MONGODB_URL,required"`
//		Timeout time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
package config
