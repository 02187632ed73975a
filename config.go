package kitsune

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
)

// SigningAlgorithmHS256 is the only signing algorithm this service supports.
const SigningAlgorithmHS256 = "HS256"

// Config holds the process-wide configuration, loaded from the environment
// once at startup and read-only afterwards. Components receive it (or the
// values they need) explicitly; nothing reads ambient state.
type Config struct {
	ProjectName              string `env:"PROJECT_NAME" envDefault:"Kitsune API"`
	APIPrefix                string `env:"API_V1_STR" envDefault:"/api/v1"`
	ListenAddr               string `env:"LISTEN_ADDR" envDefault:":8000"`
	DatabaseURL              string `env:"DATABASE_URL" envDefault:"file:kitsune.db"`
	SecretKey                string `env:"SECRET_KEY" envDefault:"CHANGE_THIS_IN_PRODUCTION_TO_A_SECURE_SECRET_KEY"`
	Algorithm                string `env:"ALGORITHM" envDefault:"HS256"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"30"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// Validate rejects configurations the service cannot honor.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return goerrors.New("secret key must not be empty", goerrors.CategoryValidation)
	}

	if c.Algorithm != SigningAlgorithmHS256 {
		return goerrors.New("unsupported signing algorithm", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"algorithm": c.Algorithm})
	}

	if c.AccessTokenExpireMinutes <= 0 {
		return goerrors.New("access token lifetime must be positive", goerrors.CategoryValidation)
	}

	return nil
}

// TokenTTL is the configured access token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}
