package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the process configuration, read from the environment (optionally seeded by a .env file).
type Config struct {
	Env  string `envconfig:"APP_ENV" default:"development"`
	Port int    `envconfig:"PORT" default:"8080"`

	DatabaseURL string `envconfig:"DB_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"8"`
	RedisURL    string `envconfig:"REDIS_URL" required:"true"`

	// JWTSecret verifies access tokens minted by the identity provider.
	// Only the API needs it; see ValidateAPI.
	JWTSecret string `envconfig:"JWT_SECRET"`

	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	SendRateLimit      uint          `envconfig:"SEND_RATE_LIMIT" default:"5"`
	SendRateWindow     time.Duration `envconfig:"SEND_RATE_WINDOW" default:"1s"`

	TranslateURL        string        `envconfig:"TRANSLATE_URL" default:"https://translate.googleapis.com/translate_a/single"`
	TranslateTimeout    time.Duration `envconfig:"TRANSLATE_TIMEOUT" default:"5s"`
	TranslationCacheTTL time.Duration `envconfig:"TRANSLATION_CACHE_TTL" default:"24h"`
	LanguageCacheTTL    time.Duration `envconfig:"LANGUAGE_CACHE_TTL" default:"1h"`

	AsynqConcurrency int    `envconfig:"ASYNQ_CONCURRENCY" default:"10"`
	AsynqQueues      string `envconfig:"ASYNQ_QUEUES" default:"default=1,chat=1"`

	S3Region          string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Endpoint        string `envconfig:"S3_ENDPOINT"`
	S3AccessKeyID     string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3PublicURL       string `envconfig:"S3_PUBLIC_URL"`
	AvatarBucket      string `envconfig:"S3_AVATAR_BUCKET" default:"avatars"`
}

// Load reads .env (outside production) and then the process environment.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		// A missing .env is normal in containers; the caller logs nothing for it.
		_ = godotenv.Load()
	}

	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	// envconfig accepts a set-but-empty variable as present.
	switch {
	case strings.TrimSpace(c.DatabaseURL) == "":
		return errors.New("config: DB_URL is required")
	case strings.TrimSpace(c.RedisURL) == "":
		return errors.New("config: REDIS_URL is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("config: PORT must be between 1 and 65535")
	}
	if c.AsynqConcurrency <= 0 {
		return errors.New("config: ASYNQ_CONCURRENCY must be positive")
	}
	if c.TranslateTimeout <= 0 {
		return errors.New("config: TRANSLATE_TIMEOUT must be positive")
	}
	return nil
}

// ValidateAPI checks the settings only the HTTP API depends on.
func (c *Config) ValidateAPI() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.SendRateLimit == 0 {
		return errors.New("config: SEND_RATE_LIMIT must be positive")
	}
	return nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// QueueWeights parses ASYNQ_QUEUES, e.g. "critical=6,default=3,low=1".
// Entries without a weight get 1; malformed weights fall back to 1.
func (c *Config) QueueWeights() map[string]int {
	res := make(map[string]int)
	for _, part := range strings.Split(c.AsynqQueues, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		name := strings.TrimSpace(kv[0])
		if name == "" {
			continue
		}
		w := 1
		if len(kv) == 2 {
			if i, err := strconv.Atoi(strings.TrimSpace(kv[1])); err == nil && i > 0 {
				w = i
			}
		}
		res[name] = w
	}
	if len(res) == 0 {
		res["default"] = 1
	}
	return res
}
