package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	BotToken string `env:"BOT_TOKEN,required"`

	PostgresDSN string `env:"POSTGRES_DSN"`

	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	AdminAddr  string `env:"ADMIN_ADDR" envDefault:":8081"`
	AdminToken string `env:"ADMIN_TOKEN,required"`

	TRXWalletAddress string  `env:"TRX_WALLET_ADDRESS" envDefault:"TXYourTronWalletAddressHere"`
	CardPrice        float64 `env:"CARD_PRICE" envDefault:"50"`

	SessionTTLSeconds int    `env:"SESSION_TTL_SECONDS" envDefault:"300"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

// RedisAddr is empty when Redis is not configured; the caller falls back to
// the in-process session store.
func (c *Config) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
