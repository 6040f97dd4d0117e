package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the struct pointed to by cfg.
// Fields are mapped with `env` tags and defaulted with `envDefault`:
//
//	type Config struct {
//	    HTTPPort    int      `env:"STORE_HTTP_PORT" envDefault:"8080"`
//	    RedisAddr   string   `env:"REDIS_ADDR" envDefault:"localhost:6379"`
//	    KafkaBroker []string `env:"KAFKA_BROKERS" envSeparator:","`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
