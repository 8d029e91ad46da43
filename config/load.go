package config

import (
	"fmt"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
)

// Load reads configuration from the environment. A .env file is applied
// first when present so local runs need no exported variables.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to bind config from environment: %w", err)
	}
	return cfg, nil
}
