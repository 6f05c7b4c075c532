package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Load reads an optional .env file and then fills cfg from the environment.
func Load(cfg any, files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}
