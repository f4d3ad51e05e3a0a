// Package config loads per-package Config structs from environment
// variables. A local .env file is read once (if present) before the first
// parse, which keeps development setups down to a single file.
package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrNilPointer    = errors.New("config: nil config pointer")
	ErrParsingConfig = errors.New("config: failed to parse environment")
)

var dotenvOnce sync.Once

// Load populates v from the environment based on `env:"..."` field tags.
//
//	type Config struct {
//	    Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	    DSN  string `env:"DATABASE_URL,required"`
//	}
func Load[T any](v *T) error {
	dotenvOnce.Do(func() {
		// The .env file is optional; absence is not an error.
		_ = godotenv.Load()
	})

	if v == nil {
		return ErrNilPointer
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad panics when required configuration is missing. Used at startup
// for config the process cannot run without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}
