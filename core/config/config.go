package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	mu    sync.Mutex
	cache = make(map[reflect.Type]any)

	loadDotEnv sync.Once
)

// Load populates cfg from environment variables. Each configuration type is
// parsed once per process; later calls for the same type return the cached
// value. A .env file in the working directory is loaded automatically before
// the first parse.
func Load[T any](cfg *T) error {
	loadDotEnv.Do(func() {
		// Missing .env files are the common case outside development.
		_ = godotenv.Load()
	})

	mu.Lock()
	defer mu.Unlock()

	typ := reflect.TypeOf(*cfg)
	if cached, ok := cache[typ]; ok {
		*cfg = cached.(T)
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse %s from environment: %w", typ, err)
	}

	cache[typ] = *cfg
	return nil
}

// MustLoad is Load that panics on failure, for use during startup.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}
