package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	mu     sync.Mutex
	loaded = make(map[string]any)

	dotenvOnce sync.Once
)

// Load populates the provided configuration struct from environment
// variables. Each unique configuration type is parsed only once per process;
// subsequent calls for the same type return the cached value so that every
// component observes identical settings.
//
// The default .env file is loaded lazily on the first call. A missing .env
// file is not an error.
//
// Example:
//
//	type ResolverConfig struct {
//		CentralDomains []string `env:"CENTRAL_DOMAINS" envSeparator:","`
//		BaseDomain     string   `env:"TENANT_BASE_DOMAIN,required"`
//	}
//
//	var cfg ResolverConfig
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		// The .env file might not exist and that's ok.
		_ = godotenv.Load()
	})

	key := typeName[T]()

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := loaded[key]; ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	// Store a copy so later mutations by the caller do not leak back.
	loaded[key] = *v
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
// Use for configuration without which the process cannot start.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: failed to load required configuration: %v", err))
	}
}

func typeName[T any]() string {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return fmt.Sprintf("%T", *new(T))
	}
	return t.String()
}
