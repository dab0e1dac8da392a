package config

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// cache stores one parsed copy per configuration type.
type cache struct {
	mu     sync.Mutex
	values map[string]any
}

var (
	globalCache = &cache{values: make(map[string]any)}

	defaultEnvLoaded sync.Once
)

// noDefaultsTag disables envDefault handling so only variables that are
// actually set override values already present in the struct.
const noDefaultsTag = "tickqueueNoDefault"

// Load populates v from the environment, loading ./.env once per process.
// Each configuration type is parsed once; later calls return the cached copy.
//
//	type QueueConfig struct {
//		AutoStart bool `env:"QUEUE_AUTO_START" envDefault:"true"`
//	}
//
//	var cfg QueueConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	loadDefaultEnv()

	key := typeKey[T]()

	globalCache.mu.Lock()
	defer globalCache.mu.Unlock()

	if cached, ok := globalCache.values[key]; ok {
		*v = cached.(T)
		return nil
	}

	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	globalCache.values[key] = parsed
	*v = parsed
	return nil
}

// loadDefaultEnv loads ./.env into the process environment once.
func loadDefaultEnv() {
	defaultEnvLoaded.Do(func() {
		// a missing .env file is not an error
		_ = godotenv.Load()
	})
}

// MustLoad is like Load but panics on failure.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// LoadEnv loads the given .env files into the process environment.
// Variables already present in the environment are not overwritten.
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// LoadYAML populates v from a YAML file with this precedence, lowest first:
// envDefault tags, the file, then environment variables that are set.
// Like Load it reads ./.env once. Results are not cached.
func LoadYAML[T any](path string, v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	loadDefaultEnv()

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Join(ErrReadingFile, err)
	}

	var parsed T
	if err := env.ParseWithOptions(&parsed, env.Options{Environment: map[string]string{}}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return errors.Join(ErrDecodingYAML, err)
	}
	if err := env.ParseWithOptions(&parsed, env.Options{DefaultValueTagName: noDefaultsTag}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	*v = parsed
	return nil
}

// ResetCache forgets every cached configuration. Intended for tests.
func ResetCache() {
	globalCache.mu.Lock()
	defer globalCache.mu.Unlock()
	clear(globalCache.values)
}

func typeKey[T any]() string {
	return fmt.Sprintf("%T", *new(T))
}
