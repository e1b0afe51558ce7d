package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type cacheEntry struct {
	once  sync.Once
	value any
	err   error
}

var (
	cache           sync.Map // reflect.Type -> *cacheEntry
	defaultEnvFiles sync.Once
)

// Load parses environment variables into v. Each config type is parsed once
// per process; later calls for the same type get the cached copy, and a
// failed parse keeps failing with the same error.
//
// A .env file in the working directory is loaded first when present.
// Variables already set in the environment win over the file.
//
//	var cfg queue.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	defaultEnvFiles.Do(func() {
		_ = godotenv.Load()
	})

	raw, _ := cache.LoadOrStore(reflect.TypeFor[T](), &cacheEntry{})
	entry := raw.(*cacheEntry)
	entry.once.Do(func() {
		var fresh T
		if err := env.Parse(&fresh); err != nil {
			entry.err = errors.Join(ErrParsingConfig, err)
			return
		}
		entry.value = fresh
	})

	if entry.err != nil {
		return entry.err
	}
	*v = entry.value.(T)
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// Parse parses v without caching, with every variable name prefixed.
// It serves repeated structs such as per-queue worker settings.
func Parse[T any](v *T, prefix string) error {
	if v == nil {
		return ErrNilPointer
	}
	if err := env.ParseWithOptions(v, env.Options{Prefix: prefix}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// LoadEnvFiles loads the given .env files into the process environment
// without overriding variables that are already set.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return errors.Join(ErrEnvFile, err)
	}
	return nil
}
