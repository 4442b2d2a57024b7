package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables that override file settings.
const (
	EnvMaxHops  = "RELAY_MAX_HOPS"
	EnvStore    = "RELAY_STORE"
	EnvLogLevel = "RELAY_LOG_LEVEL"
	EnvProvider = "RELAY_PROVIDER"
	EnvModel    = "RELAY_MODEL"
)

// ApplyEnvironment overrides config values from the process environment.
func (c *Config) ApplyEnvironment() error {
	return c.ApplyEnv(os.Getenv)
}

// ApplyEnv overrides config values using getenv.
//
// RELAY_STORE takes the form "type" or "type:location", for example
// "sqlite:/var/lib/relay/relay.db" or "redis:localhost:6379".
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvMaxHops)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvMaxHops, v, err)
		}
		c.MaxHops = n
	}
	if v := strings.TrimSpace(getenv(EnvStore)); v != "" {
		store, err := ParseStore(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvStore, err)
		}
		c.Store = store
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(getenv(EnvProvider)); v != "" {
		c.Backend.Provider = v
	}
	if v := strings.TrimSpace(getenv(EnvModel)); v != "" {
		c.Backend.Model = v
	}
	return nil
}

// ParseStore parses a "type" or "type:location" store reference.
func ParseStore(ref string) (Store, error) {
	kind, location, _ := strings.Cut(ref, ":")
	kind = strings.ToLower(strings.TrimSpace(kind))
	switch kind {
	case StoreMemory:
		return Store{Type: kind}, nil
	case StoreFile, StoreSQLite:
		if location == "" {
			return Store{}, fmt.Errorf("%s store requires a path", kind)
		}
		return Store{Type: kind, Path: location}, nil
	case StoreRedis:
		if location == "" {
			location = "localhost:6379"
		}
		return Store{Type: kind, Addr: location}, nil
	default:
		return Store{}, fmt.Errorf("unknown store type %q", kind)
	}
}
