package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors
var (
	// ErrUnknownType is returned by Open for an unsupported storage type.
	ErrUnknownType = errors.New("unknown storage type")
)

// Storage is a durable key/value medium scoped to one user profile.
// Values are opaque strings, callers own their encoding.
type Storage interface {
	// Get returns the stored value and whether it was present.
	Get(key string) (string, bool, error)
	// Set writes value under key, replacing any prior value.
	Set(key, value string) error
	// Delete removes the keys. Missing keys are not an error.
	Delete(keys ...string) error
}

// Type selects a Storage implementation.
type Type string

const (
	TypeFile   Type = "file"
	TypeMemory Type = "memory"
	TypeRedis  Type = "redis"
)

// Config selects and configures a Storage.
type Config struct {
	Type          Type
	Dir           string
	RedisAddr     string
	RedisPassword string
	Namespace     string
}

// Open builds the Storage described by cfg.
// An empty type defaults to file storage under Dir (or ~/.storefront).
func Open(cfg Config) (Storage, error) {
	switch Type(strings.ToLower(string(cfg.Type))) {
	case TypeFile, "":
		dir := cfg.Dir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			dir = filepath.Join(home, ".storefront")
		}
		return NewFileStorage(filepath.Join(dir, "state.json"))
	case TypeMemory:
		return NewMemoryStorage(), nil
	case TypeRedis:
		return NewRedisStorage(cfg.RedisAddr, cfg.RedisPassword, cfg.Namespace), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}
}
