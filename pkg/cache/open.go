package cache

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	Dir     string // file
	Redis   RedisConfig
	Mongo   MongoConfig
}

// Open creates the backend named by cfg.Backend. An empty backend means file
// when Dir is set and none otherwise.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = BackendNone
		if cfg.Dir != "" {
			backend = BackendFile
		}
	}

	switch backend {
	case BackendNone:
		return NewNullCache(), nil
	case BackendFile:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("file cache: no directory configured")
		}
		return NewFileCache(cfg.Dir)
	case BackendRedis:
		return NewRedisCache(ctx, cfg.Redis)
	case BackendMongo:
		return NewMongoCache(ctx, cfg.Mongo)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}
