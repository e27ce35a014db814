// Package config loads reposolve configuration and builds the cache and
// repositories it describes.
//
// Configuration files are TOML or YAML, chosen by extension:
//
//	prereleases = false
//
//	[cache]
//	backend = "file"        # memory, file, redis, mongo or none
//	dir = "~/.cache/reposolve"
//	index_ttl = "10m"       # also cache index JSON responses
//	prefix = "reposolve:"   # key namespace for shared backends
//
//	[[repository]]
//	kind = "warehouse"
//	url = "https://pypi.org/pypi"
//
//	[[repository]]
//	kind = "local"
//	path = "./dist"
//	extensions = [".whl", ".tar.gz"]
//
// Without a file, [Default] applies: an in-memory cache and PyPI.
package config

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/reposolve/pkg/cache"
	"github.com/matzehuels/reposolve/pkg/converter"
	errs "github.com/matzehuels/reposolve/pkg/errors"
	"github.com/matzehuels/reposolve/pkg/integrations/pypi"
	"github.com/matzehuels/reposolve/pkg/repository"
	"github.com/matzehuels/reposolve/pkg/repository/local"
	"github.com/matzehuels/reposolve/pkg/repository/warehouse"
)

const appName = "reposolve"

// Repository kinds.
const (
	KindLocal     = "local"
	KindWarehouse = "warehouse"
)

// Cache backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendNone   = "none"
)

// Config is the top-level configuration.
type Config struct {
	// Prereleases is the default prerelease policy for repositories that do
	// not set their own.
	Prereleases bool               `toml:"prereleases" yaml:"prereleases"`
	Cache       CacheConfig        `toml:"cache" yaml:"cache"`
	Repository  []RepositoryConfig `toml:"repository" yaml:"repository"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	Backend string `toml:"backend" yaml:"backend"`

	Dir string `toml:"dir" yaml:"dir"` // file

	Addr     string `toml:"addr" yaml:"addr"` // redis
	Password string `toml:"password" yaml:"password"`
	DB       int    `toml:"db" yaml:"db"`

	URI        string `toml:"uri" yaml:"uri"` // mongo
	Database   string `toml:"database" yaml:"database"`
	Collection string `toml:"collection" yaml:"collection"`

	// Prefix namespaces every key, for backends shared between tools.
	Prefix string `toml:"prefix" yaml:"prefix"`

	// IndexTTL enables caching of index JSON responses for this long.
	IndexTTL string `toml:"index_ttl" yaml:"index_ttl"`
}

// RepositoryConfig describes one repository.
type RepositoryConfig struct {
	Name        string   `toml:"name" yaml:"name"`
	Kind        string   `toml:"kind" yaml:"kind"`
	Path        string   `toml:"path" yaml:"path"`
	URL         string   `toml:"url" yaml:"url"`
	Extensions  []string `toml:"extensions" yaml:"extensions"`
	Prereleases *bool    `toml:"prereleases" yaml:"prereleases"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Cache:      CacheConfig{Backend: BackendMemory},
		Repository: []RepositoryConfig{{Kind: KindWarehouse, URL: pypi.DefaultURL}},
	}
}

// Load reads a TOML (.toml) or YAML (.yaml, .yml) file. Missing fields take
// their defaults; a file without repositories uses PyPI.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "cannot read config")
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return nil, errs.New(errs.ErrCodeInvalidConfig, "unsupported config format: %s", filepath.Base(path))
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "cannot parse %s", filepath.Base(path))
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = BackendMemory
	}
	if len(cfg.Repository) == 0 {
		cfg.Repository = Default().Repository
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks backend and repository settings.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "", BackendMemory, BackendFile, BackendNone:
	case BackendRedis:
		if c.Cache.Addr == "" {
			return errs.New(errs.ErrCodeInvalidConfig, "cache: redis backend requires addr")
		}
	case BackendMongo:
		if c.Cache.URI == "" {
			return errs.New(errs.ErrCodeInvalidConfig, "cache: mongo backend requires uri")
		}
	default:
		return errs.New(errs.ErrCodeInvalidConfig, "cache: unknown backend %q", c.Cache.Backend)
	}
	if _, err := c.Cache.indexTTL(); err != nil {
		return err
	}

	for i, r := range c.Repository {
		switch r.Kind {
		case KindLocal:
			if r.Path == "" {
				return errs.New(errs.ErrCodeInvalidConfig, "repository %d: local repository requires path", i)
			}
		case KindWarehouse:
			if r.URL == "" {
				return errs.New(errs.ErrCodeInvalidConfig, "repository %d: warehouse repository requires url", i)
			}
		default:
			return errs.New(errs.ErrCodeInvalidConfig, "repository %d: unknown kind %q", i, r.Kind)
		}
	}
	return nil
}

func (c CacheConfig) indexTTL() (time.Duration, error) {
	if c.IndexTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.IndexTTL)
	if err != nil || d < 0 {
		return 0, errs.New(errs.ErrCodeInvalidConfig, "cache: invalid index_ttl %q", c.IndexTTL)
	}
	return d, nil
}

// Open builds the cache backend c selects. Redis and mongo backends are
// contacted immediately and fail when unreachable.
func Open(ctx context.Context, c CacheConfig) (cache.Cache, error) {
	backend, err := open(ctx, c)
	if err != nil || c.Prefix == "" {
		return backend, err
	}
	return cache.Namespace(backend, c.Prefix), nil
}

func open(ctx context.Context, c CacheConfig) (cache.Cache, error) {
	switch c.Backend {
	case "", BackendMemory:
		return cache.NewMemory(), nil
	case BackendNone:
		return cache.NewNullCache(), nil
	case BackendFile:
		dir := c.Dir
		if dir == "" {
			d, err := DefaultCacheDir()
			if err != nil {
				return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "cannot determine cache directory")
			}
			dir = d
		}
		return cache.NewFileCache(expandHome(dir))
	case BackendRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{Addr: c.Addr, Password: c.Password, DB: c.DB})
	case BackendMongo:
		return cache.NewMongoCache(ctx, cache.MongoConfig{URI: c.URI, Database: c.Database, Collection: c.Collection})
	}
	return nil, errs.New(errs.ErrCodeInvalidConfig, "cache: unknown backend %q", c.Backend)
}

// Options carries the runtime collaborators shared by all repositories.
type Options struct {
	Cache    cache.Cache
	Logger   *log.Logger
	Progress func(filename string, size int64) io.Writer // warehouse downloads
}

// Repositories builds the configured repositories in order.
func (c *Config) Repositories(opts Options) ([]repository.Repository, error) {
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	ttl, err := c.Cache.indexTTL()
	if err != nil {
		return nil, err
	}

	repos := make([]repository.Repository, 0, len(c.Repository))
	for _, rc := range c.Repository {
		pre := c.Prereleases
		if rc.Prereleases != nil {
			pre = *rc.Prereleases
		}

		switch rc.Kind {
		case KindLocal:
			lopts := []local.Option{
				local.WithPrereleases(pre),
				local.WithConverter(converter.Metadata{}),
				local.WithCache(opts.Cache),
				local.WithLogger(opts.Logger),
			}
			if rc.Name != "" {
				lopts = append(lopts, local.WithName(rc.Name))
			}
			if len(rc.Extensions) > 0 {
				lopts = append(lopts, local.WithExtensions(rc.Extensions...))
			}
			r, err := local.New(expandHome(rc.Path), lopts...)
			if err != nil {
				return nil, err
			}
			repos = append(repos, r)

		case KindWarehouse:
			wopts := []warehouse.Option{
				warehouse.WithPrereleases(pre),
				warehouse.WithCache(opts.Cache),
				warehouse.WithLogger(opts.Logger),
			}
			if rc.Name != "" {
				wopts = append(wopts, warehouse.WithName(rc.Name))
			}
			if ttl > 0 {
				wopts = append(wopts, warehouse.WithIndexCache(opts.Cache, ttl))
			}
			if opts.Progress != nil {
				wopts = append(wopts, warehouse.WithProgress(opts.Progress))
			}
			repos = append(repos, warehouse.New(rc.URL, wopts...))

		default:
			return nil, errs.New(errs.ErrCodeInvalidConfig, "unknown repository kind %q", rc.Kind)
		}
	}
	return repos, nil
}

// DefaultCacheDir returns the file cache directory following the XDG
// convention (~/.cache/reposolve).
func DefaultCacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
