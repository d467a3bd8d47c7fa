package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"whereis/internal/application/port"
	"whereis/internal/application/service"
	"whereis/internal/infrastructure/config"
	"whereis/internal/infrastructure/metrics"
	"whereis/internal/infrastructure/storage/composite"
	"whereis/internal/infrastructure/storage/memory"
	pgrepo "whereis/internal/infrastructure/storage/postgres"
	redisrepo "whereis/internal/infrastructure/storage/redis"
	sqliterepo "whereis/internal/infrastructure/storage/sqlite"
	"whereis/internal/infrastructure/tracker"
)

// Container owns every long-lived dependency of the process.
type Container struct {
	cfg         *config.Config
	cache       port.PositionCache
	tracker     *tracker.Client
	metrics     *metrics.Collector
	resolver    *service.Resolver
	linker      *service.MapLinker
	closeOnce   sync.Once
	closerChain []func() error
}

// New wires the container. reg receives the metrics collectors; nil means
// the global Prometheus registry.
func New(cfg *config.Config, reg prometheus.Registerer) (*Container, error) {
	c := &Container{
		cfg:         cfg,
		closerChain: make([]func() error, 0),
	}

	if err := c.initCache(); err != nil {
		_ = c.Close()
		return nil, err
	}

	m, err := metrics.NewCollector(reg)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("metrics init failed: %w", err)
	}
	c.metrics = m

	c.tracker = tracker.NewClient(tracker.Options{
		BaseURL:       cfg.Tracker.BaseURL,
		APIVersion:    cfg.Tracker.APIVersion,
		Login:         cfg.Tracker.Login,
		APIKey:        cfg.Tracker.APIKey,
		RateLimitCode: cfg.Tracker.RateLimitCode,
		Timeout:       cfg.Tracker.Timeout,
		RPS:           cfg.Tracker.RPS,
		Burst:         cfg.Tracker.Burst,
	})

	c.resolver = service.NewResolver(service.ResolverDeps{
		Cache:  c.cache,
		Source: c.tracker,
		Policy: service.Policy{
			SoftTTL: cfg.Cache.SoftTTL,
			HardTTL: cfg.Cache.HardTTL,
		},
		Recorder: c.metrics,
	})

	c.linker = service.NewMapLinker(service.MapOptions{
		ViewURL:  cfg.Map.ViewURL,
		ImageURL: cfg.Map.ImageURL,
		Zoom:     cfg.Map.ZoomLevel(),
		Width:    cfg.Map.Width,
		Height:   cfg.Map.Height,
	})

	log.Info().
		Strs("backends", cfg.Cache.Backends).
		Dur("soft_ttl", cfg.Cache.SoftTTL).
		Dur("hard_ttl", cfg.Cache.HardTTL).
		Str("tracker", cfg.Tracker.BaseURL).
		Msg("container initialized")

	return c, nil
}

// initCache builds one repo per configured backend. Several backends are
// fanned out through composite in the listed order.
func (c *Container) initCache() error {
	repos := make([]port.PositionCache, 0, len(c.cfg.Cache.Backends))
	for _, b := range c.cfg.Cache.Backends {
		var (
			repo port.PositionCache
			err  error
		)
		switch b {
		case config.BackendMemory:
			repo = memory.New()
		case config.BackendRedis:
			repo, err = c.initRedis()
		case config.BackendSQLite:
			repo, err = c.initSQLite()
		case config.BackendPostgres:
			repo, err = c.initPostgres()
		default:
			err = fmt.Errorf("unknown cache backend %q", b)
		}
		if err != nil {
			return fmt.Errorf("%s init failed: %w", b, err)
		}
		repos = append(repos, repo)
	}

	if len(repos) == 1 {
		c.cache = repos[0]
	} else {
		c.cache = composite.New(repos...)
	}
	return nil
}

func (c *Container) initRedis() (*redisrepo.Repo, error) {
	rcfg := c.cfg.Storage.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     rcfg.Addr,
		Password: rcfg.Password,
		DB:       rcfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", rcfg.Addr).
		Int("db", rcfg.DB).
		Str("prefix", rcfg.Prefix).
		Msg("redis initialized")

	return redisrepo.New(rdb, rcfg.Prefix, rcfg.UpdatesChannel), nil
}

func (c *Container) initSQLite() (*sqliterepo.Repo, error) {
	repo, err := sqliterepo.New(c.cfg.Storage.SQLite.Path)
	if err != nil {
		return nil, err
	}

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return repo.Close()
	})

	log.Info().
		Str("path", c.cfg.Storage.SQLite.Path).
		Msg("sqlite initialized")

	return repo, nil
}

func (c *Container) initPostgres() (*pgrepo.Repo, error) {
	repo, err := pgrepo.New(c.cfg.Storage.Postgres.DSN)
	if err != nil {
		return nil, err
	}

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing postgres connection")
		return repo.Close()
	})

	log.Info().Msg("postgres initialized")
	return repo, nil
}

func (c *Container) Config() *config.Config { return c.cfg }

func (c *Container) Cache() port.PositionCache { return c.cache }

func (c *Container) Resolver() *service.Resolver { return c.resolver }

func (c *Container) Linker() *service.MapLinker { return c.linker }

func (c *Container) Metrics() *metrics.Collector { return c.metrics }

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for i := len(c.closerChain) - 1; i >= 0; i-- {
			if e := c.closerChain[i](); e != nil {
				log.Error().Err(e).Msg("error closing resource")
				if err == nil {
					err = e
				}
			}
		}
		log.Info().Msg("container closed")
	})
	return err
}
