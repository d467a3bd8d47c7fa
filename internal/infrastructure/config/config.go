package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultZoom = 16

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	App struct {
		Name    string `toml:"name" yaml:"name"`
		Version string `toml:"version" yaml:"version"`
	} `toml:"app" yaml:"app"`

	Log     LogConfig     `toml:"log" yaml:"log"`
	Tracker TrackerConfig `toml:"tracker" yaml:"tracker"`
	Cache   CacheConfig   `toml:"cache" yaml:"cache"`
	Storage StorageConfig `toml:"storage" yaml:"storage"`
	Map     MapConfig     `toml:"map" yaml:"map"`
	HTTP    HTTPConfig    `toml:"http" yaml:"http"`
	Chat    ChatConfig    `toml:"chat" yaml:"chat"`
}

type LogConfig struct {
	Level      string `toml:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	Format     string `toml:"format" yaml:"format" validate:"oneof=console json"`
	File       string `toml:"file" yaml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" yaml:"max_size_mb" validate:"gte=0"`
	MaxAgeDays int    `toml:"max_age_days" yaml:"max_age_days" validate:"gte=0"`
	MaxBackups int    `toml:"max_backups" yaml:"max_backups" validate:"gte=0"`
}

type TrackerConfig struct {
	BaseURL       string        `toml:"base_url" yaml:"base_url" validate:"required,url"`
	APIVersion    string        `toml:"api_version" yaml:"api_version" validate:"required"`
	Login         string        `toml:"login" yaml:"login" validate:"required"`
	APIKey        string        `toml:"api_key" yaml:"api_key" validate:"required"`
	RateLimitCode int           `toml:"rate_limit_code" yaml:"rate_limit_code"`
	Timeout       time.Duration `toml:"timeout" yaml:"timeout" validate:"gt=0"`
	RPS           float64       `toml:"rps" yaml:"rps" validate:"gte=0"`
	Burst         int           `toml:"burst" yaml:"burst" validate:"gte=0"`
}

type CacheConfig struct {
	SoftTTL  time.Duration `toml:"soft_ttl" yaml:"soft_ttl" validate:"gt=0"`
	HardTTL  time.Duration `toml:"hard_ttl" yaml:"hard_ttl" validate:"gtfield=SoftTTL"`
	Backends []string      `toml:"backends" yaml:"backends" validate:"min=1,unique,dive,oneof=memory redis sqlite postgres"`
}

type StorageConfig struct {
	Redis struct {
		Addr           string `toml:"addr" yaml:"addr"`
		Password       string `toml:"password" yaml:"password"`
		DB             int    `toml:"db" yaml:"db"`
		Prefix         string `toml:"prefix" yaml:"prefix"`
		UpdatesChannel string `toml:"updates_channel" yaml:"updates_channel"`
	} `toml:"redis" yaml:"redis"`

	SQLite struct {
		Path string `toml:"path" yaml:"path"`
	} `toml:"sqlite" yaml:"sqlite"`

	Postgres struct {
		DSN string `toml:"dsn" yaml:"dsn"`
	} `toml:"postgres" yaml:"postgres"`
}

type MapConfig struct {
	ViewURL  string `toml:"view_url" yaml:"view_url" validate:"url"`
	ImageURL string `toml:"image_url" yaml:"image_url" validate:"url"`
	Zoom     *int   `toml:"zoom" yaml:"zoom" validate:"required,gte=0,lte=22"` // nil means default; 0 is a valid level
	Width    int    `toml:"width" yaml:"width" validate:"gt=0,lte=4096"`
	Height   int    `toml:"height" yaml:"height" validate:"gt=0,lte=4096"`
}

// ZoomLevel returns the configured zoom, DefaultZoom when unset.
func (m MapConfig) ZoomLevel() int {
	if m.Zoom == nil {
		return DefaultZoom
	}
	return *m.Zoom
}

type HTTPConfig struct {
	Addr            string        `toml:"addr" yaml:"addr" validate:"required"`
	ReadTimeout     time.Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type ChatConfig struct {
	Enabled   bool   `toml:"enabled" yaml:"enabled"`
	Secret    string `toml:"secret" yaml:"secret"`
	ParseMode string `toml:"parse_mode" yaml:"parse_mode" validate:"omitempty,oneof=HTML"`
}

// Load reads path (TOML, or YAML by extension), overlays environment
// variables from the process and an optional .env file, applies defaults
// and validates. Missing provider settings are an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := decodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return yaml.Unmarshal(data, cfg)
	default:
		_, err := toml.DecodeFile(path, cfg)
		return err
	}
}

func applyEnv(cfg *Config) {
	overrides := []struct {
		env string
		dst *string
	}{
		{"WHEREIS_TRACKER_BASE_URL", &cfg.Tracker.BaseURL},
		{"WHEREIS_TRACKER_LOGIN", &cfg.Tracker.Login},
		{"WHEREIS_TRACKER_API_KEY", &cfg.Tracker.APIKey},
		{"WHEREIS_REDIS_PASSWORD", &cfg.Storage.Redis.Password},
		{"WHEREIS_POSTGRES_DSN", &cfg.Storage.Postgres.DSN},
		{"WHEREIS_CHAT_SECRET", &cfg.Chat.Secret},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok && strings.TrimSpace(v) != "" {
			*o.dst = strings.TrimSpace(v)
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "whereis"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.File != "" && cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Tracker.APIVersion == "" {
		cfg.Tracker.APIVersion = "v1"
	}
	if cfg.Tracker.RateLimitCode == 0 {
		cfg.Tracker.RateLimitCode = 429
	}
	if cfg.Tracker.Timeout <= 0 {
		cfg.Tracker.Timeout = 10 * time.Second
	}
	if cfg.Cache.SoftTTL == 0 {
		cfg.Cache.SoftTTL = 5 * time.Minute
	}
	if cfg.Cache.HardTTL == 0 {
		cfg.Cache.HardTTL = 24 * time.Hour
	}
	cfg.Cache.Backends = normalizeBackends(cfg.Cache.Backends)
	if len(cfg.Cache.Backends) == 0 {
		cfg.Cache.Backends = []string{BackendMemory}
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "whereis"
	}
	if cfg.Map.ViewURL == "" {
		cfg.Map.ViewURL = "https://www.google.com/maps"
	}
	if cfg.Map.ImageURL == "" {
		cfg.Map.ImageURL = "https://services.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/export"
	}
	if cfg.Map.Zoom == nil {
		zoom := DefaultZoom
		cfg.Map.Zoom = &zoom
	}
	if cfg.Map.Width == 0 {
		cfg.Map.Width = 640
	}
	if cfg.Map.Height == 0 {
		cfg.Map.Height = 480
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 10 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// must outlast one upstream call
		cfg.HTTP.WriteTimeout = cfg.Tracker.Timeout + 5*time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
}

func validate(cfg *Config) error {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("toml"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	if err := v.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q check", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag())
		}
		return err
	}

	for _, b := range cfg.Cache.Backends {
		switch b {
		case BackendRedis:
			if strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
				return errors.New("storage.redis.addr empty but redis backend enabled")
			}
		case BackendSQLite:
			if strings.TrimSpace(cfg.Storage.SQLite.Path) == "" {
				return errors.New("storage.sqlite.path empty but sqlite backend enabled")
			}
		case BackendPostgres:
			if strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
				return errors.New("storage.postgres.dsn empty but postgres backend enabled")
			}
		}
	}
	return nil
}

func normalizeBackends(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		b := strings.ToLower(strings.TrimSpace(s))
		if b == "" {
			continue
		}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	return out
}
