package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Preview  PreviewConfig  `mapstructure:"preview"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Overlay  OverlayConfig  `mapstructure:"overlay"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Session  SessionConfig  `mapstructure:"session"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AnalysisConfig points at the external pit-analysis service.
type AnalysisConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type UploadConfig struct {
	MaxSize    int64  `mapstructure:"max_size"`
	TypePrefix string `mapstructure:"type_prefix"`
}

// PreviewConfig selects where preview bytes live: "memory" or "redis".
type PreviewConfig struct {
	Store string        `mapstructure:"store"`
	TTL   time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// OverlayConfig holds the marker encoding per detection status.
type OverlayConfig struct {
	DefaultBlend float64 `mapstructure:"default_blend"`
	AliveColor   string  `mapstructure:"alive_color"`
	AliveRadius  float64 `mapstructure:"alive_radius"`
	DeadColor    string  `mapstructure:"dead_color"`
	DeadRadius   float64 `mapstructure:"dead_radius"`
	FillOpacity  float64 `mapstructure:"fill_opacity"`
}

type SnapshotConfig struct {
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	QueueTimeout  time.Duration `mapstructure:"queue_timeout"`
	MaxDimension  int           `mapstructure:"max_dimension"`
}

type SessionConfig struct {
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	MaxSessions   int           `mapstructure:"max_sessions"`
}

// Load reads a YAML file and overlays ECODRONE_* environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ecodrone")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// A missing file still leaves defaults and environment overrides.
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// New loads config.yaml, falling back to defaults when it cannot be parsed.
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		return Default()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)

	v.SetDefault("analysis.endpoint", d.Analysis.Endpoint)
	v.SetDefault("analysis.timeout", d.Analysis.Timeout)

	v.SetDefault("upload.max_size", d.Upload.MaxSize)
	v.SetDefault("upload.type_prefix", d.Upload.TypePrefix)

	v.SetDefault("preview.store", d.Preview.Store)
	v.SetDefault("preview.ttl", d.Preview.TTL)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)

	v.SetDefault("overlay.default_blend", d.Overlay.DefaultBlend)
	v.SetDefault("overlay.alive_color", d.Overlay.AliveColor)
	v.SetDefault("overlay.alive_radius", d.Overlay.AliveRadius)
	v.SetDefault("overlay.dead_color", d.Overlay.DeadColor)
	v.SetDefault("overlay.dead_radius", d.Overlay.DeadRadius)
	v.SetDefault("overlay.fill_opacity", d.Overlay.FillOpacity)

	v.SetDefault("snapshot.max_concurrent", d.Snapshot.MaxConcurrent)
	v.SetDefault("snapshot.queue_timeout", d.Snapshot.QueueTimeout)
	v.SetDefault("snapshot.max_dimension", d.Snapshot.MaxDimension)

	v.SetDefault("session.idle_timeout", d.Session.IdleTimeout)
	v.SetDefault("session.sweep_interval", d.Session.SweepInterval)
	v.SetDefault("session.max_sessions", d.Session.MaxSessions)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 90 * time.Second,
		},
		Analysis: AnalysisConfig{
			Endpoint: "http://localhost:8000/api/analyze",
			Timeout:  60 * time.Second,
		},
		Upload: UploadConfig{
			MaxSize:    10 * 1024 * 1024,
			TypePrefix: "image/",
		},
		Preview: PreviewConfig{
			Store: "memory",
			TTL:   2 * time.Hour,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Overlay: OverlayConfig{
			DefaultBlend: 50,
			AliveColor:   "#00ff94",
			AliveRadius:  4,
			DeadColor:    "#ff4d4d",
			DeadRadius:   8,
			FillOpacity:  0.6,
		},
		Snapshot: SnapshotConfig{
			MaxConcurrent: 2,
			QueueTimeout:  30 * time.Second,
			MaxDimension:  4096,
		},
		Session: SessionConfig{
			IdleTimeout:   time.Hour,
			SweepInterval: 5 * time.Minute,
			MaxSessions:   256,
		},
	}
}
