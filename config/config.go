package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chaos-io/cutout/matte"
	"github.com/chaos-io/cutout/rembg"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// 环境变量，优先级高于配置文件、低于命令行参数
const (
	envHost        = "CUTOUT_HOST"
	envPort        = "CUTOUT_PORT"
	envEnv         = "CUTOUT_ENV"
	envLogLevel    = "CUTOUT_LOG_LEVEL"
	envRemoteURL   = "CUTOUT_REMOTE_URL"
	envBackdropDir = "CUTOUT_BACKDROP_DIR"
)

type Config struct {
	Env       string         `yaml:"env"`
	LogLevel  string         `yaml:"log_level"`
	Server    ServerConfig   `yaml:"server"`
	Matte     matte.Options  `yaml:"matte"`
	Remote    RemoteConfig   `yaml:"remote"`
	Backdrops BackdropConfig `yaml:"backdrops"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Debug           bool          `yaml:"debug"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	MaxSide         int           `yaml:"max_side"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RemoteConfig U-2-Net 模型服务，URL 为空表示只用本地抠图
type RemoteConfig struct {
	URL            string        `yaml:"url"`
	Timeout        time.Duration `yaml:"timeout"`
	HealthSchedule string        `yaml:"health_schedule"`
}

type BackdropConfig struct {
	Dir string `yaml:"dir"`
}

func Default() *Config {
	return &Config{
		Env:      EnvProduction,
		LogLevel: "info",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			MaxBodyBytes:    32 << 20,
			AllowedOrigins:  []string{"http://localhost:3000"},
			ShutdownTimeout: 10 * time.Second,
		},
		Matte: matte.DefaultOptions(),
		Remote: RemoteConfig{
			Timeout:        60 * time.Second,
			HealthSchedule: rembg.DefaultHealthSchedule,
		},
		Backdrops: BackdropConfig{
			Dir: "public/studio-backgrounds",
		},
	}
}

// Load 读取 YAML 配置，未出现的字段保留默认值；path 为空时只使用默认值。
// 最后应用环境变量覆盖。
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv 用环境变量覆盖配置，lookup 通常是 os.LookupEnv
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(envHost); ok {
		c.Server.Host = v
	}
	if v, ok := lookup(envPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envPort, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup(envEnv); ok {
		c.Env = strings.ToLower(v)
	}
	if v, ok := lookup(envLogLevel); ok {
		c.LogLevel = v
	}
	if v, ok := lookup(envRemoteURL); ok {
		c.Remote.URL = v
	}
	if v, ok := lookup(envBackdropDir); ok {
		c.Backdrops.Dir = v
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		errs = append(errs, fmt.Errorf("env must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes must be positive: %d", c.Server.MaxBodyBytes))
	}
	if c.Server.MaxSide < 0 {
		errs = append(errs, fmt.Errorf("server.max_side must not be negative: %d", c.Server.MaxSide))
	}
	for _, o := range c.Server.AllowedOrigins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			errs = append(errs, fmt.Errorf("server.allowed_origins: invalid origin %q", o))
		}
	}
	if c.Matte.EdgeThreshold < 0 || c.Matte.ColorThreshold < 0 || c.Matte.EdgeProximity < 0 {
		errs = append(errs, fmt.Errorf("matte thresholds must not be negative: %+v", c.Matte))
	}
	if c.Remote.URL != "" && c.Remote.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("remote.timeout must be positive: %s", c.Remote.Timeout))
	}

	return errors.Join(errs...)
}

func (c *Config) Production() bool {
	return c.Env == EnvProduction
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SlogLevel 解析 log_level：debug、info、warn、error
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
