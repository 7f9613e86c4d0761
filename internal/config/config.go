package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ScopeRate define el presupuesto de un scope del rate limiter:
// Points consumos por Window; una vez agotado, Block de castigo.
type ScopeRate struct {
	Points int           `yaml:"points"`
	Window time.Duration `yaml:"window"`
	Block  time.Duration `yaml:"block"`
}

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// Requests por segundo por IP para el throttle grueso de toda la API.
		// 0 = deshabilitado.
		ThrottleRPS   float64 `yaml:"throttle_rps"`
		ThrottleBurst int     `yaml:"throttle_burst"`
	} `yaml:"server"`

	Storage struct {
		// "postgres" | "memory"
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"storage"`

	Redis struct {
		// Addr vacío = limiter solo en memoria.
		Addr   string `yaml:"addr"`
		DB     int    `yaml:"db"`
		Prefix string `yaml:"prefix"`
	} `yaml:"redis"`

	JWT struct {
		Issuer        string        `yaml:"issuer"`
		Audience      string        `yaml:"audience"`
		AccessSecret  string        `yaml:"access_secret"`
		RefreshSecret string        `yaml:"refresh_secret"`
		AccessTTL     time.Duration `yaml:"access_ttl"`
		RefreshTTL    time.Duration `yaml:"refresh_ttl"`
	} `yaml:"jwt"`

	Auth struct {
		// Pepper se combina con el salt por-password al hashear.
		// Vive solo acá, nunca junto al hash.
		Pepper string `yaml:"pepper"`
		Cookie struct {
			Name string `yaml:"name"`
			Path string `yaml:"path"`
		} `yaml:"cookie"`
		Lockout struct {
			MaxFailed    int           `yaml:"max_failed"`
			LockDuration time.Duration `yaml:"lock_duration"`
			StrikeWindow time.Duration `yaml:"strike_window"`
			MaxStrikes   int           `yaml:"max_strikes"`
		} `yaml:"lockout"`
	} `yaml:"auth"`

	Rate struct {
		Enabled   bool      `yaml:"enabled"`
		IP        ScopeRate `yaml:"ip"`
		UserName  ScopeRate `yaml:"user_name"`
		UserAgent ScopeRate `yaml:"user_agent"`
		Global    ScopeRate `yaml:"global"`
	} `yaml:"rate"`
}

// Load lee el YAML (si existe), aplica defaults y overrides de entorno.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setStr := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setStr(&c.App.Env, "SENTINELA_ENV")
	setStr(&c.Server.Addr, "SENTINELA_ADDR")
	setStr(&c.Storage.Driver, "SENTINELA_STORAGE_DRIVER")
	setStr(&c.Storage.DSN, "SENTINELA_DSN")
	setStr(&c.Redis.Addr, "SENTINELA_REDIS_ADDR")
	setStr(&c.JWT.AccessSecret, "SENTINELA_JWT_ACCESS_SECRET")
	setStr(&c.JWT.RefreshSecret, "SENTINELA_JWT_REFRESH_SECRET")
	setStr(&c.Auth.Pepper, "SENTINELA_PEPPER")
	if v := os.Getenv("SENTINELA_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ThrottleBurst == 0 {
		c.Server.ThrottleBurst = 20
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "sentinela:rl:"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "sentinela"
	}
	if c.JWT.Audience == "" {
		c.JWT.Audience = "sentinela-admin"
	}
	if c.JWT.AccessTTL == 0 {
		c.JWT.AccessTTL = 15 * time.Minute
	}
	if c.JWT.RefreshTTL == 0 {
		c.JWT.RefreshTTL = 7 * 24 * time.Hour
	}
	if c.Auth.Cookie.Name == "" {
		c.Auth.Cookie.Name = "rt"
	}
	if c.Auth.Cookie.Path == "" {
		c.Auth.Cookie.Path = "/v1/session"
	}
	lo := &c.Auth.Lockout
	if lo.MaxFailed == 0 {
		lo.MaxFailed = 7
	}
	if lo.LockDuration == 0 {
		lo.LockDuration = 15 * time.Minute
	}
	if lo.StrikeWindow == 0 {
		lo.StrikeWindow = 24 * time.Hour
	}
	if lo.MaxStrikes == 0 {
		lo.MaxStrikes = 3
	}

	defScope := func(s *ScopeRate, points int, window, block time.Duration) {
		if s.Points == 0 {
			s.Points = points
		}
		if s.Window == 0 {
			s.Window = window
		}
		if s.Block == 0 {
			s.Block = block
		}
	}
	defScope(&c.Rate.IP, 100, 15*time.Minute, 30*time.Minute)
	defScope(&c.Rate.UserName, 10, 15*time.Minute, 15*time.Minute)
	defScope(&c.Rate.UserAgent, 300, 15*time.Minute, 15*time.Minute)
	defScope(&c.Rate.Global, 1000, time.Minute, time.Minute)
}

func (c *Config) validate() error {
	if c.IsProd() {
		if c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "" {
			return fmt.Errorf("config: jwt secrets are required in prod")
		}
		if c.JWT.AccessSecret == c.JWT.RefreshSecret {
			return fmt.Errorf("config: access and refresh secrets must differ")
		}
	}
	return nil
}

// IsProd indica si corremos fuera de local/dev (gobierna cookie Secure y logger).
func (c *Config) IsProd() bool {
	env := strings.ToLower(c.App.Env)
	return env != "dev" && env != "local" && env != ""
}
