package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cwrk-planet/meet-service/internal/pg"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ReadTimeout     time.Duration `yaml:"readTimeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" env:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idleTimeout" env:"IDLE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"requestTimeout" env:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"SHUTDOWN_TIMEOUT"`
}

type GRPC struct {
	Addr string `yaml:"addr" env:"ADDR"` // пусто: gRPC не поднимаем
}

type Logging struct {
	Env       string `yaml:"env" env:"ENV"`             // dev|stage|prod
	Service   string `yaml:"service" env:"SERVICE"`     // meet-service
	Version   string `yaml:"version" env:"VERSION"`     // v0.1.0
	Level     string `yaml:"level" env:"LEVEL"`         // debug|info|warn|error
	Backend   string `yaml:"backend" env:"BACKEND"`     // std|zap
	AddSource bool   `yaml:"addSource" env:"ADD_SOURCE"` // false|true
	Debug     bool   `yaml:"debug" env:"DEBUG"`         // false|true
}

type Postgres struct {
	DSN               string        `yaml:"dsn" env:"DSN"`
	MaxConns          int32         `yaml:"maxConns" env:"MAX_CONNS"`
	MinConns          int32         `yaml:"minConns" env:"MIN_CONNS"`
	MaxConnLifetime   time.Duration `yaml:"maxConnLifetime" env:"MAX_CONN_LIFETIME"`
	MaxConnIdleTime   time.Duration `yaml:"maxConnIdleTime" env:"MAX_CONN_IDLE_TIME"`
	HealthCheckPeriod time.Duration `yaml:"healthCheckPeriod" env:"HEALTH_CHECK_PERIOD"`
	ApplicationName   string        `yaml:"applicationName" env:"APPLICATION_NAME"`
}

type SQLite struct {
	Path string `yaml:"path" env:"PATH"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Storage struct {
	Driver   string   `yaml:"driver" env:"DRIVER"` // postgres|sqlite
	Postgres Postgres `yaml:"postgres" envPrefix:"POSTGRES_"`
	SQLite   SQLite   `yaml:"sqlite" envPrefix:"SQLITE_"`
}

const (
	AuthModeToken = "token"
	AuthModeJWT   = "jwt"
)

type Auth struct {
	Mode      string        `yaml:"mode" env:"MODE"`     // token|jwt
	Cookie    string        `yaml:"cookie" env:"COOKIE"` // meet_token
	JWTSecret string        `yaml:"jwtSecret" env:"JWT_SECRET"`
	Issuer    string        `yaml:"issuer" env:"ISSUER"`
	Audience  string        `yaml:"audience" env:"AUDIENCE"`
	ClockSkew time.Duration `yaml:"clockSkew" env:"CLOCK_SKEW"`
}

type Relay struct {
	OwnerOnlyInitialize bool `yaml:"ownerOnlyInitialize" env:"OWNER_ONLY_INITIALIZE"`
}

type Stream struct {
	PingEvery time.Duration `yaml:"pingEvery" env:"PING_EVERY"`
	Buffer    int           `yaml:"buffer" env:"BUFFER"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowedOrigins" env:"ALLOWED_ORIGINS"`
}

type SeedUser struct {
	ID        int64  `yaml:"id"`
	Name      string `yaml:"name"`
	AvatarURL string `yaml:"avatarUrl"`
	Token     string `yaml:"token"`
}

type Seed struct {
	Users []SeedUser `yaml:"users"`
}

type Config struct {
	HTTP    HTTP    `yaml:"http" envPrefix:"HTTP_"`
	GRPC    GRPC    `yaml:"grpc" envPrefix:"GRPC_"`
	Logging Logging `yaml:"logging" envPrefix:"LOG_"`
	Storage Storage `yaml:"storage" envPrefix:"STORAGE_"`
	Auth    Auth    `yaml:"auth" envPrefix:"AUTH_"`
	Relay   Relay   `yaml:"relay" envPrefix:"RELAY_"`
	Stream  Stream  `yaml:"stream" envPrefix:"STREAM_"`
	CORS    CORS    `yaml:"cors" envPrefix:"CORS_"`
	Seed    Seed    `yaml:"seed"`
}

const EnvPrefix = "MEET_"

// LoadConfig читает YAML из CONFIG_PATH, накладывает MEET_* переменные окружения и проставляет дефолты.
func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse используется LoadConfig и тестами.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = DriverSQLite
		if c.Storage.SQLite.Path == "" {
			c.Storage.SQLite.Path = "meet.db"
		}
	case DriverSQLite:
		if c.Storage.SQLite.Path == "" {
			return errors.New("storage.sqlite.path is required")
		}
	case DriverPostgres:
		if c.Storage.Postgres.DSN == "" {
			return errors.New("storage.postgres.dsn is required")
		}
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver)
	}

	switch c.Auth.Mode {
	case "":
		c.Auth.Mode = AuthModeToken
	case AuthModeToken:
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			return errors.New("auth.jwtSecret is required in jwt mode")
		}
		if c.Auth.ClockSkew < 0 || c.Auth.ClockSkew > time.Minute {
			return errors.New("auth.clockSkew must be in [0..1m]")
		}
	default:
		return fmt.Errorf("auth.mode %q is not supported", c.Auth.Mode)
	}

	for i, u := range c.Seed.Users {
		if u.Name == "" || u.Token == "" {
			return fmt.Errorf("seed.users[%d]: name and token are required", i)
		}
	}

	// установка дефолтов, если значения не указаны
	if c.Auth.Cookie == "" {
		c.Auth.Cookie = "meet_token"
	}
	if c.HTTP.ReadTimeout <= 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.WriteTimeout <= 0 {
		c.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.HTTP.IdleTimeout <= 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.HTTP.RequestTimeout <= 0 {
		c.HTTP.RequestTimeout = 10 * time.Second
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.Stream.PingEvery <= 0 {
		c.Stream.PingEvery = 15 * time.Second
	}
	if c.Stream.Buffer <= 0 {
		c.Stream.Buffer = 64
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "meet-service"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}

	return nil
}

func (p Postgres) ToPGConfig() pg.Config {
	return pg.Config{
		DSN:               p.DSN,
		MaxConns:          p.MaxConns,
		MinConns:          p.MinConns,
		MaxConnLifetime:   p.MaxConnLifetime,
		MaxConnIdleTime:   p.MaxConnIdleTime,
		HealthCheckPeriod: p.HealthCheckPeriod,
		ApplicationName:   p.ApplicationName,
	}
}
