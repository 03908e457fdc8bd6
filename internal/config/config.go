package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 1973
	defaultEnv        = "development"
	defaultDBDriver   = "mysql"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "theflip"
	defaultRedisURL   = "redis://localhost:6379/0"
)

// AppConfig holds runtime startup configuration loaded from YAML.
// Everything operators may change at runtime lives in the persisted
// SiteSettings row instead.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	Env            string                `yaml:"env"` // "development" | "production"
	Database       DatabaseRuntimeConfig `yaml:"database"`
	RedisURL       string                `yaml:"redis_url"`
	JWTSecret      string                `yaml:"jwt_secret"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	Paths          RuntimePathsConfig    `yaml:"paths"`
}

type DatabaseRuntimeConfig struct {
	Driver   string `yaml:"driver"` // "mysql" | "sqlite"
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	// Path is the database file for the sqlite driver.
	Path string `yaml:"path"`
}

type RuntimePathsConfig struct {
	Media string `yaml:"media"`
	Logs  string `yaml:"logs"`
}

// Load reads the YAML config file and applies defaults and environment
// overrides. A missing file is not an error; defaults apply.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	if path == "" {
		path = DefaultConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults + env only.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("FLIP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("FLIP_ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("FLIP_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("FLIP_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("FLIP_REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("FLIP_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = defaultRedisURL
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = defaultDBDriver
	}
	if cfg.Paths.Media == "" {
		cfg.Paths.Media = filepath.Join("data", "media")
	}
	if cfg.Paths.Logs == "" {
		cfg.Paths.Logs = filepath.Join("data", "logs")
	}
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return !strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

// DSN resolves the GORM connection string for the configured driver.
func (c *AppConfig) DSN() string {
	db := c.Database
	if db.DSN != "" {
		return db.DSN
	}
	if strings.EqualFold(db.Driver, "sqlite") {
		if db.Path != "" {
			return db.Path
		}
		return filepath.Join("data", "theflip.db")
	}

	host := db.Host
	if host == "" {
		host = defaultDBHost
	}
	port := db.Port
	if port == 0 {
		port = defaultDBPort
	}
	user := db.User
	if user == "" {
		user = defaultDBUser
	}
	password := db.Password
	if password == "" {
		password = defaultDBPassword
	}
	name := db.Name
	if name == "" {
		name = defaultDBName
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, name)
}
