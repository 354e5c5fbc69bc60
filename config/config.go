package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Uploads  UploadsConfig  `yaml:"uploads"`
	Reports  ReportsConfig  `yaml:"reports"`
	Cache    CacheConfig    `yaml:"cache"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres | sqlite | sqlserver
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	AutoMigrate            bool   `yaml:"auto_migrate"`
	LogLevel               string `yaml:"log_level"`
	InsertProcedure        string `yaml:"insert_procedure"`
}

// UploadsConfig controls where status photos are stored and what is accepted.
type UploadsConfig struct {
	RootDir           string   `yaml:"root_dir"` // web root, served under /uploads
	SubDir            string   `yaml:"sub_dir"`
	MaxBytes          int64    `yaml:"max_bytes"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// ReportsConfig holds listing and downtime report settings.
type ReportsConfig struct {
	Timezone        string         `yaml:"timezone"`
	Location        *time.Location `yaml:"-"`
	GroupByCode     bool           `yaml:"group_by_code"`
	DefaultPageSize int            `yaml:"default_page_size"`
	MaxPageSize     int            `yaml:"max_page_size"`
}

// CacheConfig holds the machine lookup cache settings.
type CacheConfig struct {
	MachineTTLSeconds int           `yaml:"machine_ttl_seconds"`
	MachineTTL        time.Duration `yaml:"-"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero values with their defaults. Load calls it after decoding.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "machine_status.db"
	}
	if cfg.Database.InsertProcedure == "" {
		cfg.Database.InsertProcedure = "[dbo].[SVN_InsertMachineStatus]"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Uploads.RootDir == "" {
		cfg.Uploads.RootDir = "./wwwroot"
	}
	if cfg.Uploads.SubDir == "" {
		cfg.Uploads.SubDir = "uploads/status-images"
	}
	if cfg.Uploads.MaxBytes <= 0 {
		cfg.Uploads.MaxBytes = 5 * 1024 * 1024
	}
	if len(cfg.Uploads.AllowedExtensions) == 0 {
		cfg.Uploads.AllowedExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp"}
	}

	cfg.Reports.Location = time.Local
	if cfg.Reports.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Reports.Timezone)
		if err != nil {
			log.Printf("reports.timezone %q is invalid (%v); using local time", cfg.Reports.Timezone, err)
		} else {
			cfg.Reports.Location = loc
		}
	}
	if cfg.Reports.DefaultPageSize <= 0 {
		cfg.Reports.DefaultPageSize = 25
	}
	if cfg.Reports.MaxPageSize <= 0 {
		cfg.Reports.MaxPageSize = 500
	}
	if cfg.Reports.MaxPageSize < cfg.Reports.DefaultPageSize {
		cfg.Reports.MaxPageSize = cfg.Reports.DefaultPageSize
	}

	if cfg.Cache.MachineTTLSeconds <= 0 {
		cfg.Cache.MachineTTLSeconds = 300
	}
	cfg.Cache.MachineTTL = time.Duration(cfg.Cache.MachineTTLSeconds) * time.Second
}
