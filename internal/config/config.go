package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Backends BackendsConfig `yaml:"backends"`
	Polling  PollingConfig  `yaml:"polling"`
	Upload   UploadConfig   `yaml:"upload"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

// BackendsConfig holds the base URLs of the services the console talks to.
type BackendsConfig struct {
	QueryURL    string        `yaml:"query_url"`
	StorageURL  string        `yaml:"storage_url"`
	CameraURL   string        `yaml:"camera_url"`
	ViolenceURL string        `yaml:"violence_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

type PollingConfig struct {
	Interval      time.Duration `yaml:"interval"`
	StreamRefresh time.Duration `yaml:"stream_refresh"`
}

type UploadConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// DatabaseConfig configures the audit log. An empty Host disables it.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// NATSConfig configures console event fan-out. An empty URL keeps events in-process.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// MinIOConfig configures the evidence cache. An empty Endpoint disables it.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
// A missing file is not an error: defaults plus environment are used. A .env
// file next to the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Backends.QueryURL == "" {
		cfg.Backends.QueryURL = "http://localhost:8081/api/v1/jobs"
	}
	if cfg.Backends.StorageURL == "" {
		cfg.Backends.StorageURL = "http://localhost:8082/api/v1/storage/upload"
	}
	if cfg.Backends.CameraURL == "" {
		cfg.Backends.CameraURL = "http://localhost:8083/api/v1"
	}
	if cfg.Backends.ViolenceURL == "" {
		cfg.Backends.ViolenceURL = "http://localhost:9001"
	}
	if cfg.Backends.Timeout == 0 {
		cfg.Backends.Timeout = 30 * time.Second
	}
	if cfg.Polling.Interval == 0 {
		cfg.Polling.Interval = 2 * time.Second
	}
	if cfg.Polling.StreamRefresh == 0 {
		cfg.Polling.StreamRefresh = 10 * time.Second
	}
	if cfg.Upload.Timeout == 0 {
		cfg.Upload.Timeout = 5 * time.Minute
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 5
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = "evidence"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "vsconsole"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VSC_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VSC_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("VSC_QUERY_URL"); v != "" {
		cfg.Backends.QueryURL = v
	}
	if v := os.Getenv("VSC_STORAGE_URL"); v != "" {
		cfg.Backends.StorageURL = v
	}
	if v := os.Getenv("VSC_CAMERA_URL"); v != "" {
		cfg.Backends.CameraURL = v
	}
	if v := os.Getenv("VSC_VIOLENCE_URL"); v != "" {
		cfg.Backends.ViolenceURL = v
	}
	if v := os.Getenv("VSC_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Polling.Interval = d
		}
	}
	if v := os.Getenv("VSC_STREAM_REFRESH"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Polling.StreamRefresh = d
		}
	}
	if v := os.Getenv("VSC_UPLOAD_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Upload.Timeout = d
		}
	}
	if v := os.Getenv("VSC_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("VSC_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("VSC_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("VSC_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("VSC_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("VSC_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("VSC_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("VSC_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("VSC_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("VSC_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("VSC_TRACING_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tracing.Enabled = b
		}
	}
	if v := os.Getenv("VSC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
