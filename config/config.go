package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jarabaplatform/tenant-exporter/internal/errors"
)

type AppConfig struct {
	File     string          `json:"-"`
	Service  *ServiceConfig  `json:"service,omitempty"`
	Database *DatabaseConfig `json:"database,omitempty"`
	Redis    *RedisConfig    `json:"redis,omitempty"`
	Export   *ExportConfig   `json:"export,omitempty"`
	Storage  *StorageConfig  `json:"storage,omitempty"`
	Otel     *OtelConfig     `json:"otel,omitempty"`
}

type ServiceConfig struct {
	Id       string `json:"id"`
	BindAddr string `json:"bindAddr"`
}

type DatabaseConfig struct {
	Url string `json:"url"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type ExportConfig struct {
	Workers         int      `json:"workers"`
	ExpirationHours int      `json:"expirationHours"`
	RateLimitPerDay int      `json:"rateLimitPerDay"`
	DefaultSections []string `json:"defaultSections"`
	QueueName       string   `json:"queueName"`
	SweepMinutes    int      `json:"sweepMinutes"`
	VerticalEnabled bool     `json:"verticalEnabled"`
}

type StorageConfig struct {
	Backend string    `json:"backend"` // disk | s3
	Dir     string    `json:"dir"`
	S3      *S3Config `json:"s3,omitempty"`
}

type S3Config struct {
	Endpoint  string `json:"endpoint"`
	Region    string `json:"region"`
	Bucket    string `json:"bucket"`
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	UseSSL    bool   `json:"useSSL"`
}

type OtelConfig struct {
	Endpoint string `json:"endpoint"`
}

func LoadConfig() (*AppConfig, error) {
	bindFlagsAndEnv()

	configFile := getConfigFilePath()
	if configFile != "" {
		if err := loadFromFile(configFile); err != nil {
			return nil, err
		}
	}

	cfg := buildAppConfig(configFile)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func bindFlagsAndEnv() {
	pflag.String("config_file", "", "Configuration file in JSON format")

	// service
	pflag.String("id", "tenant-exporter-1", "Service id")
	pflag.String("bind_addr", ":8480", "HTTP bind address")

	// database
	pflag.String("data_source", "", "Data source")

	// redis
	pflag.String("redis_addr", "localhost:6379", "Redis address")
	pflag.String("redis_password", "", "Redis password")
	pflag.Int("redis_db", 0, "Redis DB number")

	// export
	pflag.Int("workers", 4, "Number of concurrent export workers")
	pflag.Int("export_expiration_hours", 48, "Hours a completed export stays downloadable")
	pflag.Int("export_rate_limit_per_day", 3, "Exports a tenant may request per day")
	pflag.StringSlice("export_default_sections", []string{"core", "billing", "analytics", "knowledge", "operational", "files"}, "Sections exported when the request names none")
	pflag.String("export_queue", "tenant_export:jobs", "Redis list used as the job queue")
	pflag.Int("export_sweep_minutes", 30, "Minutes between retention sweeps")
	pflag.Bool("export_vertical_enabled", false, "Register the optional vertical section")

	// storage
	pflag.String("storage_backend", "disk", "Archive storage backend: disk or s3")
	pflag.String("storage_dir", "/var/lib/tenant-exporter/exports", "Directory for the disk backend")
	pflag.String("s3_endpoint", "", "S3 endpoint")
	pflag.String("s3_region", "us-east-1", "S3 region")
	pflag.String("s3_bucket", "", "S3 bucket")
	pflag.String("s3_access_key", "", "S3 access key")
	pflag.String("s3_secret_key", "", "S3 secret key")
	pflag.Bool("s3_use_ssl", true, "Use SSL for S3")

	// observability
	pflag.String("otel_endpoint", "", "OTLP gRPC endpoint; tracing disabled when empty")

	pflag.Parse()

	_ = viper.BindPFlags(pflag.CommandLine)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Explicit mapping
	_ = viper.BindEnv("id", "SERVICE_ID")
	_ = viper.BindEnv("bind_addr", "BIND_ADDR")
	_ = viper.BindEnv("data_source", "DATA_SOURCE")
	_ = viper.BindEnv("redis_addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis_password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis_db", "REDIS_DB")
	_ = viper.BindEnv("storage_backend", "STORAGE_BACKEND")
	_ = viper.BindEnv("storage_dir", "STORAGE_DIR")
	_ = viper.BindEnv("otel_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func getConfigFilePath() string {
	file := viper.GetString("config_file")
	if file == "" {
		file = os.Getenv("TENANT_EXPORTER_CONFIG_FILE")
	}
	return file
}

func loadFromFile(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("json")
	if err := viper.ReadInConfig(); err != nil {
		return errors.New(fmt.Sprintf("could not load config file: %s", err.Error()))
	}
	return nil
}

func buildAppConfig(file string) *AppConfig {
	return &AppConfig{
		File: file,
		Service: &ServiceConfig{
			Id:       viper.GetString("id"),
			BindAddr: viper.GetString("bind_addr"),
		},
		Database: &DatabaseConfig{Url: viper.GetString("data_source")},
		Redis: &RedisConfig{
			Addr:     viper.GetString("redis_addr"),
			Password: viper.GetString("redis_password"),
			DB:       viper.GetInt("redis_db"),
		},
		Export: &ExportConfig{
			Workers:         viper.GetInt("workers"),
			ExpirationHours: viper.GetInt("export_expiration_hours"),
			RateLimitPerDay: viper.GetInt("export_rate_limit_per_day"),
			DefaultSections: viper.GetStringSlice("export_default_sections"),
			QueueName:       viper.GetString("export_queue"),
			SweepMinutes:    viper.GetInt("export_sweep_minutes"),
			VerticalEnabled: viper.GetBool("export_vertical_enabled"),
		},
		Storage: &StorageConfig{
			Backend: viper.GetString("storage_backend"),
			Dir:     viper.GetString("storage_dir"),
			S3: &S3Config{
				Endpoint:  viper.GetString("s3_endpoint"),
				Region:    viper.GetString("s3_region"),
				Bucket:    viper.GetString("s3_bucket"),
				AccessKey: viper.GetString("s3_access_key"),
				SecretKey: viper.GetString("s3_secret_key"),
				UseSSL:    viper.GetBool("s3_use_ssl"),
			},
		},
		Otel: &OtelConfig{Endpoint: viper.GetString("otel_endpoint")},
	}
}

func validateConfig(cfg *AppConfig) error {
	if cfg.Database.Url == "" {
		return errors.New("Data source is required")
	}
	if cfg.Service.Id == "" {
		return errors.New("Service id is required")
	}
	if cfg.Service.BindAddr == "" {
		return errors.New("Bind address is required")
	}
	if cfg.Redis.Addr == "" {
		return errors.New("Redis address is required")
	}
	if cfg.Export.ExpirationHours <= 0 {
		return errors.New("Export expiration must be positive")
	}
	if cfg.Storage.Backend != "disk" && cfg.Storage.Backend != "s3" {
		return errors.New(fmt.Sprintf("unknown storage backend: %s", cfg.Storage.Backend))
	}
	if cfg.Storage.Backend == "s3" && cfg.Storage.S3.Bucket == "" {
		return errors.New("S3 bucket is required for the s3 backend")
	}
	return nil
}
