package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	S3         S3Config         `mapstructure:"s3"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Sequencing SequencingConfig `mapstructure:"sequencing"`
	Progress   ProgressConfig   `mapstructure:"progress"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Log        LogConfig        `mapstructure:"log"`
	OTel       OTelConfig       `mapstructure:"otel"`
}

type ServerConfig struct {
	Address     string   `mapstructure:"address"`
	Mode        string   `mapstructure:"mode"` // gin mode: debug, release, test
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// DatabaseConfig selects the storage backend. URI and Name are used by the
// mongo driver, DSN by postgres; memory needs neither.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URI    string `mapstructure:"uri"`
	Name   string `mapstructure:"name"`
	DSN    string `mapstructure:"dsn"`
}

// RedisConfig is optional. An empty Addr disables the hierarchy cache and the rate limiter.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	HierarchyTTL time.Duration `mapstructure:"hierarchy_ttl"`
}

type S3Config struct {
	Endpoint        string        `mapstructure:"endpoint"`
	Region          string        `mapstructure:"region"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	BucketName      string        `mapstructure:"bucket_name"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	PresignTTL      time.Duration `mapstructure:"presign_ttl"`
}

// JWTConfig holds the HS256 secret used to verify tokens issued by the identity provider.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type SequencingConfig struct {
	Strategy string `mapstructure:"strategy"` // computed | precomputed
}

type ProgressConfig struct {
	CompletionRatio            float64 `mapstructure:"completion_ratio"`
	CompletionRemainingSeconds int     `mapstructure:"completion_remaining_seconds"`
}

type RateLimitConfig struct {
	ProgressPerMinute int `mapstructure:"progress_per_minute"`
}

type LogConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

type OTelConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Exporter    string `mapstructure:"exporter"` // stdout | otlp
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// LoadConfig reads configuration from config.yaml in path, the environment and
// an optional .env file. Environment variables use upper case with "_" for
// nesting, e.g. database.driver -> DATABASE_DRIVER.
func LoadConfig(path string) (Config, error) {
	// .env.local wins over .env; neither has to exist. godotenv never
	// overrides variables already present in the environment.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	var config Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.driver", "mongo")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "course_app")
	v.SetDefault("database.dsn", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.hierarchy_ttl", "10m")

	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("s3.presign_ttl", "15m")

	v.SetDefault("jwt.secret", "")

	v.SetDefault("sequencing.strategy", "computed")
	v.SetDefault("progress.completion_ratio", 0.90)
	v.SetDefault("progress.completion_remaining_seconds", 30)
	v.SetDefault("ratelimit.progress_per_minute", 120)

	v.SetDefault("log.mode", "development")
	v.SetDefault("log.level", "info")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.exporter", "stdout")
	v.SetDefault("otel.endpoint", "localhost:4318")
	v.SetDefault("otel.service_name", "course-app")
}

// Validate rejects combinations the server cannot start with.
func (c Config) Validate() error {
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: unknown server.mode %q", c.Server.Mode)
	}
	switch c.Database.Driver {
	case "mongo", "postgres", "memory":
	default:
		return fmt.Errorf("config: unknown database.driver %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return errors.New("config: database.dsn is required for the postgres driver")
	}
	switch c.Sequencing.Strategy {
	case "computed", "precomputed":
	default:
		return fmt.Errorf("config: unknown sequencing.strategy %q", c.Sequencing.Strategy)
	}
	if c.Progress.CompletionRatio <= 0 || c.Progress.CompletionRatio > 1 {
		return fmt.Errorf("config: progress.completion_ratio must be in (0, 1], got %v", c.Progress.CompletionRatio)
	}
	if c.Progress.CompletionRemainingSeconds < 0 {
		return errors.New("config: progress.completion_remaining_seconds must not be negative")
	}
	return nil
}
