package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Queue   QueueConfig   `yaml:"queue"`
	Mailer  MailerConfig  `yaml:"mailer"`
	Redis   RedisConfig   `yaml:"redis"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// StorageConfig holds subscriber record store configuration
type StorageConfig struct {
	Type          string `yaml:"type"` // "dynamodb" or "memory"
	DynamoDBTable string `yaml:"dynamodb_table"`
	EmailIndex    string `yaml:"email_index"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return "" // Use default credential chain (IAM role)
		}
		return envProfile
	}
	// On ECS/Lambda, don't use a profile - use IAM role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// QueueConfig holds SQS validation queue configuration
type QueueConfig struct {
	URL             string `yaml:"url"`
	WaitTimeSeconds int    `yaml:"wait_time_seconds"`
	BatchSize       int    `yaml:"batch_size"`
}

// MailerConfig holds SES confirmation email configuration
type MailerConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	FromName       string `yaml:"from_name"`
	FromEmail      string `yaml:"from_email"`
	ConfirmBaseURL string `yaml:"confirm_base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c MailerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RedisConfig holds Redis configuration for rate limiting
type RedisConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Addr           string `yaml:"addr"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	RateLimit      int    `yaml:"rate_limit"`       // requests per window per client IP
	RateWindowSecs int    `yaml:"rate_window_secs"` // window length in seconds
}

// RateWindow returns the rate limit window as a duration
func (c RedisConfig) RateWindow() time.Duration {
	return time.Duration(c.RateWindowSecs) * time.Second
}

// LoggingConfig holds structured logging configuration
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"` // nil means enabled
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "dynamodb"
	}
	if cfg.Storage.DynamoDBTable == "" {
		cfg.Storage.DynamoDBTable = "newsletter_subscribers"
	}
	if cfg.Storage.EmailIndex == "" {
		cfg.Storage.EmailIndex = "email-index"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-east-1"
	}
	if cfg.Queue.WaitTimeSeconds == 0 {
		cfg.Queue.WaitTimeSeconds = 20
	}
	if cfg.Queue.BatchSize == 0 {
		cfg.Queue.BatchSize = 10
	}
	if cfg.Mailer.Region == "" {
		cfg.Mailer.Region = cfg.Storage.AWSRegion
	}
	if cfg.Mailer.TimeoutSeconds == 0 {
		cfg.Mailer.TimeoutSeconds = 30
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.RateLimit == 0 {
		cfg.Redis.RateLimit = 30
	}
	if cfg.Redis.RateWindowSecs == 0 {
		cfg.Redis.RateWindowSecs = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SUBSCRIBERS_TABLE"); v != "" {
		cfg.Storage.DynamoDBTable = v
	}
	if v := os.Getenv("SUBSCRIBERS_EMAIL_INDEX"); v != "" {
		cfg.Storage.EmailIndex = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Storage.AWSRegion = v
	}
	if v := os.Getenv("VALIDATION_QUEUE_URL"); v != "" {
		cfg.Queue.URL = v
	}
	if v := os.Getenv("SES_ACCESS_KEY"); v != "" {
		cfg.Mailer.AccessKey = v
	}
	if v := os.Getenv("SES_SECRET_KEY"); v != "" {
		cfg.Mailer.SecretKey = v
	}
	if v := os.Getenv("SES_FROM_EMAIL"); v != "" {
		cfg.Mailer.FromEmail = v
		cfg.Mailer.Enabled = true
	}
	if v := os.Getenv("CONFIRM_BASE_URL"); v != "" {
		cfg.Mailer.ConfirmBaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}
