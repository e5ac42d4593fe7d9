// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	PaymentModeDirect  = "direct"
	PaymentModeGateway = "gateway"
)

type DatabaseConfig struct {
	Driver        string `yaml:"driver"`
	Filename      string `yaml:"filename"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
}

type BookingConfig struct {
	SlotMinutes        int           `yaml:"slot_minutes"`
	PointsPerHour      int64         `yaml:"points_per_hour"`
	CancelGrace        time.Duration `yaml:"cancel_grace"`
	PendingTTL         time.Duration `yaml:"pending_ttl"`
	MaxDuration        time.Duration `yaml:"max_duration"`
	DefaultPaymentMode string        `yaml:"default_payment_mode"`
	// Calendar used for streak days.
	LoyaltyTimezone string `yaml:"loyalty_timezone"`
	// Booking create requests per user per minute.
	CreatePerMinute int `yaml:"create_per_minute"`
}

type PaymentsConfig struct {
	Provider      string `yaml:"provider"`
	Currency      string `yaml:"currency"`
	WebhookSecret string `yaml:"-"`
	KeySecret     string `yaml:"-"`
}

type EventsConfig struct {
	Drivers []string `yaml:"drivers"`
	Redis   struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"-"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	RabbitMQ struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"rabbitmq"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
}

type EmailConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Region          string `yaml:"region"`
	Sender          string `yaml:"sender"`
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
}

type Config struct {
	App struct {
		Name            string        `yaml:"name"`
		Environment     string        `yaml:"environment"`
		Port            int           `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		SecretKey       string        `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`
	Booking  BookingConfig  `yaml:"booking"`
	Payments PaymentsConfig `yaml:"payments"`
	Events   EventsConfig   `yaml:"events"`
	Email    EmailConfig    `yaml:"email"`

	Features struct {
		EnableTracing bool   `yaml:"enable_tracing"`
		OTLPEndpoint  string `yaml:"otlp_endpoint"`
		EnableDebug   bool   `yaml:"enable_debug"`
	} `yaml:"features"`
}

// secrets are never read from the YAML file.
type secrets struct {
	AppSecretKey       string `envconfig:"APP_SECRET_KEY"`
	WebhookSecret      string `envconfig:"PAYMENTS_WEBHOOK_SECRET"`
	PaymentKeySecret   string `envconfig:"PAYMENTS_KEY_SECRET"`
	RedisPassword      string `envconfig:"REDIS_PASSWORD"`
	AWSAccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY"`
	DatabaseFilename   string `envconfig:"DATABASE_FILENAME"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// Read and parse YAML config
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	var env secrets
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}
	cfg.applySecrets(env)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML and fills defaults without validating.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applySecrets(env secrets) {
	c.App.SecretKey = env.AppSecretKey
	c.Payments.WebhookSecret = env.WebhookSecret
	c.Payments.KeySecret = env.PaymentKeySecret
	c.Events.Redis.Password = env.RedisPassword
	c.Email.AccessKeyID = env.AWSAccessKeyID
	c.Email.SecretAccessKey = env.AWSSecretAccessKey
	if env.DatabaseFilename != "" {
		c.Database.Filename = env.DatabaseFilename
	}
}

func (c *Config) applyDefaults() {
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.App.ShutdownTimeout <= 0 {
		c.App.ShutdownTimeout = 30 * time.Second
	}
	if c.Database.BusyTimeoutMS <= 0 {
		c.Database.BusyTimeoutMS = 5000
	}
	if c.Booking.SlotMinutes <= 0 {
		c.Booking.SlotMinutes = 60
	}
	if c.Booking.PointsPerHour <= 0 {
		c.Booking.PointsPerHour = 10
	}
	if c.Booking.CancelGrace <= 0 {
		c.Booking.CancelGrace = 30 * time.Minute
	}
	if c.Booking.PendingTTL <= 0 {
		c.Booking.PendingTTL = 15 * time.Minute
	}
	if c.Booking.MaxDuration <= 0 {
		c.Booking.MaxDuration = 24 * time.Hour
	}
	if c.Booking.DefaultPaymentMode == "" {
		c.Booking.DefaultPaymentMode = PaymentModeDirect
	}
	if c.Booking.LoyaltyTimezone == "" {
		c.Booking.LoyaltyTimezone = "UTC"
	}
	if c.Booking.CreatePerMinute <= 0 {
		c.Booking.CreatePerMinute = 30
	}
	if c.Payments.Provider == "" {
		c.Payments.Provider = "sandbox"
	}
	if c.Payments.Currency == "" {
		c.Payments.Currency = "INR"
	}
	if len(c.Events.Drivers) == 0 {
		c.Events.Drivers = []string{"memory"}
	}
	if c.Events.RabbitMQ.Exchange == "" {
		c.Events.RabbitMQ.Exchange = "booking.events"
	}
	if c.Events.Kafka.Topic == "" {
		c.Events.Kafka.Topic = "booking-events"
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	// Validate based on database driver
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.App.Environment != "development" && c.App.SecretKey == "" {
		return fmt.Errorf("APP_SECRET_KEY is required outside development")
	}

	if err := c.Booking.validate(); err != nil {
		return err
	}

	switch c.Payments.Provider {
	case "sandbox":
	default:
		return fmt.Errorf("unsupported payments provider: %s", c.Payments.Provider)
	}
	if c.Booking.DefaultPaymentMode == PaymentModeGateway && c.App.Environment != "development" {
		if c.Payments.WebhookSecret == "" {
			return fmt.Errorf("PAYMENTS_WEBHOOK_SECRET is required for gateway payments")
		}
		// Nothing outside the process can capture a sandbox order.
		if c.Payments.Provider == "sandbox" {
			return fmt.Errorf("the sandbox payments provider only settles gateway payments in development")
		}
	}

	for _, driver := range c.Events.Drivers {
		switch strings.ToLower(driver) {
		case "memory":
		case "redis":
			if c.Events.Redis.Addr == "" {
				return fmt.Errorf("events.redis.addr is required for the redis driver")
			}
		case "rabbitmq":
			if c.Events.RabbitMQ.URL == "" {
				return fmt.Errorf("events.rabbitmq.url is required for the rabbitmq driver")
			}
		case "kafka":
			if len(c.Events.Kafka.Brokers) == 0 {
				return fmt.Errorf("events.kafka.brokers is required for the kafka driver")
			}
		default:
			return fmt.Errorf("unsupported events driver: %s", driver)
		}
	}

	if c.Email.Enabled {
		if c.Email.Region == "" || c.Email.Sender == "" {
			return fmt.Errorf("email region and sender are required when email is enabled")
		}
	}

	return nil
}

func (b BookingConfig) validate() error {
	if b.SlotMinutes > 24*60 {
		return fmt.Errorf("booking.slot_minutes must be at most one day")
	}
	if b.MaxDuration > 24*time.Hour {
		return fmt.Errorf("booking.max_duration must be at most 24h")
	}
	switch b.DefaultPaymentMode {
	case PaymentModeDirect, PaymentModeGateway:
	default:
		return fmt.Errorf("unsupported booking.default_payment_mode: %s", b.DefaultPaymentMode)
	}
	if _, err := time.LoadLocation(b.LoyaltyTimezone); err != nil {
		return fmt.Errorf("invalid booking.loyalty_timezone: %w", err)
	}
	return nil
}

// LoyaltyLocation returns the configured streak calendar, falling back to UTC.
func (b BookingConfig) LoyaltyLocation() *time.Location {
	loc, err := time.LoadLocation(b.LoyaltyTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
