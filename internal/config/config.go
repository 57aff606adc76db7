package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const minSecretLen = 32

type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"projects-api"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Database Database `envPrefix:"DATABASE_"`
	JWT      JWT      `envPrefix:"JWT_"`
	Admin    Admin    `envPrefix:"ADMIN_"`
	Kafka    Kafka    `envPrefix:"KAFKA_"`

	PasswordHasher     string   `env:"PASSWORD_HASHER" envDefault:"bcrypt"`
	RedisAddr          string   `env:"REDIS_ADDR"`
	ElasticsearchURL   string   `env:"ELASTICSEARCH_URL"`
	ElasticsearchIndex string   `env:"ELASTICSEARCH_INDEX" envDefault:"projects"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

type Database struct {
	Driver string `env:"DRIVER" envDefault:"postgres"`
	URL    string `env:"URL"`
}

type JWT struct {
	Secret                string `env:"SECRET"`
	ExpirationMinutes     int    `env:"EXPIRATION_MINUTES" envDefault:"15"`
	RefreshExpirationDays int    `env:"REFRESH_EXPIRATION_DAYS" envDefault:"7"`
}

func (j JWT) AccessTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

func (j JWT) RefreshTTL() time.Duration {
	return time.Duration(j.RefreshExpirationDays) * 24 * time.Hour
}

// Admin optionally bootstraps an ADMIN account at startup.
type Admin struct {
	Email    string `env:"EMAIL"`
	Password string `env:"PASSWORD"`
}

type Kafka struct {
	Brokers   []string `env:"BROKERS" envSeparator:","`
	AuthTopic string   `env:"AUTH_TOPIC" envDefault:"auth_events"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found, using system environment variables")
	}
	return Parse()
}

func Parse() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("missing required env DATABASE_URL"))
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver))
	}
	if len(c.JWT.Secret) < minSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLen))
	}
	if c.JWT.ExpirationMinutes <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_MINUTES must be positive"))
	}
	if c.JWT.RefreshExpirationDays <= 0 {
		errs = append(errs, errors.New("JWT_REFRESH_EXPIRATION_DAYS must be positive"))
	}
	switch c.PasswordHasher {
	case "bcrypt", "argon2id":
	default:
		errs = append(errs, fmt.Errorf("unsupported PASSWORD_HASHER %q", c.PasswordHasher))
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}
