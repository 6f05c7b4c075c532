package config

import (
	"fmt"
	"log"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/config"
	"gorm.io/gorm"
)

type Config struct {
	Server    Server
	DB        DB
	JWT       JWT
	Stripe    Stripe
	Kafka     Kafka
	Elastic   Elastic
	Redis     Redis
	RateLimit RateLimit
	CORS      CORS
}

type Server struct {
	Port     string `env:"PORT"      envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type DB struct {
	URL    string `env:"DATABASE_URL"`
	Driver string `env:"DB_DRIVER" envDefault:"pgx"`
}

type JWT struct {
	Secret         string        `env:"JWT_SECRET"`
	AccessTTL      time.Duration `env:"JWT_EXPIRES"                envDefault:"1h"`
	RefreshTTLDays int           `env:"REFRESH_TOKEN_EXPIRES_DAYS" envDefault:"7"`
}

func (j JWT) RefreshTTL() time.Duration {
	return time.Duration(j.RefreshTTLDays) * 24 * time.Hour
}

type Stripe struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	Currency      string `env:"CURRENCY" envDefault:"usd"`
}

type Kafka struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
}

type Elastic struct {
	URL      string `env:"ES_URL"`
	User     string `env:"ES_USER"`
	Password string `env:"ES_PASSWORD"`
	Index    string `env:"ES_INDEX" envDefault:"products"`
}

type Redis struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type RateLimit struct {
	PerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"200"`
}

type CORS struct {
	Origins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:3001"`
}

// Parse reads .env (if present) and the environment without enforcing
// required values.
func Parse(files ...string) (*Config, error) {
	var cfg Config
	if err := config.Load(&cfg, files...); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load parses the configuration and exits the process when a required
// value is missing.
func Load() *Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	config.MustNonEmpty(cfg.DB.URL, "DATABASE_URL")
	config.MustNonEmpty(cfg.JWT.Secret, "JWT_SECRET")
	config.MustNonEmpty(cfg.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	config.MustNonEmpty(cfg.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	return cfg
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
