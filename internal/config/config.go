package config

import (
	"fmt"
	"time"

	"github.com/wishlist/wishlist-service/pkg/envconfig"
	"github.com/wishlist/wishlist-service/pkg/pubsub"
)

type Config struct {
	Port           string `validate:"required"`
	LogLevel       string `validate:"omitempty,oneof=debug info warn warning error"`
	DataStore      string `validate:"required,oneof=memory firestore postgres"`
	DatabaseURL    string `validate:"required_if=DataStore postgres"`
	GCPProjectID   string `validate:"required_if=DataStore firestore"`
	MetricsEnabled bool
	Webhook        WebhookConfig
	Auth           AuthConfig
	Firestore      FirestoreConfig
	Redis          RedisConfig
	Kafka          KafkaConfig
}

type WebhookConfig struct {
	SigningSecret string        `validate:"required"`
	Tolerance     time.Duration `validate:"gt=0"`
}

type AuthConfig struct {
	Mode     string `validate:"required,oneof=clerk noop"`
	JWKSURL  string `validate:"required_if=Mode clerk"`
	Audience string
	Issuer   string
}

type FirestoreConfig struct {
	EmulatorHost string
}

// RedisConfig backs the delivery ledger; an empty Addr disables it.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int `validate:"gte=0"`
	DeliveryTTL time.Duration
}

// KafkaConfig backs event publishing; no brokers disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string `validate:"required_with=Brokers"`
}

func Load() (Config, error) {
	if err := envconfig.LoadDotEnv(); err != nil {
		return Config{}, err
	}

	tolerance, err := envconfig.GetDuration("WEBHOOK_TOLERANCE", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}
	deliveryTTL, err := envconfig.GetDuration("DELIVERY_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	metricsEnabled, err := envconfig.GetBool("METRICS_ENABLED", true)
	if err != nil {
		return Config{}, err
	}
	redisDB, err := envconfig.GetInt("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:           envconfig.Get("PORT", "8080"),
		LogLevel:       envconfig.Get("LOG_LEVEL", "info"),
		DataStore:      envconfig.Get("DATASTORE", "postgres"),
		DatabaseURL:    envconfig.Get("DATABASE_URL", ""),
		GCPProjectID:   envconfig.Get("GCP_PROJECT_ID", ""),
		MetricsEnabled: metricsEnabled,
		Webhook: WebhookConfig{
			SigningSecret: envconfig.Get("SIGNING_SECRET", ""),
			Tolerance:     tolerance,
		},
		Auth: AuthConfig{
			Mode:     envconfig.Get("AUTH_MODE", "clerk"),
			JWKSURL:  envconfig.Get("CLERK_JWKS_URL", ""),
			Audience: envconfig.Get("CLERK_AUDIENCE", ""),
			Issuer:   envconfig.Get("CLERK_ISSUER", ""),
		},
		Firestore: FirestoreConfig{
			EmulatorHost: envconfig.Get("FIRESTORE_EMULATOR_HOST", ""),
		},
		Redis: RedisConfig{
			Addr:        envconfig.Get("REDIS_ADDR", ""),
			Password:    envconfig.Get("REDIS_PASSWORD", ""),
			DB:          redisDB,
			DeliveryTTL: deliveryTTL,
		},
		Kafka: KafkaConfig{
			Brokers: envconfig.GetList("KAFKA_BROKERS"),
			Topic:   envconfig.Get("KAFKA_TOPIC", pubsub.TopicUserEvents),
		},
	}
	if err := envconfig.Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
