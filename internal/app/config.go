package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yungbote/minesafe-compliance/internal/clients/elasticsearch"
	"github.com/yungbote/minesafe-compliance/internal/data/db"
	"github.com/yungbote/minesafe-compliance/internal/messaging"
	"github.com/yungbote/minesafe-compliance/internal/observability"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
	"github.com/yungbote/minesafe-compliance/internal/realtime/bus"
)

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type JWTConfig struct {
	Secret    string        `mapstructure:"secret"`
	AccessTTL time.Duration `mapstructure:"access_ttl"`
}

type RateLimitConfig struct {
	Events string `mapstructure:"events"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type Config struct {
	Server        ServerConfig             `mapstructure:"server"`
	Postgres      db.Config                `mapstructure:"postgres"`
	JWT           JWTConfig                `mapstructure:"jwt"`
	Redis         bus.RedisConfig          `mapstructure:"redis"`
	RabbitMQ      messaging.Config         `mapstructure:"rabbitmq"`
	Elasticsearch elasticsearch.Config     `mapstructure:"elasticsearch"`
	RateLimit     RateLimitConfig          `mapstructure:"ratelimit"`
	CORS          CORSConfig               `mapstructure:"cors"`
	Otel          observability.OtelConfig `mapstructure:"otel"`
	Metrics       MetricsConfig            `mapstructure:"metrics"`
}

// envBindings maps config keys onto their environment variables.
var envBindings = map[string]string{
	"server.addr":             "SERVER_ADDR",
	"server.mode":             "GIN_MODE",
	"server.shutdown_timeout": "SERVER_SHUTDOWN_TIMEOUT",

	"postgres.driver":         "DB_DRIVER",
	"postgres.dsn":            "POSTGRES_DSN",
	"postgres.host":           "POSTGRES_HOST",
	"postgres.port":           "POSTGRES_PORT",
	"postgres.user":           "POSTGRES_USER",
	"postgres.password":       "POSTGRES_PASSWORD",
	"postgres.name":           "POSTGRES_NAME",
	"postgres.sslmode":        "POSTGRES_SSLMODE",
	"postgres.sqlite_path":    "SQLITE_PATH",
	"postgres.max_open_conns": "POSTGRES_MAX_OPEN_CONNS",
	"postgres.max_idle_conns": "POSTGRES_MAX_IDLE_CONNS",

	"jwt.secret":     "JWT_SECRET_KEY",
	"jwt.access_ttl": "ACCESS_TOKEN_TTL",

	"redis.addr":     "REDIS_ADDR",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",
	"redis.channel":  "REDIS_ALERT_CHANNEL",

	"rabbitmq.enabled":     "RABBITMQ_ENABLED",
	"rabbitmq.url":         "RABBITMQ_URL",
	"rabbitmq.exchange":    "RABBITMQ_EXCHANGE",
	"rabbitmq.queue":       "RABBITMQ_QUEUE",
	"rabbitmq.routing_key": "RABBITMQ_ROUTING_KEY",
	"rabbitmq.prefetch":    "RABBITMQ_PREFETCH",

	"elasticsearch.enabled":   "ELASTICSEARCH_ENABLED",
	"elasticsearch.addresses": "ELASTICSEARCH_ADDRESSES",
	"elasticsearch.username":  "ELASTICSEARCH_USERNAME",
	"elasticsearch.password":  "ELASTICSEARCH_PASSWORD",
	"elasticsearch.index":     "ELASTICSEARCH_INDEX",

	"ratelimit.events": "RATE_LIMIT_EVENTS",

	"cors.allowed_origins": "CORS_ALLOWED_ORIGINS",

	"otel.enabled":      "OTEL_ENABLED",
	"otel.service_name": "OTEL_SERVICE_NAME",
	"otel.environment":  "OTEL_ENVIRONMENT",
	"otel.version":      "OTEL_SERVICE_VERSION",
	"otel.endpoint":     "OTEL_EXPORTER_OTLP_ENDPOINT",
	"otel.insecure":     "OTEL_EXPORTER_OTLP_INSECURE",
	"otel.sample_ratio": "OTEL_SAMPLE_RATIO",

	"metrics.enabled": "METRICS_ENABLED",
	"metrics.addr":    "METRICS_ADDR",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("postgres.driver", db.DriverPostgres)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.name", "minesafe")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.sqlite_path", "compliance.db")

	v.SetDefault("jwt.secret", "defaultsecret")
	v.SetDefault("jwt.access_ttl", "12h")

	v.SetDefault("redis.channel", "minesafe:alerts")

	v.SetDefault("rabbitmq.enabled", false)
	v.SetDefault("rabbitmq.exchange", "minesafe")
	v.SetDefault("rabbitmq.queue", "engagement_events_queue")
	v.SetDefault("rabbitmq.routing_key", "engagement.event")
	v.SetDefault("rabbitmq.prefetch", 16)

	v.SetDefault("elasticsearch.enabled", false)
	v.SetDefault("elasticsearch.index", elasticsearch.DefaultIndex)

	v.SetDefault("ratelimit.events", "120-M")

	v.SetDefault("otel.service_name", "minesafe-compliance")
	v.SetDefault("otel.sample_ratio", 1.0)

	v.SetDefault("metrics.enabled", false)
}

// LoadConfig reads .env (optional) and the process environment.
func LoadConfig(log *logger.Logger) (Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		if log != nil {
			log.Debug("No .env file loaded", "error", err)
		}
	}
	return loadFrom(viper.New())
}

func loadFrom(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	// Comma-separated env values arrive as one string.
	cfg.Elasticsearch.Addresses = splitList(v.GetString("elasticsearch.addresses"))
	cfg.CORS.AllowedOrigins = splitList(v.GetString("cors.allowed_origins"))

	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return Config{}, fmt.Errorf("jwt secret must not be empty")
	}
	if cfg.Elasticsearch.Enabled && len(cfg.Elasticsearch.Addresses) == 0 {
		return Config{}, fmt.Errorf("elasticsearch enabled without addresses")
	}
	if cfg.RabbitMQ.Enabled && strings.TrimSpace(cfg.RabbitMQ.URL) == "" {
		return Config{}, fmt.Errorf("rabbitmq enabled without url")
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// logMode is read before config so config loading itself can log.
func logMode() string {
	if m := strings.TrimSpace(os.Getenv("LOG_MODE")); m != "" {
		return m
	}
	return "development"
}
