package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewOutreachHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	LogLevel     string
	LogFormat    string
	OtelEnabled  bool
	OTLPEndpoint string
	OTLPProtocol string
	OtelSampling float64

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis        RedisConfig
	Email        EmailConfig
	Notification NotificationConfig
	Forecast     ForecastConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	SendRate  float64
	SendBurst int
	LockTTL   time.Duration
}

type EmailConfig struct {
	Provider string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	SendGridAPIKey string

	From    string
	ReplyTo string
}

type NotificationConfig struct {
	Recipient string
	From      string
	Timezone  string
}

type ForecastConfig struct {
	Target   int
	Timezone string
	PageSize int
}

const (
	DBTypePostgres = "postgres"
	DBTypeMySQL    = "mysql"
	DBTypeSQLite   = "sqlite"
)

const (
	EmailProviderSMTP     = "smtp"
	EmailProviderSendGrid = "sendgrid"
	EmailProviderNoop     = "noop"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:      getenv("APP_SERVICE", "outreach"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		LogLevel:     strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:    strings.ToLower(getenv("LOG_FORMAT", "json")),
		OtelEnabled:  getenvBool("OTEL_ENABLED", false),
		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTLPProtocol: strings.ToLower(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
		OtelSampling: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),

		DBType:            normalizeDBType(getenv("DATABASE_TYPE", DBTypePostgres)),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "postgres"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		Redis: RedisConfig{
			Addr:      strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password:  strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:        getenvInt("REDIS_DB", 0),
			SendRate:  getenvFloat("OUTREACH_SEND_RATE", 2),
			SendBurst: getenvInt("OUTREACH_SEND_BURST", 2),
			LockTTL:   getenvDuration("OUTREACH_LOCK_TTL", 30*time.Second),
		},
		Email: EmailConfig{
			Provider:       normalizeEmailProvider(getenv("EMAIL_PROVIDER", EmailProviderNoop)),
			SMTPHost:       getenv("SMTP_HOST", "localhost"),
			SMTPPort:       getenvInt("SMTP_PORT", 587),
			SMTPUsername:   getenv("SMTP_USERNAME", ""),
			SMTPPassword:   getenv("SMTP_PASSWORD", ""),
			SendGridAPIKey: strings.TrimSpace(getenv("SENDGRID_API_KEY", "")),
			From:           getenv("EMAIL_FROM", "Pixel <notifications@notifications.getpixel.ai>"),
			ReplyTo:        getenv("EMAIL_REPLY_TO", "support@getpixel.ai"),
		},
		Notification: NotificationConfig{
			Recipient: strings.TrimSpace(getenv("NOTIFY_RECIPIENT", "")),
			From:      getenv("NOTIFY_FROM", "Pixel <notifications@notifications.getpixel.ai>"),
			Timezone:  getenv("NOTIFY_TIMEZONE", "America/New_York"),
		},
		Forecast: ForecastConfig{
			Target:   getenvInt("FORECAST_TARGET", 1000),
			Timezone: getenv("FORECAST_TIMEZONE", "Local"),
			PageSize: getenvInt("FORECAST_PAGE_SIZE", 1000),
		},
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func normalizeEmailProvider(raw string) string {
	switch value := strings.ToLower(strings.TrimSpace(raw)); value {
	case EmailProviderSMTP, EmailProviderSendGrid:
		return value
	default:
		return EmailProviderNoop
	}
}

func normalizeDBType(raw string) string {
	switch value := strings.ToLower(strings.TrimSpace(raw)); value {
	case "postgresql", "pg":
		return DBTypePostgres
	case "sqlite3":
		return DBTypeSQLite
	default:
		return value
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
