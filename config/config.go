package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Undo     UndoConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Menu     MenuConfig
}

type ServerConfig struct {
	AppEnv          string
	HTTPPort        string
	GRPCPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
	AutoMigrate     bool
}

type AuthConfig struct {
	APIKeys []string
}

type UndoConfig struct {
	Window         time.Duration
	SweepInterval  time.Duration
	SweepGrace     time.Duration
	SessionIdleTTL time.Duration
}

// RedisConfig is optional; an empty Addr keeps undo batches in memory and
// disables the menu cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig is optional; no brokers means domain events are not exported.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type MenuConfig struct {
	CacheTTL time.Duration
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:          getEnv("APP_ENV", "dev"),
			HTTPPort:        getEnv("HTTP_PORT", ":8080"),
			GRPCPort:        getEnv("GRPC_PORT", ":8082"),
			ReadTimeout:     getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			RequestTimeout:  getEnvDuration("HTTP_REQUEST_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
			AllowedOrigins:  getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5432"),
			User:            getEnv("POSTGRES_USER", "qrmenu"),
			Password:        getEnv("POSTGRES_PASSWORD", "qrmenu"),
			DBName:          getEnv("POSTGRES_DB", "qrmenu"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			SQLitePath:      getEnv("SQLITE_PATH", "qrmenu.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("DB_CONN_MAX_IDLE_TIME", 60),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Auth: AuthConfig{
			APIKeys: getEnvSlice("ADMIN_API_KEYS", nil),
		},
		Undo: UndoConfig{
			Window:         getEnvDuration("UNDO_WINDOW", 10*time.Second),
			SweepInterval:  getEnvDuration("UNDO_SWEEP_INTERVAL", 30*time.Second),
			SweepGrace:     getEnvDuration("UNDO_SWEEP_GRACE", 5*time.Second),
			SessionIdleTTL: getEnvDuration("UNDO_SESSION_IDLE_TTL", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvSlice("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC_EVENTS", "qrmenu.events"),
		},
		Menu: MenuConfig{
			CacheTTL: getEnvDuration("MENU_CACHE_TTL", time.Minute),
		},
	}
}

// Validate reports every setting the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "pgx", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be pgx or sqlite, got %q", c.Database.Driver))
	}
	if c.Database.Driver == "sqlite" && c.Database.SQLitePath == "" {
		errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
	}
	if len(c.Auth.APIKeys) == 0 {
		errs = append(errs, errors.New("ADMIN_API_KEYS must list at least one key"))
	}
	if c.Undo.Window <= 0 {
		errs = append(errs, errors.New("UNDO_WINDOW must be positive"))
	}
	if c.Undo.SweepInterval <= 0 {
		errs = append(errs, errors.New("UNDO_SWEEP_INTERVAL must be positive"))
	}
	if c.Menu.CacheTTL < 0 {
		errs = append(errs, errors.New("MENU_CACHE_TTL must not be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.AppEnv == "dev"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvSlice splits on commas and drops blank entries.
func getEnvSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
