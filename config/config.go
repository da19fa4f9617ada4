package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Console  ConsoleConfig
}

// Storage backends for the collection server.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type ServerConfig struct {
	Port    string
	Mode    string
	Storage string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

func (c *JWTConfig) ExpirationDuration() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

// ConsoleConfig configures the operator console and its engine.
type ConsoleConfig struct {
	BaseURL         string
	TokenFile       string
	RequestTimeout  time.Duration
	NotificationTTL time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:    getEnv("SERVER_PORT", "5000"),
			Mode:    getEnv("GIN_MODE", "debug"),
			Storage: getEnv("STORAGE", StoragePostgres),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "careconsole"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:          os.Getenv("JWT_SECRET"),
			ExpirationHours: getEnvInt("JWT_EXPIRATION_HOURS", 24),
		},
		Console: ConsoleConfig{
			BaseURL:         getEnv("CONSOLE_BASE_URL", "http://localhost:5000"),
			TokenFile:       getEnv("CONSOLE_TOKEN_FILE", defaultTokenFile()),
			RequestTimeout:  getEnvDuration("CONSOLE_REQUEST_TIMEOUT", 10*time.Second),
			NotificationTTL: getEnvDuration("CONSOLE_NOTIFICATION_TTL", 6*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".careconsole-token"
	}
	return home + string(os.PathSeparator) + ".careconsole-token"
}
