package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Security SecurityConfig
	Terminal TerminalConfig
	Bridge   BridgeConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	// Хеш API-ключа (bcrypt); сам ключ нигде не хранится
	APIKeyHash    string
	EncryptionKey string
}

// TerminalConfig - настройки подключения к торговому терминалу
type TerminalConfig struct {
	Endpoint       string        // базовый URL REST-моста терминала
	RequestTimeout time.Duration // таймаут одного HTTP запроса
	RequestsPerSec float64       // ограничение частоты запросов к терминалу
	RequestsBurst  int
}

// BridgeConfig - настройки торгового моста
type BridgeConfig struct {
	// Периодическая сверка позиций с терминалом
	SyncInterval time.Duration

	// Проверка появления позиции после отправки ордера
	VerifyAttempts int
	VerifyDelay    time.Duration

	// Retry для вызовов терминала
	MaxRetries   int
	RetryBackoff time.Duration

	// Надзор за соединением с терминалом
	HealthCheckInterval time.Duration
	ReconnectDelay      time.Duration
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "mt5bridge"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			APIKeyHash:    getEnv("API_KEY_HASH", ""),
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		},
		Terminal: TerminalConfig{
			Endpoint:       getEnv("TERMINAL_ENDPOINT", "http://localhost:5000"),
			RequestTimeout: getEnvAsDuration("TERMINAL_TIMEOUT", 10*time.Second),
			RequestsPerSec: getEnvAsFloat("TERMINAL_RATE_LIMIT", 20),
			RequestsBurst:  getEnvAsInt("TERMINAL_RATE_BURST", 40),
		},
		Bridge: BridgeConfig{
			SyncInterval:   getEnvAsDuration("SYNC_INTERVAL", 5*time.Second),
			VerifyAttempts: getEnvAsInt("VERIFY_ATTEMPTS", 5),
			VerifyDelay:    getEnvAsDuration("VERIFY_DELAY", 1*time.Second),

			MaxRetries:   getEnvAsInt("MAX_RETRIES", 4),
			RetryBackoff: getEnvAsDuration("RETRY_BACKOFF", 500*time.Millisecond),

			HealthCheckInterval: getEnvAsDuration("HEALTH_CHECK_INTERVAL", 10*time.Second),
			ReconnectDelay:      getEnvAsDuration("RECONNECT_DELAY", 3*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Валидация критичных параметров безопасности
	if err := cfg.validateSecurity(); err != nil {
		return nil, err
	}

	// Валидация числовых диапазонов
	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSecurity проверяет параметры безопасности
func (c *Config) validateSecurity() error {
	// ENCRYPTION_KEY обязателен для шифрования паролей терминальных счетов
	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required for encrypting terminal credentials")
	}

	if len(c.Security.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	// API_KEY_HASH обязателен: без него API остаётся открытым
	if c.Security.APIKeyHash == "" {
		return fmt.Errorf("API_KEY_HASH is required for API authentication")
	}

	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	// Валидация портов
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	// Валидация retry параметров
	if c.Bridge.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES cannot be negative, got %d", c.Bridge.MaxRetries)
	}

	if c.Bridge.MaxRetries > 10 {
		return fmt.Errorf("MAX_RETRIES should not exceed 10, got %d", c.Bridge.MaxRetries)
	}

	// Валидация цикла проверки исполнения
	if c.Bridge.VerifyAttempts < 1 {
		return fmt.Errorf("VERIFY_ATTEMPTS must be at least 1, got %d", c.Bridge.VerifyAttempts)
	}

	if c.Bridge.VerifyDelay <= 0 {
		return fmt.Errorf("VERIFY_DELAY must be positive, got %v", c.Bridge.VerifyDelay)
	}

	// Валидация таймаутов (должны быть положительными)
	if c.Bridge.SyncInterval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive, got %v", c.Bridge.SyncInterval)
	}

	if c.Terminal.RequestTimeout <= 0 {
		return fmt.Errorf("TERMINAL_TIMEOUT must be positive, got %v", c.Terminal.RequestTimeout)
	}

	if c.Terminal.RequestsPerSec <= 0 {
		return fmt.Errorf("TERMINAL_RATE_LIMIT must be positive, got %v", c.Terminal.RequestsPerSec)
	}

	if c.Bridge.HealthCheckInterval <= 0 {
		return fmt.Errorf("HEALTH_CHECK_INTERVAL must be positive, got %v", c.Bridge.HealthCheckInterval)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
