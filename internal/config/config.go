// Пакет config — загрузка и валидация конфигурации сервиса moldtrack
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации сервиса.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Сессии ---

	// Ключ шифрования сессионных cookie (base64 или произвольная строка).
	// Пустое значение — случайный ключ, сессии не переживают рестарт.
	SessionSecret string
	// Время жизни сессии
	SessionTTL time.Duration
	// Secure flag для сессионных cookie (true за HTTPS-терминатором)
	SecureCookie bool

	// --- Журнал заявок ---

	// Максимальный размер вложения-изображения в байтах.
	// Относится к исходному изображению до base64-кодирования.
	// Изображения встраиваются в запись заявки, лимит держит её размер в узде.
	MaxImageBytes int

	// --- Real-time ---

	// Интервал keepalive-комментариев SSE-потока
	SSEKeepalive time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// MT_PORT — порт HTTP-сервера (по умолчанию 8000)
	cfg.Port, err = getEnvInt("MT_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("MT_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("MT_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// MT_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("MT_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("MT_LOG_LEVEL: %w", err)
	}

	// MT_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("MT_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("MT_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// MT_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("MT_DB_HOST")
	if err != nil {
		return nil, err
	}

	// MT_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("MT_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("MT_DB_PORT: %w", err)
	}

	// MT_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("MT_DB_NAME")
	if err != nil {
		return nil, err
	}

	// MT_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("MT_DB_USER")
	if err != nil {
		return nil, err
	}

	// MT_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("MT_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// MT_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("MT_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("MT_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Сессии ---

	// MT_SESSION_SECRET — ключ шифрования сессий (опционально)
	cfg.SessionSecret = getEnvDefault("MT_SESSION_SECRET", "")

	// MT_SESSION_TTL — время жизни сессии (по умолчанию 24h)
	cfg.SessionTTL, err = getEnvDuration("MT_SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("MT_SESSION_TTL: %w", err)
	}

	// MT_SECURE_COOKIE — Secure flag для cookie (по умолчанию false)
	cfg.SecureCookie = getEnvDefault("MT_SECURE_COOKIE", "false") == "true"

	// --- Журнал заявок ---

	// MT_MAX_IMAGE_BYTES — лимит вложения (по умолчанию 2 MiB)
	cfg.MaxImageBytes, err = getEnvInt("MT_MAX_IMAGE_BYTES", 2*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("MT_MAX_IMAGE_BYTES: %w", err)
	}
	if cfg.MaxImageBytes < 1 {
		return nil, fmt.Errorf("MT_MAX_IMAGE_BYTES: значение %d должно быть положительным", cfg.MaxImageBytes)
	}

	// --- Real-time ---

	// MT_SSE_KEEPALIVE — интервал keepalive SSE (по умолчанию 15s)
	cfg.SSEKeepalive, err = getEnvDuration("MT_SSE_KEEPALIVE", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MT_SSE_KEEPALIVE: %w", err)
	}

	// --- Graceful shutdown ---

	// MT_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("MT_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MT_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
