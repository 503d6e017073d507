package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

// setEnvs устанавливает переменные окружения на время теста.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// minimalEnvs возвращает минимальный набор обязательных переменных.
func minimalEnvs() map[string]string {
	return map[string]string{
		"MT_DB_HOST":     "localhost",
		"MT_DB_NAME":     "moldtrack",
		"MT_DB_USER":     "moldtrack",
		"MT_DB_PASSWORD": "secret",
	}
}

func TestLoad_MinimalConfig(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	// Проверяем значения по умолчанию
	if cfg.Port != 8000 {
		t.Errorf("Port = %d, ожидается 8000", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
	if cfg.DBHost != "localhost" {
		t.Errorf("DBHost = %q, ожидается localhost", cfg.DBHost)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, ожидается 5432", cfg.DBPort)
	}
	if cfg.DBSSLMode != "disable" {
		t.Errorf("DBSSLMode = %q, ожидается disable", cfg.DBSSLMode)
	}
	if cfg.SessionSecret != "" {
		t.Errorf("SessionSecret = %q, ожидается пустая строка", cfg.SessionSecret)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, ожидается 24h", cfg.SessionTTL)
	}
	if cfg.SecureCookie {
		t.Error("SecureCookie = true, ожидается false")
	}
	if cfg.MaxImageBytes != 2*1024*1024 {
		t.Errorf("MaxImageBytes = %d, ожидается 2097152", cfg.MaxImageBytes)
	}
	if cfg.SSEKeepalive != 15*time.Second {
		t.Errorf("SSEKeepalive = %v, ожидается 15s", cfg.SSEKeepalive)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 5s", cfg.ShutdownTimeout)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	envs := minimalEnvs()
	envs["MT_PORT"] = "9090"
	envs["MT_LOG_LEVEL"] = "debug"
	envs["MT_LOG_FORMAT"] = "text"
	envs["MT_DB_PORT"] = "5433"
	envs["MT_DB_SSL_MODE"] = "require"
	envs["MT_SESSION_SECRET"] = "super-secret"
	envs["MT_SESSION_TTL"] = "8h"
	envs["MT_SECURE_COOKIE"] = "true"
	envs["MT_MAX_IMAGE_BYTES"] = "1048576"
	envs["MT_SSE_KEEPALIVE"] = "30s"
	envs["MT_SHUTDOWN_TIMEOUT"] = "10s"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, ожидается 9090", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, ожидается Debug", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, ожидается text", cfg.LogFormat)
	}
	if cfg.DBPort != 5433 {
		t.Errorf("DBPort = %d, ожидается 5433", cfg.DBPort)
	}
	if cfg.DBSSLMode != "require" {
		t.Errorf("DBSSLMode = %q, ожидается require", cfg.DBSSLMode)
	}
	if cfg.SessionSecret != "super-secret" {
		t.Errorf("SessionSecret = %q, ожидается super-secret", cfg.SessionSecret)
	}
	if cfg.SessionTTL != 8*time.Hour {
		t.Errorf("SessionTTL = %v, ожидается 8h", cfg.SessionTTL)
	}
	if !cfg.SecureCookie {
		t.Error("SecureCookie = false, ожидается true")
	}
	if cfg.MaxImageBytes != 1048576 {
		t.Errorf("MaxImageBytes = %d, ожидается 1048576", cfg.MaxImageBytes)
	}
	if cfg.SSEKeepalive != 30*time.Second {
		t.Errorf("SSEKeepalive = %v, ожидается 30s", cfg.SSEKeepalive)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	requiredVars := []string{
		"MT_DB_HOST", "MT_DB_NAME", "MT_DB_USER", "MT_DB_PASSWORD",
	}

	for _, missing := range requiredVars {
		t.Run(missing, func(t *testing.T) {
			envs := minimalEnvs()
			envs[missing] = ""
			setEnvs(t, envs)

			_, err := Load()
			if err == nil {
				t.Errorf("Load() не вернул ошибку при отсутствии %s", missing)
			}
		})
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"ноль", "0"},
		{"выше диапазона", "70000"},
		{"не число", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envs := minimalEnvs()
			envs["MT_PORT"] = tt.value
			setEnvs(t, envs)

			_, err := Load()
			if err == nil {
				t.Errorf("Load() не вернул ошибку при MT_PORT=%q", tt.value)
			}
		})
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	envs := minimalEnvs()
	envs["MT_LOG_LEVEL"] = "verbose"
	setEnvs(t, envs)

	_, err := Load()
	if err == nil {
		t.Error("Load() не вернул ошибку при MT_LOG_LEVEL=verbose")
	}
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	envs := minimalEnvs()
	envs["MT_LOG_FORMAT"] = "xml"
	setEnvs(t, envs)

	_, err := Load()
	if err == nil {
		t.Error("Load() не вернул ошибку при MT_LOG_FORMAT=xml")
	}
}

func TestLoad_InvalidSSLMode(t *testing.T) {
	envs := minimalEnvs()
	envs["MT_DB_SSL_MODE"] = "prefer"
	setEnvs(t, envs)

	_, err := Load()
	if err == nil {
		t.Error("Load() не вернул ошибку при MT_DB_SSL_MODE=prefer")
	}
}

func TestLoad_InvalidDurations(t *testing.T) {
	for _, key := range []string{"MT_SESSION_TTL", "MT_SSE_KEEPALIVE", "MT_SHUTDOWN_TIMEOUT"} {
		t.Run(key, func(t *testing.T) {
			envs := minimalEnvs()
			envs[key] = "пять минут"
			setEnvs(t, envs)

			_, err := Load()
			if err == nil {
				t.Errorf("Load() не вернул ошибку при %s с мусорным значением", key)
			}
		})
	}
}

func TestLoad_InvalidMaxImageBytes(t *testing.T) {
	envs := minimalEnvs()
	envs["MT_MAX_IMAGE_BYTES"] = "0"
	setEnvs(t, envs)

	_, err := Load()
	if err == nil {
		t.Error("Load() не вернул ошибку при MT_MAX_IMAGE_BYTES=0")
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DBHost: "db.example.com", DBPort: 5433, DBName: "moldtrack",
		DBUser: "mt", DBPassword: "pw", DBSSLMode: "require",
	}

	dsn := cfg.DatabaseDSN()
	for _, part := range []string{"host=db.example.com", "port=5433", "dbname=moldtrack", "user=mt", "password=pw", "sslmode=require"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("DSN %q не содержит %q", dsn, part)
		}
	}
}
