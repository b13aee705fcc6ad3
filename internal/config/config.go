// Paquete config — carga y validación de la configuración del módulo
// central desde variables de entorno.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Versión de la aplicación, se fija en build con -ldflags.
var Version = "dev"

// Config contiene todos los parámetros del módulo central.
type Config struct {
	// --- Servidor ---

	// Puerto del servidor HTTP
	Port int
	// Nivel de logging (debug, info, warn, error)
	LogLevel slog.Level
	// Formato de logs (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Host de PostgreSQL
	DBHost string
	// Puerto de PostgreSQL
	DBPort int
	// Nombre de la base de datos
	DBName string
	// Usuario de PostgreSQL
	DBUser string
	// Contraseña del usuario de PostgreSQL
	DBPassword string
	// Modo SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Consulta federada ---

	// Máximo de particiones consultadas en paralelo
	FanoutConcurrency int

	// --- Graceful shutdown ---

	// Timeout del graceful shutdown del servidor HTTP
	ShutdownTimeout time.Duration
}

// Load carga la configuración desde variables de entorno, valida los
// campos obligatorios y devuelve Config o un error.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Servidor ---

	// CM_PORT — puerto del servidor HTTP (por defecto 8080)
	cfg.Port, err = getEnvInt("CM_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("CM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("CM_PORT: el valor %d está fuera del rango 1-65535", cfg.Port)
	}

	// CM_LOG_LEVEL — nivel de logging (por defecto info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("CM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("CM_LOG_LEVEL: %w", err)
	}

	// CM_LOG_FORMAT — formato de logs (por defecto json)
	cfg.LogFormat = getEnvDefault("CM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("CM_LOG_FORMAT: valor inválido %q, válidos: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// CM_DB_HOST — obligatorio
	cfg.DBHost, err = getEnvRequired("CM_DB_HOST")
	if err != nil {
		return nil, err
	}

	// CM_DB_PORT — puerto de PostgreSQL (por defecto 5432)
	cfg.DBPort, err = getEnvInt("CM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("CM_DB_PORT: %w", err)
	}

	// CM_DB_NAME — obligatorio
	cfg.DBName, err = getEnvRequired("CM_DB_NAME")
	if err != nil {
		return nil, err
	}

	// CM_DB_USER — obligatorio
	cfg.DBUser, err = getEnvRequired("CM_DB_USER")
	if err != nil {
		return nil, err
	}

	// CM_DB_PASSWORD — obligatorio
	cfg.DBPassword, err = getEnvRequired("CM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// CM_DB_SSL_MODE — modo SSL (por defecto disable)
	cfg.DBSSLMode = getEnvDefault("CM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("CM_DB_SSL_MODE: valor inválido %q, válidos: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Consulta federada ---

	// CM_FANOUT_CONCURRENCY — particiones en paralelo (por defecto 8)
	cfg.FanoutConcurrency, err = getEnvInt("CM_FANOUT_CONCURRENCY", 8)
	if err != nil {
		return nil, fmt.Errorf("CM_FANOUT_CONCURRENCY: %w", err)
	}
	if cfg.FanoutConcurrency < 1 || cfg.FanoutConcurrency > 64 {
		return nil, fmt.Errorf("CM_FANOUT_CONCURRENCY: el valor %d está fuera del rango 1-64", cfg.FanoutConcurrency)
	}

	// --- Graceful shutdown ---

	// CM_SHUTDOWN_TIMEOUT — timeout del graceful shutdown (por defecto 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("CM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN devuelve la cadena de conexión a PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// SetupLogger configura el logger slog global según la configuración.
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

// --- Funciones auxiliares ---

// getEnvRequired devuelve el valor de la variable o un error si no está definida.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: variable de entorno obligatoria no definida", key)
	}
	return val, nil
}

// getEnvDefault devuelve el valor de la variable o el valor por defecto.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt devuelve el valor entero de la variable o el valor por defecto.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("entero inválido: %q", val)
	}
	return n, nil
}

// getEnvDuration devuelve un time.Duration de la variable o el valor por defecto.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("duración inválida: %q (use formato Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel convierte el nivel de logging textual a slog.Level.
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
		return slog.LevelInfo, fmt.Errorf("nivel inválido %q, válidos: debug, info, warn, error", level)
	}
}
