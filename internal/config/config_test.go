package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

// setRequiredEnv fija las variables obligatorias mínimas.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CM_DB_HOST", "localhost")
	t.Setenv("CM_DB_NAME", "inventario")
	t.Setenv("CM_DB_USER", "inventario")
	t.Setenv("CM_DB_PASSWORD", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, esperado 8080", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, esperado info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, esperado json", cfg.LogFormat)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, esperado 5432", cfg.DBPort)
	}
	if cfg.DBSSLMode != "disable" {
		t.Errorf("DBSSLMode = %q, esperado disable", cfg.DBSSLMode)
	}
	if cfg.FanoutConcurrency != 8 {
		t.Errorf("FanoutConcurrency = %d, esperado 8", cfg.FanoutConcurrency)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, esperado 5s", cfg.ShutdownTimeout)
	}
}

func TestLoadRequiredMissing(t *testing.T) {
	t.Setenv("CM_DB_HOST", "localhost")
	t.Setenv("CM_DB_NAME", "inventario")
	t.Setenv("CM_DB_USER", "inventario")
	// CM_DB_PASSWORD ausente a propósito.
	t.Setenv("CM_DB_PASSWORD", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() debe fallar sin CM_DB_PASSWORD")
	} else if !strings.Contains(err.Error(), "CM_DB_PASSWORD") {
		t.Errorf("el error debe nombrar la variable faltante, got %v", err)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	casos := []struct {
		nombre string
		clave  string
		valor  string
	}{
		{"puerto no numérico", "CM_PORT", "ochenta"},
		{"puerto fuera de rango", "CM_PORT", "70000"},
		{"nivel de log desconocido", "CM_LOG_LEVEL", "verbose"},
		{"formato de log desconocido", "CM_LOG_FORMAT", "xml"},
		{"ssl mode desconocido", "CM_DB_SSL_MODE", "maybe"},
		{"fanout fuera de rango", "CM_FANOUT_CONCURRENCY", "500"},
		{"duración inválida", "CM_SHUTDOWN_TIMEOUT", "cinco"},
	}

	for _, tc := range casos {
		t.Run(tc.nombre, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tc.clave, tc.valor)

			if _, err := Load(); err == nil {
				t.Errorf("Load() con %s=%q debe fallar", tc.clave, tc.valor)
			}
		})
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CM_PORT", "9090")
	t.Setenv("CM_LOG_LEVEL", "debug")
	t.Setenv("CM_LOG_FORMAT", "text")
	t.Setenv("CM_FANOUT_CONCURRENCY", "16")
	t.Setenv("CM_SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != 9090 || cfg.LogLevel != slog.LevelDebug || cfg.LogFormat != "text" {
		t.Errorf("overrides de servidor no aplicados: %+v", cfg)
	}
	if cfg.FanoutConcurrency != 16 || cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("overrides de fanout/shutdown no aplicados: %+v", cfg)
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DBHost: "db.example.com", DBPort: 5433, DBName: "inventario",
		DBUser: "svc", DBPassword: "secret", DBSSLMode: "require",
	}

	dsn := cfg.DatabaseDSN()
	for _, fragmento := range []string{"host=db.example.com", "port=5433", "dbname=inventario", "sslmode=require"} {
		if !strings.Contains(dsn, fragmento) {
			t.Errorf("DSN %q debe incluir %q", dsn, fragmento)
		}
	}
}
