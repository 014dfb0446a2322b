package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.ServerAddress != "0.0.0.0:8080" {
		t.Errorf("ServerAddress = %q", cfg.ServerAddress)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.NotifyWorkers != 8 || cfg.NotifyBurst != 10 {
		t.Errorf("notify settings = %d/%d", cfg.NotifyWorkers, cfg.NotifyBurst)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := "SERVER_ADDRESS=127.0.0.1:9000\nPOSTGRES_CONN=postgres://file\nJWT_SECRET=from-file\nREQUEST_TIMEOUT=2s\n"
	if err := os.WriteFile(filepath.Join(dir, "app.env"), []byte(content), 0o600); err != nil {
		t.Fatalf("write app.env: %v", err)
	}
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.ServerAddress != "127.0.0.1:9000" {
		t.Errorf("ServerAddress = %q", cfg.ServerAddress)
	}
	if cfg.PostgresConn != "postgres://file" {
		t.Errorf("PostgresConn = %q", cfg.PostgresConn)
	}
	if cfg.JWTSecret != "from-env" {
		t.Errorf("JWTSecret = %q, env must win over file", cfg.JWTSecret)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.RequestTimeout != 2*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
}
