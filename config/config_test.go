package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET_KEY", "test-secret")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("MONGODB_DB", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("CLEANUP_INTERVAL", "")
	t.Setenv("NOTIFICATION_RETENTION_DAYS", "")
	t.Setenv("DB_CONNECT_TIMEOUT", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MongoDatabase != defaultDatabaseName {
		t.Errorf("MongoDatabase = %q, want %q", cfg.MongoDatabase, defaultDatabaseName)
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want 8080", cfg.ServerPort)
	}
	if cfg.CleanupInterval != time.Hour {
		t.Errorf("CleanupInterval = %s, want 1h", cfg.CleanupInterval)
	}
	if cfg.NotificationRetentionDays != 30 {
		t.Errorf("NotificationRetentionDays = %d, want 30", cfg.NotificationRetentionDays)
	}
	if cfg.DBConnectTimeout != 10*time.Second {
		t.Errorf("DBConnectTimeout = %s, want 10s", cfg.DBConnectTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("CORSAllowedOrigins = %v, want [*]", cfg.CORSAllowedOrigins)
	}
	if cfg.UploadsEnabled() {
		t.Error("UploadsEnabled() = true without R2 settings")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("MONGODB_DB", "custom")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CLEANUP_INTERVAL", "15m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MongoDatabase != "custom" || cfg.ServerPort != 9090 || cfg.CleanupInterval != 15*time.Minute {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://b.test" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"missing jwt secret", "JWT_SECRET_KEY", ""},
		{"port not a number", "SERVER_PORT", "http"},
		{"port out of range", "SERVER_PORT", "70000"},
		{"bad interval", "CLEANUP_INTERVAL", "soon"},
		{"zero retention", "NOTIFICATION_RETENTION_DAYS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() with %s=%q succeeded, want error", tt.key, tt.val)
			}
		})
	}
}
