package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio-user")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
	t.Setenv("PARTNER_TOKEN_SECRET", "token-secret")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.API.Port != 8080 {
		t.Fatalf("api port = %d, want 8080", cfg.API.Port)
	}
	if cfg.Pipeline.JobGracePeriod != 30*time.Second {
		t.Fatalf("grace period = %v, want 30s", cfg.Pipeline.JobGracePeriod)
	}
	if cfg.Pipeline.MaxFiles != 6 || cfg.Pipeline.MaxFileSize != 10<<20 {
		t.Fatalf("pipeline limits = %d files, %d bytes", cfg.Pipeline.MaxFiles, cfg.Pipeline.MaxFileSize)
	}
	if cfg.Partner.DefaultRateLimit != 1000 || cfg.Partner.TokenTTL != 12*time.Hour {
		t.Fatalf("partner defaults = %+v", cfg.Partner)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("PIPELINE_JOB_GRACE_PERIOD", "45s")
	t.Setenv("API_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.API.Port != 9090 {
		t.Fatalf("api port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Redis.Addr() != "cache.internal:6379" {
		t.Fatalf("redis addr = %q", cfg.Redis.Addr())
	}
	if cfg.Pipeline.JobGracePeriod != 45*time.Second {
		t.Fatalf("grace period = %v, want 45s", cfg.Pipeline.JobGracePeriod)
	}

	origins := cfg.API.Origins()
	if len(origins) != 2 || origins[0] != "https://a.example" || origins[1] != "https://b.example" {
		t.Fatalf("origins = %v", origins)
	}
}

func TestLoadRequiresPartnerSecret(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio-user")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
	t.Setenv("PARTNER_TOKEN_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("load succeeded without a partner token secret")
	}
}

func TestDatabaseDSN(t *testing.T) {
	dsn := DatabaseConfig{
		Host: "db", Port: 5432, Name: "visascope", User: "app", Password: "pw", SSLMode: "disable",
	}.DSN()
	want := "host=db port=5432 user=app password=pw dbname=visascope sslmode=disable"
	if dsn != want {
		t.Fatalf("dsn = %q, want %q", dsn, want)
	}
}
