package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Empty values make getEnv fall through to the defaults, shielding the
	// test from whatever is set in the environment.
	for _, key := range []string{
		"APP_NAME", "APP_PORT", "MAX_FILE_SIZE_MB",
		"VALIDATION_BATCH_TIMEOUT", "VALIDATION_SHEET_TIMEOUT",
		"REFERENCE_CACHE_LIMIT", "MAX_SUGGESTIONS", "INFER_SCHEMA",
		"WORKER_CONCURRENCY",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.AppName != "SheetCheck" {
		t.Errorf("AppName = %q", cfg.AppName)
	}
	if cfg.AppPort != "8080" {
		t.Errorf("AppPort = %q", cfg.AppPort)
	}
	if cfg.UploadMaxSizeMB != 20 {
		t.Errorf("UploadMaxSizeMB = %d", cfg.UploadMaxSizeMB)
	}
	if cfg.BatchTimeout != 120*time.Second {
		t.Errorf("BatchTimeout = %v", cfg.BatchTimeout)
	}
	if cfg.SheetTimeout != 60*time.Second {
		t.Errorf("SheetTimeout = %v", cfg.SheetTimeout)
	}
	if cfg.ReferenceCacheLimit != 5000 {
		t.Errorf("ReferenceCacheLimit = %d", cfg.ReferenceCacheLimit)
	}
	if cfg.MaxSuggestions != 3 {
		t.Errorf("MaxSuggestions = %d", cfg.MaxSuggestions)
	}
	if !cfg.InferSchema {
		t.Error("InferSchema should default to true")
	}
	if cfg.WorkerConcurrency != 4 {
		t.Errorf("WorkerConcurrency = %d", cfg.WorkerConcurrency)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9999")
	t.Setenv("MAX_FILE_SIZE_MB", "5")
	t.Setenv("VALIDATION_SHEET_TIMEOUT", "15s")
	t.Setenv("INFER_SCHEMA", "false")
	t.Setenv("REFERENCE_CACHE_LIMIT", "100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.AppPort != "9999" {
		t.Errorf("AppPort = %q", cfg.AppPort)
	}
	if cfg.UploadMaxSizeMB != 5 {
		t.Errorf("UploadMaxSizeMB = %d", cfg.UploadMaxSizeMB)
	}
	if cfg.SheetTimeout != 15*time.Second {
		t.Errorf("SheetTimeout = %v", cfg.SheetTimeout)
	}
	if cfg.InferSchema {
		t.Error("InferSchema should be overridden to false")
	}
	if cfg.ReferenceCacheLimit != 100 {
		t.Errorf("ReferenceCacheLimit = %d", cfg.ReferenceCacheLimit)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("MAX_FILE_SIZE_MB", "plenty")
	t.Setenv("VALIDATION_BATCH_TIMEOUT", "soon")
	t.Setenv("INFER_SCHEMA", "yep")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.UploadMaxSizeMB != 20 {
		t.Errorf("UploadMaxSizeMB = %d, want default 20", cfg.UploadMaxSizeMB)
	}
	if cfg.BatchTimeout != 120*time.Second {
		t.Errorf("BatchTimeout = %v, want default 120s", cfg.BatchTimeout)
	}
	if !cfg.InferSchema {
		t.Error("InferSchema should fall back to default true")
	}
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{
		DBUsername: "app",
		DBPassword: "secret",
		DBHost:     "db.internal",
		DBPort:     "3307",
		DBDatabase: "sheetcheck",
	}
	want := "app:secret@tcp(db.internal:3307)/sheetcheck?parseTime=true&loc=Local"
	if got := cfg.GetDSN(); got != want {
		t.Errorf("GetDSN() = %q, want %q", got, want)
	}
}

func TestGetRedisAddr(t *testing.T) {
	cfg := &Config{RedisHost: "cache", RedisPort: "6380"}
	if got := cfg.GetRedisAddr(); got != "cache:6380" {
		t.Errorf("GetRedisAddr() = %q", got)
	}
}

func TestUploadMaxSizeBytes(t *testing.T) {
	cfg := &Config{UploadMaxSizeMB: 2}
	if got := cfg.UploadMaxSizeBytes(); got != 2*1024*1024 {
		t.Errorf("UploadMaxSizeBytes() = %d", got)
	}
}
