package config

import (
	"strings"
	"testing"
	"time"
)

func validTestConfig() *Config {
	return &Config{
		Env:                       "development",
		DatabaseURL:               "postgres://x",
		JWTAccessSecret:           "abcdefghijklmnopqrstuvwxyz123456",
		JWTRefreshSecret:          "abcdefghijklmnopqrstuvwxyz654321",
		RefreshTokenPepper:        "pepper-1234567890",
		JWTAccessTTL:              2 * time.Hour,
		JWTRefreshTTL:             168 * time.Hour,
		AuthRateLimitPerMin:       30,
		APIRateLimitPerMin:        120,
		RedisAddr:                 "localhost:6379",
		CatalogCacheEnabled:       true,
		CatalogCacheTTL:           30 * time.Second,
		MinioEndpoint:             "localhost:9000",
		MinioBucket:               "product-images",
		MinioPresignTTL:           15 * time.Minute,
		UploadMaxBytes:            5 * 1024 * 1024,
		OTELExporterOTLPEndpoint:  "localhost:4317",
		OTELTraceSamplingRatio:    1.0,
		OTELMetricsExportInterval: 10 * time.Second,
		OTELLogLevel:              "info",
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	if err := validTestConfig().Validate(); err != nil {
		t.Fatalf("expected valid config to pass: %v", err)
	}
}

func TestValidateRejectsMissingDatabaseURL(t *testing.T) {
	cfg := validTestConfig()
	cfg.DatabaseURL = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

func TestValidateRejectsSharedJWTSecrets(t *testing.T) {
	cfg := validTestConfig()
	cfg.JWTRefreshSecret = cfg.JWTAccessSecret
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "must differ") {
		t.Fatalf("expected shared secret error, got %v", err)
	}
}

func TestValidateRequiresRedisWhenCacheEnabled(t *testing.T) {
	cfg := validTestConfig()
	cfg.RedisAddr = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing redis addr")
	}

	cfg.CatalogCacheEnabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected cache-disabled config to pass: %v", err)
	}
}

func TestValidateJoinsAllErrors(t *testing.T) {
	cfg := validTestConfig()
	cfg.DatabaseURL = ""
	cfg.JWTAccessSecret = "short"
	cfg.AuthRateLimitPerMin = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"DATABASE_URL", "JWT_ACCESS_SECRET", "AUTH_RATE_LIMIT_PER_MIN"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %s in joined error, got %v", want, err)
		}
	}
}
