package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "SERVER_PORT")
	unsetEnvWithCleanup(t, "PORT")
	unsetEnvWithCleanup(t, "VERIFY_RATE_LIMIT_PER_MINUTE")
	unsetEnvWithCleanup(t, "WITHDRAW_RATE_LIMIT_PER_MINUTE")
	unsetEnvWithCleanup(t, "PRICE_HISTORY_RETENTION_DAYS")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default server port 8080, got %q", cfg.ServerPort)
	}
	if cfg.VerifyRateLimitPerMinute != 30 {
		t.Fatalf("expected default verify rate limit 30, got %d", cfg.VerifyRateLimitPerMinute)
	}
	if cfg.WithdrawRateLimitPerMinute != 10 {
		t.Fatalf("expected default withdraw rate limit 10, got %d", cfg.WithdrawRateLimitPerMinute)
	}
	if cfg.PriceHistoryRetentionDays != 90 {
		t.Fatalf("expected default price history retention 90, got %d", cfg.PriceHistoryRetentionDays)
	}
	if cfg.RedisRateLimitPrefix != "goldvault:rate_limit" {
		t.Fatalf("expected default redis prefix, got %q", cfg.RedisRateLimitPrefix)
	}
}

func TestLoadConfig_PortEnvOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8080")
	setEnvWithCleanup(t, "PORT", "9090")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Fatalf("expected PORT to override SERVER_PORT, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_NonPositiveLimitsFallBackToDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "VERIFY_RATE_LIMIT_PER_MINUTE", "0")
	setEnvWithCleanup(t, "WITHDRAW_RATE_LIMIT_PER_MINUTE", "-5")
	setEnvWithCleanup(t, "PRICE_HISTORY_RETENTION_DAYS", "0")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.VerifyRateLimitPerMinute != 30 {
		t.Fatalf("expected verify rate limit fallback 30, got %d", cfg.VerifyRateLimitPerMinute)
	}
	if cfg.WithdrawRateLimitPerMinute != 10 {
		t.Fatalf("expected withdraw rate limit fallback 10, got %d", cfg.WithdrawRateLimitPerMinute)
	}
	if cfg.PriceHistoryRetentionDays != 90 {
		t.Fatalf("expected retention fallback 90, got %d", cfg.PriceHistoryRetentionDays)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}
