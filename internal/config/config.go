/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the ledger-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                 string `mapstructure:"SERVER_PORT"`
	DatabaseURL                string `mapstructure:"DATABASE_URL"`
	RedisURL                   string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix       string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL                string `mapstructure:"RABBITMQ_URL"`
	CashfreeBaseURL            string `mapstructure:"CASHFREE_BASE_URL"`
	CashfreeClientID           string `mapstructure:"CASHFREE_CLIENT_ID"`
	CashfreeClientSecret       string `mapstructure:"CASHFREE_CLIENT_SECRET"`
	JWTSecret                  string `mapstructure:"JWT_SECRET"`
	VerifyRateLimitPerMinute   int    `mapstructure:"VERIFY_RATE_LIMIT_PER_MINUTE"`
	WithdrawRateLimitPerMinute int    `mapstructure:"WITHDRAW_RATE_LIMIT_PER_MINUTE"`
	PriceHistoryRetentionDays  int    `mapstructure:"PRICE_HISTORY_RETENTION_DAYS"`
	PriceSnapshotCronSpec      string `mapstructure:"PRICE_SNAPSHOT_CRON_SPEC"`
	AllowedOrigins             string `mapstructure:"ALLOWED_ORIGINS"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "goldvault:rate_limit")
	viper.SetDefault("CASHFREE_BASE_URL", "https://sandbox.cashfree.com/pg")
	viper.SetDefault("VERIFY_RATE_LIMIT_PER_MINUTE", 30)
	viper.SetDefault("WITHDRAW_RATE_LIMIT_PER_MINUTE", 10)
	viper.SetDefault("PRICE_HISTORY_RETENTION_DAYS", 90)
	viper.SetDefault("PRICE_SNAPSHOT_CRON_SPEC", "0 0 * * *")
	viper.SetDefault("ALLOWED_ORIGINS", "*")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "LEDGER_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("CASHFREE_BASE_URL")
	_ = viper.BindEnv("CASHFREE_CLIENT_ID")
	_ = viper.BindEnv("CASHFREE_CLIENT_SECRET")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("VERIFY_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("WITHDRAW_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("PRICE_HISTORY_RETENTION_DAYS")
	_ = viper.BindEnv("PRICE_SNAPSHOT_CRON_SPEC")
	_ = viper.BindEnv("ALLOWED_ORIGINS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "goldvault:rate_limit"
	}
	config.CashfreeBaseURL = strings.TrimSpace(config.CashfreeBaseURL)

	if config.VerifyRateLimitPerMinute <= 0 {
		config.VerifyRateLimitPerMinute = 30
	}
	if config.WithdrawRateLimitPerMinute <= 0 {
		config.WithdrawRateLimitPerMinute = 10
	}
	if config.PriceHistoryRetentionDays <= 0 {
		config.PriceHistoryRetentionDays = 90
	}
	if strings.TrimSpace(config.PriceSnapshotCronSpec) == "" {
		config.PriceSnapshotCronSpec = "0 0 * * *"
	}

	return
}
