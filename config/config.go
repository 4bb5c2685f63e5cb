package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Payment gateway (Stripe Checkout).
	StripeKey           string `mapstructure:"STRIPE_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	StripeSuccessURL    string `mapstructure:"STRIPE_SUCCESS_URL"`
	StripeCancelURL     string `mapstructure:"STRIPE_CANCEL_URL"`
	Currency            string `mapstructure:"CURRENCY"`
	GatewayTimeoutSec   int    `mapstructure:"GATEWAY_TIMEOUT_SEC"`

	// Booking engine knobs. Slot boundaries are aligned to the granularity
	// everywhere: generation, validation and the conflict check.
	SlotGranularityMin int    `mapstructure:"SLOT_GRANULARITY_MIN"`
	HoldTTLMin         int    `mapstructure:"HOLD_TTL_MIN"`
	BookingHorizonDays int    `mapstructure:"BOOKING_HORIZON_DAYS"`
	BookingTimezone    string `mapstructure:"BOOKING_TIMEZONE"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "glowbook")
	viper.SetDefault("STRIPE_KEY", "")
	viper.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	viper.SetDefault("STRIPE_SUCCESS_URL", "https://glowbook.in/booking/success")
	viper.SetDefault("STRIPE_CANCEL_URL", "https://glowbook.in/booking/cancelled")
	viper.SetDefault("CURRENCY", "inr")
	viper.SetDefault("GATEWAY_TIMEOUT_SEC", 10)
	viper.SetDefault("SLOT_GRANULARITY_MIN", 30)
	viper.SetDefault("HOLD_TTL_MIN", 15)
	viper.SetDefault("BOOKING_HORIZON_DAYS", 14)
	viper.SetDefault("BOOKING_TIMEZONE", "Asia/Kolkata")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := AppConfig.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
}

// Validate rejects values the booking engine cannot run with. The slot
// granularity in particular is a divisor throughout slot generation, so a
// zero would otherwise surface as a runtime panic on the first query.
func (c *Config) Validate() error {
	if c.SlotGranularityMin <= 0 {
		return fmt.Errorf("SLOT_GRANULARITY_MIN must be positive, got %d", c.SlotGranularityMin)
	}
	if c.HoldTTLMin <= 0 {
		return fmt.Errorf("HOLD_TTL_MIN must be positive, got %d", c.HoldTTLMin)
	}
	if c.BookingHorizonDays <= 0 {
		return fmt.Errorf("BOOKING_HORIZON_DAYS must be positive, got %d", c.BookingHorizonDays)
	}
	if c.GatewayTimeoutSec <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT_SEC must be positive, got %d", c.GatewayTimeoutSec)
	}
	return nil
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
