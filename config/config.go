package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type StripeConfig struct {
	SecretKey  string
	AccountID  string
	BaseURL    string
	SuccessURL string
	CancelURL  string
}

type WaveConfig struct {
	APIKey   string
	BaseURL  string
	ErrorURL string
	// Wave settles in a single currency; everything else is converted
	// before the session is created.
	SettlementCurrency string

	// Optional PubNub relay for async transaction notifications.
	PNSubscribeKey string
	PNSecretKey    string
	PNUserID       string
	PNChannel      string
}

type RatesConfig struct {
	BaseURL  string
	CacheTTL time.Duration
}

type Config struct {
	// Server
	Port        string
	Environment string
	CallbackURL string

	// Redis
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub (user-facing notifications)
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// QR payload signing
	QRSigningKey string
	QRValidity   time.Duration

	// Payment gateways
	Stripe StripeConfig
	Wave   WaveConfig

	// Currency rates
	Rates RatesConfig

	// Transfers
	TransferWindow time.Duration

	// Rate limiting
	PayRateLimit  int
	RateWindow    time.Duration
	EnableMetrics bool
}

func LoadConfig() *Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),
		CallbackURL: getEnv("CALLBACK_URL", "http://localhost:8090/payment/callback"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		QRSigningKey: getEnv("QR_SIGNING_KEY", ""),
		QRValidity:   getEnvAsDuration("QR_VALIDITY", "24h"),

		Stripe: StripeConfig{
			SecretKey:  getEnv("STRIPE_SECRET_KEY", ""),
			AccountID:  getEnv("STRIPE_ACCOUNT_ID", ""),
			BaseURL:    getEnv("STRIPE_BASE_URL", "https://api.stripe.com"),
			SuccessURL: getEnv("STRIPE_SUCCESS_URL", "http://localhost:3000/payment/success"),
			CancelURL:  getEnv("STRIPE_CANCEL_URL", "http://localhost:3000/payment/cancel"),
		},

		Wave: WaveConfig{
			APIKey:             getEnv("WAVE_API_KEY", ""),
			BaseURL:            getEnv("WAVE_BASE_URL", "https://api.wave.com"),
			ErrorURL:           getEnv("WAVE_ERROR_URL", "http://localhost:3000/payment/error"),
			SettlementCurrency: getEnv("WAVE_SETTLEMENT_CURRENCY", "XOF"),
			PNSubscribeKey:     getEnv("WAVE_PN_SUBSCRIBE_KEY", ""),
			PNSecretKey:        getEnv("WAVE_PN_SECRET_KEY", ""),
			PNUserID:           getEnv("WAVE_PN_USER_ID", ""),
			PNChannel:          getEnv("WAVE_PN_CHANNEL", ""),
		},

		Rates: RatesConfig{
			BaseURL:  getEnv("RATES_BASE_URL", "https://open.er-api.com/v6"),
			CacheTTL: getEnvAsDuration("RATES_CACHE_TTL", "1h"),
		},

		TransferWindow: getEnvAsDuration("TRANSFER_WINDOW", "24h"),

		PayRateLimit:  getEnvAsInt("PAY_RATE_LIMIT", 10),
		RateWindow:    getEnvAsDuration("RATE_WINDOW", "1m"),
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
