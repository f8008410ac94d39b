package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Redis  RedisConfig
	DB     DBConfig
	Auth   AuthConfig
	Server ServerConfig
	Vault  VaultConfig
	Notify NotifyConfig
}

type DBConfig struct {
	DSN string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type ServerConfig struct {
	HTTPPort        string
	GRPCPort        string
	PublicRateLimit string
	ProviderTimeout time.Duration
}

type VaultConfig struct {
	// EncryptionKey is 64 hex characters (32 bytes).
	EncryptionKey string
}

type NotifyConfig struct {
	ResendAPIKey       string
	ResendFromEmail    string
	NotificationEmail  string
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioWhatsAppFrom string
	NotificationWAto   string
	Timeout            time.Duration
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	return Config{
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		DB: DBConfig{
			DSN: getEnv("DATABASE_DSN", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getDuration("TOKEN_TTL", 12*time.Hour),
		},
		Server: ServerConfig{
			HTTPPort:        getEnv("HTTP_PORT", "8080"),
			GRPCPort:        getEnv("GRPC_PORT", "50051"),
			PublicRateLimit: getEnv("PUBLIC_RATE_LIMIT", "20-M"),
			ProviderTimeout: getDuration("PROVIDER_TIMEOUT", 10*time.Second),
		},
		Vault: VaultConfig{
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		},
		Notify: NotifyConfig{
			ResendAPIKey:       getEnv("RESEND_API_KEY", ""),
			ResendFromEmail:    getEnv("RESEND_FROM_EMAIL", "onboarding@resend.dev"),
			NotificationEmail:  getEnv("NOTIFICATION_EMAIL", ""),
			TwilioAccountSID:   getEnv("TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:    getEnv("TWILIO_AUTH_TOKEN", ""),
			TwilioWhatsAppFrom: getEnv("TWILIO_WHATSAPP_FROM", ""),
			NotificationWAto:   getEnv("NOTIFICATION_WHATSAPP_TO", ""),
			Timeout:            getDuration("NOTIFICATION_TIMEOUT", 10*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("Invalid %s %q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
