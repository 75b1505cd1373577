package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort  string `mapstructure:"APP_PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Redis configuration for the conversation cache.
	RedisAddr           string `mapstructure:"REDIS_ADDR"`
	RedisPassword       string `mapstructure:"REDIS_PASSWORD"`
	RedisConversationDB int    `mapstructure:"REDIS_CONVERSATION_DB"`

	// Widget-session lifetime of a cached conversation, in minutes.
	ConversationTTLMin int `mapstructure:"CONVERSATION_TTL_MIN"`

	// Streaming assistant gateway endpoint.
	AssistantGatewayURL string `mapstructure:"ASSISTANT_GATEWAY_URL"`

	// Lead-capture endpoint that receives confirmed booking requests.
	LeadEndpointURL string `mapstructure:"LEAD_ENDPOINT_URL"`
	LeadSourceTag   string `mapstructure:"LEAD_SOURCE_TAG"`

	// Google service account for speech-to-text.
	GoogleServiceAccountFile string `mapstructure:"GOOGLE_SERVICE_ACCOUNT_FILE"`

	// Comma-separated origins allowed to call the widget API.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
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
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CONVERSATION_DB", 0)
	viper.SetDefault("CONVERSATION_TTL_MIN", 60)
	viper.SetDefault("ASSISTANT_GATEWAY_URL", "http://localhost:3000/api/chat")
	viper.SetDefault("LEAD_ENDPOINT_URL", "http://localhost:3000/api/send-email")
	viper.SetDefault("LEAD_SOURCE_TAG", "assistant-widget")
	viper.SetDefault("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
