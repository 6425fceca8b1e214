package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	AllowedOrigin string
	ServiceName   string
	// OpenRouter (OpenAI-compatible chat completions)
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OpenRouterReferer string
	OpenRouterTitle   string
	JokeModel         string
	JokePromptFile    string
	// Vonage
	VonageAPIKey          string
	VonageAPISecret       string
	VonagePhoneNumber     string
	VonageSignatureSecret string
	VonageJWT             string
	// SMSBackend selects the outbound API: "sms" or "messages"
	SMSBackend string
	// Put /api/inbound behind the signature verifier as well
	VerifyInboundSMS bool
	// Database (optional delivery log)
	DatabaseURL   string
	MigrationsDir string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:                  getEnvDefault("PORT", "8000"),
		AllowedOrigin:         getEnvDefault("ALLOWED_ORIGIN", "*"),
		ServiceName:           getEnvDefault("SERVICE_NAME", "dad-joke-hotline"),
		OpenRouterAPIKey:      os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL:     getEnvDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterReferer:     os.Getenv("OPENROUTER_REFERER"),
		OpenRouterTitle:       getEnvDefault("OPENROUTER_TITLE", "Dad Joke Hotline"),
		JokeModel:             getEnvDefault("JOKE_MODEL", "anthropic/claude-3-haiku"),
		JokePromptFile:        getEnvDefault("JOKE_PROMPT_FILE", "./prompts/joke.yaml"),
		VonageAPIKey:          os.Getenv("VONAGE_API_KEY"),
		VonageAPISecret:       os.Getenv("VONAGE_API_SECRET"),
		VonagePhoneNumber:     os.Getenv("VONAGE_PHONE_NUMBER"),
		VonageSignatureSecret: os.Getenv("VONAGE_SIGNATURE_SECRET"),
		VonageJWT:             os.Getenv("VONAGE_JWT"),
		SMSBackend:            strings.ToLower(getEnvDefault("VONAGE_SMS_BACKEND", "sms")),
		VerifyInboundSMS:      getEnvBoolDefault("VERIFY_INBOUND_SMS", false),
		DatabaseURL:           os.Getenv("DB_URL"),
		MigrationsDir:         getEnvDefault("MIGRATIONS_DIR", "./migrations"),
	}
	if cfg.OpenRouterAPIKey == "" {
		log.Println("warning: OPENROUTER_API_KEY is not set; every joke will be the fallback joke")
	}
	if cfg.VonageSignatureSecret == "" {
		log.Println("warning: VONAGE_SIGNATURE_SECRET is not set; signed webhooks will be rejected")
	}
	return cfg
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}
