// Package config provides centralized default values for the Storyblok preview host
package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

// loadEnvFile applies .env overrides. Variables already set in the environment win.
func loadEnvFile() {
	envLoaded.Do(func() {
		if err := godotenv.Load(); err == nil {
			log.Println("Loading configuration overrides from .env file...")
		}
	})
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, redact(key, val), defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

// getEnvOptionalBool returns nil when key is unset or unparsable.
func getEnvOptionalBool(key string) *bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			return &val
		}
		log.Printf("Config ignored: %s=%q is not a boolean", key, valStr)
	}
	return nil
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var secretKeys = map[string]bool{
	"STORYBLOK_ACCESS_TOKEN":   true,
	"STORYBLOK_PREVIEW_TOKEN":  true,
	"JWT_SECRET":               true,
	"STORYBLOK_WEBHOOK_SECRET": true,
}

func redact(key, val string) string {
	if secretKeys[key] {
		return "[redacted]"
	}
	return val
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	CORSAllowedOrigins string

	// Storyblok
	AccessToken     string
	Region          string
	Bridge          *bool
	UseCustomAPI    *bool
	OptionsFile     string
	BridgeScriptURL string
	DefaultVersion  string

	// Preview
	PreviewToken      string
	JWTSecret         string
	WebhookSecret     string
	PreviewSessionTTL time.Duration
	PreviewTokenTTL   time.Duration

	// Logging
	LogLevel  string
	LogJSON   bool
	LogDir    string
	LogToFile bool

	// Options file watcher
	OptionsReloadDebounce time.Duration
)

func init() {
	Load()
}

// Load (re)reads every setting from the environment.
func Load() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	CORSAllowedOrigins = getEnvString("CORS_ALLOWED_ORIGINS", "https://app.storyblok.com")

	// Storyblok
	AccessToken = getEnvString("STORYBLOK_ACCESS_TOKEN", "")
	Region = getEnvString("STORYBLOK_REGION", "")
	Bridge = getEnvOptionalBool("STORYBLOK_BRIDGE")
	UseCustomAPI = getEnvOptionalBool("STORYBLOK_USE_CUSTOM_API")
	OptionsFile = getEnvString("STORYBLOK_OPTIONS_FILE", "")
	BridgeScriptURL = getEnvString("BRIDGE_SCRIPT_URL", "")
	DefaultVersion = getEnvString("STORYBLOK_VERSION", "published")

	// Preview
	PreviewToken = getEnvString("STORYBLOK_PREVIEW_TOKEN", "")
	JWTSecret = getEnvString("JWT_SECRET", "")
	WebhookSecret = getEnvString("STORYBLOK_WEBHOOK_SECRET", "")
	PreviewSessionTTL = getEnvDuration("PREVIEW_SESSION_TTL", 8*time.Hour)
	PreviewTokenTTL = getEnvDuration("PREVIEW_TOKEN_TTL", time.Hour)

	// Logging
	LogLevel = getEnvString("LOG_LEVEL", "INFO")
	LogJSON = getEnvBool("LOG_JSON", false)
	LogDir = getEnvString("LOG_DIR", "logs")
	LogToFile = getEnvBool("LOG_TO_FILE", false)

	OptionsReloadDebounce = getEnvDuration("OPTIONS_RELOAD_DEBOUNCE", 500*time.Millisecond)
}
