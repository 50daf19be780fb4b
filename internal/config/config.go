// Package config provides configuration for the swarm orchestrator.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the orchestrator configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Model gateway (OpenAI-compatible chat completions)
	GatewayURL    string
	GatewayAPIKey string
	LLMTimeout    time.Duration

	// Defaults applied when the run request omits them
	DefaultModel     string
	DefaultMaxTokens int

	// Optional YAML roster overriding the built-in agent set
	AgentsFile string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		HTTPPort:         getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:      getEnv("DATABASE_URL", "file:swarm.db?cache=shared&mode=rwc"),
		GatewayURL:       getEnv("GATEWAY_URL", "https://ai.gateway.lovable.dev"),
		GatewayAPIKey:    getEnv("GATEWAY_API_KEY", ""),
		LLMTimeout:       time.Duration(getEnvInt("LLM_TIMEOUT_MS", 300000)) * time.Millisecond,
		DefaultModel:     getEnv("DEFAULT_MODEL", "google/gemini-3-flash-preview"),
		DefaultMaxTokens: getEnvInt("DEFAULT_MAX_TOKENS", 8192),
		AgentsFile:       getEnv("AGENTS_FILE", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
