package config

import (
	"fmt"
	"os"
)

// Config holds the process's environment-sourced settings (spec §6's
// "Configuration inputs").
type Config struct {
	BindIP   string
	Port     string
	BaseURL  string
	LogLevel string
}

// Load reads configuration from the environment, following the teacher's
// getEnv default-fallback pattern.
func Load() *Config {
	cfg := &Config{
		BindIP:   getEnv("BIND_IP", "0.0.0.0"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
	cfg.BaseURL = getEnv("BASE_URL", fmt.Sprintf("http://%s:%s", cfg.BindIP, cfg.Port))
	return cfg
}

// Addr returns the listen address for http.Server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.BindIP, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
