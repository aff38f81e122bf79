package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr string
	Env  string
}

func Load() *Config {
	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	return &Config{
		Addr: getEnv("ADDR", ":8080"),
		Env:  getEnv("APP_ENV", "development"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
