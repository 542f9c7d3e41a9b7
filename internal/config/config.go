package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBSource    string
	Port        string
	Env         string
	KafkaBroker string
	KafkaTopic  string
}

// Load reads configuration from the environment, with .env support for
// local development. DB_SOURCE is the only required value.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, relying on system env variables")
	}

	cfg := &Config{
		DBSource:    os.Getenv("DB_SOURCE"),
		Port:        getEnv("SERVER_PORT", "8080"),
		Env:         getEnv("ENVIRONMENT", "development"),
		KafkaBroker: os.Getenv("KAFKA_BROKER"),
		KafkaTopic:  getEnv("KAFKA_TOPIC", "payvault.movements"),
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
