package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	StagingRoot   string
	HistoryPath   string
	LogLevel      string
	TargetVersion string
	Encoding      string
	RunLimit      int
}

func New() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	return &Config{
		StagingRoot:   getEnvString("PACKBRIDGE_STAGING_ROOT", ""),
		HistoryPath:   getEnvString("PACKBRIDGE_HISTORY", "packbridge-history.ldb"),
		LogLevel:      getEnvString("PACKBRIDGE_LOG_LEVEL", "info"),
		TargetVersion: getEnvString("PACKBRIDGE_TARGET_VERSION", ""),
		Encoding:      getEnvString("PACKBRIDGE_ENCODING", ""),
		RunLimit:      getEnvInt("PACKBRIDGE_RUN_LIMIT", 20),
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Printf("Warning: Invalid integer value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}
