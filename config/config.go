package config

import (
	"os"
	"strconv"
)

type Config struct {
	DatabasePath   string
	ServerAddress  string
	JWTSecret      string
	MaintenanceFee float64
	DueDateOffset  int
	MQTTBroker     string
	MQTTTopic      string
}

func Load() *Config {
	return &Config{
		DatabasePath:   getEnv("DATABASE_PATH", "./dorm-billing.db"),
		ServerAddress:  getEnv("SERVER_ADDRESS", ":8082"),
		JWTSecret:      getEnv("JWT_SECRET", "dorm-billing-secret-change-in-production"),
		MaintenanceFee: getEnvFloat("MAINTENANCE_FEE", 1000),
		DueDateOffset:  getEnvInt("DUE_DATE_OFFSET_DAYS", 5),
		MQTTBroker:     getEnv("MQTT_BROKER", ""),
		MQTTTopic:      getEnv("MQTT_TOPIC", "dorm/+/+/+"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
