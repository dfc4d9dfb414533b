package config

import (
	"os"
	"strconv"
	"time"
)

type LedgerConfig struct {
	NotificationQueue string
	DefaultTxLimit    int
	MaxTxLimit        int
	AccrualTimeout    time.Duration
}

func LoadLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		NotificationQueue: getEnv("LEDGER_NOTIFICATION_QUEUE", "tenant_notifications"),
		DefaultTxLimit:    getEnvAsInt("LEDGER_DEFAULT_TX_LIMIT", 100),
		MaxTxLimit:        getEnvAsInt("LEDGER_MAX_TX_LIMIT", 500),
		AccrualTimeout:    getEnvAsDuration("LEDGER_ACCRUAL_TIMEOUT", 10*time.Minute),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
