package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string

	// RaidTimezone is the reference timezone for raid start times and
	// scheduler windows.
	RaidTimezone      string
	SchedulerInterval time.Duration

	// SES notifier settings. Empty SESFromEmail disables SES delivery.
	AWSRegion    string
	SESFromEmail string
	SESFromName  string

	// Bot gateway settings: outbound sends go to GatewayURL, inbound
	// updates arrive on ListenAddr, both authenticated with GatewaySecret.
	GatewayURL    string
	GatewaySecret string
	ListenAddr    string

	AdminIDs []int64
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file is honored when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DatabaseType:      getEnv("DB_TYPE", "sqlite"),
		DatabasePath:      getEnv("DB_PATH", "./raidcall.db"),
		DatabaseURL:       getEnv("DB_URL", ""),
		MigrationsPath:    getEnv("MIGRATIONS_PATH", "./migrations"),
		RaidTimezone:      getEnv("RAID_TIMEZONE", "Europe/Moscow"),
		SchedulerInterval: getDuration("SCHEDULER_INTERVAL", 60*time.Second),
		AWSRegion:         getEnv("AWS_REGION", "eu-west-1"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "RaidCall"),
		GatewayURL:        getEnv("GATEWAY_URL", ""),
		GatewaySecret:     getEnv("GATEWAY_SECRET", ""),
		ListenAddr:        getEnv("LISTEN_ADDR", ":8080"),
		AdminIDs:          getInt64List("ADMIN_IDS"),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func getInt64List(key string) []int64 {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var ids []int64
	for _, field := range strings.Split(value, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			log.Printf("Invalid %s entry %q, skipping", key, field)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
