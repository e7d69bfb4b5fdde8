package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr       string
	ServiceName    string
	LogLevel       string
	RequestTimeout time.Duration

	// Optional backends; empty disables the component.
	PostgresDSN  string
	RedisAddr    string
	KafkaBrokers []string
	OTelEndpoint string

	InventoryGroup   string
	InventoryWorkers int

	SeedCatalog       bool
	StrictTransitions bool
	LowStockThreshold int
}

func Load() Config {
	return Config{
		HTTPAddr:       getenv("HTTP_ADDR", ":3000"),
		ServiceName:    getenv("SERVICE_NAME", "storefront-api"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 15*time.Second),

		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		KafkaBrokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
		OTelEndpoint: os.Getenv("OTEL_ENDPOINT"),

		InventoryGroup:   getenv("INVENTORY_GROUP", "storefront-restock"),
		InventoryWorkers: getInt("INVENTORY_WORKERS", 8),

		SeedCatalog:       getBool("SEED_CATALOG", true),
		StrictTransitions: getBool("ORDER_STRICT_TRANSITIONS", false),
		LowStockThreshold: getInt("LOW_STOCK_THRESHOLD", 0),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}

func getBool(k string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return b
}

func getDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
