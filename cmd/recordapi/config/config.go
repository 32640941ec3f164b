// Package config implements the record API config.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// Config holds all record API configuration.
type Config struct {
	Listen       string
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
	Measurement  string
	Lookback     time.Duration
	ListWindow   time.Duration
	StoreTimeout time.Duration
	LogFormat    string
	LogLevel     string
}

// ParseFlags parses command-line flags and environment variables into a
// Config. Exits with status 1 if the InfluxDB connection parameters
// (url, token, org, bucket) are missing; a broken store configuration
// must fail at startup, not on the first request. Environment variables
// are used as fallbacks when flags are not provided.
func ParseFlags() *Config {
	cfg := &Config{}

	// Server
	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8080"), "HTTP listen address")

	// InfluxDB connection
	flag.StringVar(&cfg.InfluxURL, "influx-url", getEnv("INFLUXDB_URL", ""), "InfluxDB base URL (required)")
	flag.StringVar(&cfg.InfluxToken, "influx-token", getEnv("INFLUXDB_TOKEN", ""), "InfluxDB API token (required)")
	flag.StringVar(&cfg.InfluxOrg, "influx-org", getEnv("INFLUXDB_ORG", ""), "InfluxDB organization (required)")
	flag.StringVar(&cfg.InfluxBucket, "influx-bucket", getEnv("INFLUXDB_BUCKET", ""), "InfluxDB bucket (required)")
	flag.StringVar(&cfg.Measurement, "measurement", getEnv("MEASUREMENT", "measurement"), "Measurement name for record points")

	// Record semantics
	flag.DurationVar(&cfg.Lookback, "lookback", getEnvDuration("LOOKBACK", 5*time.Minute), "Existence probe lookback window")
	flag.DurationVar(&cfg.ListWindow, "list-window", getEnvDuration("LIST_WINDOW", time.Hour), "Trailing window returned by GET /data")
	flag.DurationVar(&cfg.StoreTimeout, "store-timeout", getEnvDuration("STORE_TIMEOUT", 10*time.Second), "Per-call timeout for store requests")

	// Logging
	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.Parse()

	if cfg.InfluxURL == "" {
		fmt.Fprintln(os.Stderr, "Error: --influx-url (INFLUXDB_URL) is required")
		os.Exit(1)
	}
	if cfg.InfluxToken == "" {
		fmt.Fprintln(os.Stderr, "Error: --influx-token (INFLUXDB_TOKEN) is required")
		os.Exit(1)
	}
	if cfg.InfluxOrg == "" {
		fmt.Fprintln(os.Stderr, "Error: --influx-org (INFLUXDB_ORG) is required")
		os.Exit(1)
	}
	if cfg.InfluxBucket == "" {
		fmt.Fprintln(os.Stderr, "Error: --influx-bucket (INFLUXDB_BUCKET) is required")
		os.Exit(1)
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
