package config

import "github.com/spf13/viper"

// Config holds typed configuration for the bridge service.
type Config struct {
	LogLevel     string
	Addr         string
	MetricsAddr  string
	OTelEndpoint string
	PollSchedule string
	CacheTTLMs   int
}

// Load reads all values from the given viper instance.
func Load(v *viper.Viper) Config {
	return Config{
		LogLevel:     v.GetString("log_level"),
		Addr:         v.GetString("addr"),
		MetricsAddr:  v.GetString("metrics_addr"),
		OTelEndpoint: v.GetString("otel_endpoint"),
		PollSchedule: v.GetString("poll_schedule"),
		CacheTTLMs:   v.GetInt("cache_ttl_ms"),
	}
}
