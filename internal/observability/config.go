package observability

import (
	"strings"

	"github.com/smallbiznis/milkseller/internal/config"
)

const defaultServiceName = "milkseller"

// Config is the slice of application config the logger, tracer and meter need.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	Export        bool
	Endpoint      string
	Protocol      string
	SamplingRatio float64
}

func LoadConfig(cfg config.Config) Config {
	tel := cfg.Telemetry
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = defaultServiceName
	}

	return Config{
		ServiceName:   name,
		Environment:   strings.TrimSpace(cfg.Environment),
		Version:       strings.TrimSpace(cfg.AppVersion),
		LogLevel:      orDefault(tel.LogLevel, "info"),
		LogFormat:     orDefault(tel.LogFormat, "json"),
		Export:        tel.OTelEnabled && strings.TrimSpace(tel.OTLPEndpoint) != "",
		Endpoint:      strings.TrimSpace(tel.OTLPEndpoint),
		Protocol:      orDefault(tel.OTLPProtocol, "grpc"),
		SamplingRatio: clampRatio(tel.SamplingRatio),
	}
}

// Debug turns on verbose request logs for debug level or a development environment.
func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func orDefault(value, def string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return def
	}
	return value
}

func clampRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}
