package observability

import (
	"testing"

	"github.com/smallbiznis/milkseller/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Environment: "development",
		AppVersion:  "1.2.0",
		Telemetry:   config.TelemetryConfig{OTelEnabled: true, SamplingRatio: 0.5},
	})

	assert.Equal(t, "milkseller", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "grpc", cfg.Protocol)
	assert.False(t, cfg.Export, "no endpoint means nothing to export to")
	assert.Equal(t, 0.5, cfg.SamplingRatio)
	assert.True(t, cfg.Debug())
}

func TestLoadConfig_Export(t *testing.T) {
	cfg := LoadConfig(config.Config{
		AppName: "billing-api",
		Telemetry: config.TelemetryConfig{
			OTelEnabled:   true,
			OTLPEndpoint:  " collector:4318 ",
			OTLPProtocol:  "HTTP",
			SamplingRatio: 3,
		},
	})

	assert.Equal(t, "billing-api", cfg.ServiceName)
	assert.True(t, cfg.Export)
	assert.Equal(t, "collector:4318", cfg.Endpoint)
	assert.Equal(t, "http", cfg.Protocol)
	assert.Equal(t, 1.0, cfg.SamplingRatio)
}

func TestConfigDebug(t *testing.T) {
	assert.False(t, Config{Environment: "production", LogLevel: "info"}.Debug())
	assert.True(t, Config{Environment: "production", LogLevel: "DEBUG"}.Debug())
}
