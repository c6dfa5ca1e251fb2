package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- DefaultConfig aggregate ---

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	// Each sub-config should be non-zero
	assert.NotEqual(t, ServerConfig{}, cfg.Server)
	assert.NotEqual(t, OrchestratorConfig{}, cfg.Orchestrator)
	assert.NotEqual(t, ExecutorConfig{}, cfg.Executor)
	assert.NotEqual(t, LogConfig{}, cfg.Log)
	assert.NotEqual(t, TelemetryConfig{}, cfg.Telemetry)
}

// --- Individual Default*Config functions ---

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	assert.Equal(t, 8000, cfg.HTTPPort)
	assert.Equal(t, 9091, cfg.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Zero(t, cfg.RateLimitRPS)
	assert.Empty(t, cfg.CORSAllowedOrigins)
}

func TestDefaultOrchestratorConfig(t *testing.T) {
	cfg := DefaultOrchestratorConfig()
	assert.Equal(t, "flight=http://localhost:5002,hotel=http://localhost:5003,cab=http://localhost:5001",
		cfg.Agents.String())
	assert.Equal(t, 30*time.Second, cfg.DomainTimeout)
	assert.Equal(t, 2*time.Second, cfg.CancelTimeout)
	assert.Equal(t, 5*time.Second, cfg.DiscoveryTimeout)
	assert.Zero(t, cfg.MaxConcurrency)
	assert.False(t, cfg.RequireDomains)
	assert.Equal(t, 2, cfg.RetryCount)
	assert.Equal(t, 5*time.Minute, cfg.CardCacheTTL)
}

func TestDefaultExecutorConfig(t *testing.T) {
	cfg := DefaultExecutorConfig()
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "localhost", cfg.PublicHost)
	assert.Equal(t, "1.0.0", cfg.Version)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10*time.Minute, cfg.TaskRetention)
	assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	assert.Zero(t, cfg.SimulatedLatency)
}

func TestExecutorConfig_Port(t *testing.T) {
	cfg := DefaultExecutorConfig()
	assert.Equal(t, 5002, cfg.Port("flight"))
	assert.Equal(t, 5003, cfg.Port("Hotel"))
	assert.Equal(t, 5001, cfg.Port("cab"))
	assert.Zero(t, cfg.Port("train"))

	cfg.Ports = PortMap{"train": 5004}
	assert.Equal(t, 5004, cfg.Port("Train"))
}

func TestExecutorConfig_SetPort(t *testing.T) {
	cfg := DefaultExecutorConfig()
	cfg.SetPort("Hotel", 6003)
	cfg.SetPort("ferry", 6005)

	assert.Equal(t, 6003, cfg.HotelPort)
	assert.Equal(t, PortMap{"ferry": 6005}, cfg.Ports)
	assert.Equal(t, 6005, cfg.Port("ferry"))
}

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)
	assert.True(t, cfg.EnableCaller)
	assert.False(t, cfg.EnableStacktrace)
}

func TestDefaultTelemetryConfig(t *testing.T) {
	cfg := DefaultTelemetryConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, "holidayflow", cfg.ServiceName)
	assert.InDelta(t, 0.1, cfg.SampleRate, 0.001)
}
