package config

import (
	"strings"
	"time"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:       DefaultServerConfig(),
		Orchestrator: DefaultOrchestratorConfig(),
		Executor:     DefaultExecutorConfig(),
		Log:          DefaultLogConfig(),
		Telemetry:    DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8000,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    0,
		RateLimitBurst:  20,
	}
}

// DefaultOrchestratorConfig 返回默认编排器配置, 代理指向本机默认端口
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		Agents: AgentList{
			{Domain: "flight", URL: "http://localhost:5002"},
			{Domain: "hotel", URL: "http://localhost:5003"},
			{Domain: "cab", URL: "http://localhost:5001"},
		},
		DomainTimeout:    30 * time.Second,
		CancelTimeout:    2 * time.Second,
		DiscoveryTimeout: 5 * time.Second,
		MaxConcurrency:   0,
		RequireDomains:   false,
		RetryCount:       2,
		RetryDelay:       500 * time.Millisecond,
		CardCacheTTL:     5 * time.Minute,
	}
}

// DefaultExecutorConfig 返回默认执行端配置
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Host:            "0.0.0.0",
		PublicHost:      "localhost",
		FlightPort:      5002,
		HotelPort:       5003,
		CabPort:         5001,
		Version:         "1.0.0",
		RequestTimeout:  30 * time.Second,
		TaskRetention:   10 * time.Minute,
		CleanupInterval: time.Minute,
		MaxBodyBytes:    1 << 20,
	}
}

// Port 返回领域对应的监听端口: 先查三个内置字段, 再查 Ports. 未配置返回 0
func (e ExecutorConfig) Port(domain string) int {
	switch domain = strings.ToLower(domain); domain {
	case "flight":
		return e.FlightPort
	case "hotel":
		return e.HotelPort
	case "cab":
		return e.CabPort
	default:
		return e.Ports[domain]
	}
}

// SetPort 设置领域的监听端口, 用于命令行 --port 覆盖
func (e *ExecutorConfig) SetPort(domain string, port int) {
	switch domain = strings.ToLower(domain); domain {
	case "flight":
		e.FlightPort = port
	case "hotel":
		e.HotelPort = port
	case "cab":
		e.CabPort = port
	default:
		if e.Ports == nil {
			e.Ports = PortMap{}
		}
		e.Ports[domain] = port
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		Insecure:     true,
		ServiceName:  "holidayflow",
		SampleRate:   0.1,
	}
}
