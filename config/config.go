package config

import "time"

// Config 是 HolidayFlow 的完整配置. 同一份配置同时供编排服务和预订代理使用,
// 各进程只读取自己需要的部分.
type Config struct {
	Server       ServerConfig       `yaml:"server" env:"SERVER"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" env:"ORCHESTRATOR"`
	Executor     ExecutorConfig     `yaml:"executor" env:"EXECUTOR"`
	Log          LogConfig          `yaml:"log" env:"LOG"`
	Telemetry    TelemetryConfig    `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 编排服务的 HTTP 监听配置
type ServerConfig struct {
	HTTPPort    int `yaml:"http_port" env:"HTTP_PORT"`
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"` // 0: /metrics 挂在主端口上

	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"` // 应大于 orchestrator.domain_timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"` // 空: 不发送 CORS 头

	RateLimitRPS   float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"` // 按客户端 IP, 0 关闭
	RateLimitBurst int     `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// OrchestratorConfig 派发与代理发现
type OrchestratorConfig struct {
	Agents AgentList `yaml:"agents" env:"AGENTS"` // 派发顺序即列表顺序

	DomainTimeout    time.Duration `yaml:"domain_timeout" env:"DOMAIN_TIMEOUT"`
	CancelTimeout    time.Duration `yaml:"cancel_timeout" env:"CANCEL_TIMEOUT"` // 0: 超时后不通知代理取消
	DiscoveryTimeout time.Duration `yaml:"discovery_timeout" env:"DISCOVERY_TIMEOUT"`

	MaxConcurrency int  `yaml:"max_concurrency" env:"MAX_CONCURRENCY"` // 0: 所有领域同时派发
	RequireDomains bool `yaml:"require_domains" env:"REQUIRE_DOMAINS"` // 代理列表为空时拒绝预订

	RetryCount   int           `yaml:"retry_count" env:"RETRY_COUNT"` // 仅用于获取代理卡, 提交任务不重试
	RetryDelay   time.Duration `yaml:"retry_delay" env:"RETRY_DELAY"`
	CardCacheTTL time.Duration `yaml:"card_cache_ttl" env:"CARD_CACHE_TTL"`
}

// ExecutorConfig 预订代理进程
type ExecutorConfig struct {
	Host       string  `yaml:"host" env:"HOST"`
	PublicHost string  `yaml:"public_host" env:"PUBLIC_HOST"` // 写入代理卡 URL
	FlightPort int     `yaml:"flight_port" env:"FLIGHT_PORT"`
	HotelPort  int     `yaml:"hotel_port" env:"HOTEL_PORT"`
	CabPort    int     `yaml:"cab_port" env:"CAB_PORT"`
	Ports      PortMap `yaml:"ports" env:"PORTS"` // 其他领域的端口, 例如 train=5004
	Version    string  `yaml:"version" env:"VERSION"`

	RequestTimeout  time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	TaskRetention   time.Duration `yaml:"task_retention" env:"TASK_RETENTION"` // 终态任务保留多久后清理
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"CLEANUP_INTERVAL"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`

	SimulatedLatency time.Duration `yaml:"simulated_latency" env:"SIMULATED_LATENCY"`
	Unavailable      []string      `yaml:"unavailable" env:"UNAVAILABLE"` // 这些目的地的预订会失败
}

// LogConfig zap 日志
type LogConfig struct {
	Level            string   `yaml:"level" env:"LEVEL"`   // debug, info, warn, error
	Format           string   `yaml:"format" env:"FORMAT"` // json, console
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig OTLP 导出
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"` // gRPC, host:port
	Insecure     bool    `yaml:"insecure" env:"INSECURE"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"` // 实际服务名追加进程角色
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}
