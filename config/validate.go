package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"
)

// Validate 检查配置, 一次返回全部问题. 错误信息以 YAML 路径开头.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	type portField struct {
		name     string
		port     int
		optional bool
	}
	ports := []portField{
		{"server.http_port", c.Server.HTTPPort, false},
		{"server.metrics_port", c.Server.MetricsPort, true},
		{"executor.flight_port", c.Executor.FlightPort, false},
		{"executor.hotel_port", c.Executor.HotelPort, false},
		{"executor.cab_port", c.Executor.CabPort, false},
	}
	for _, d := range c.Executor.Ports.Domains() {
		switch d {
		case "flight", "hotel", "cab":
			fail("executor.ports.%s: use executor.%s_port", d, d)
			continue
		}
		ports = append(ports, portField{"executor.ports." + d, c.Executor.Ports[d], false})
	}
	owner := make(map[int]string, len(ports))
	for _, p := range ports {
		if p.optional && p.port == 0 {
			continue
		}
		if p.port <= 0 || p.port > 65535 {
			fail("%s: %d is not a valid port", p.name, p.port)
			continue
		}
		if prev, taken := owner[p.port]; taken {
			fail("%s: port %d is already used by %s", p.name, p.port, prev)
			continue
		}
		owner[p.port] = p.name
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		fail("server: read_timeout and write_timeout must be positive")
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		fail("server: rate limit must not be negative")
	}

	seen := make(map[string]bool, len(c.Orchestrator.Agents))
	for i, a := range c.Orchestrator.Agents {
		switch {
		case a.Domain == "" || a.URL == "":
			fail("orchestrator.agents[%d]: domain and url are required", i)
		case seen[a.Domain]:
			fail("orchestrator.agents[%d]: duplicate domain %q", i, a.Domain)
		}
		seen[a.Domain] = true
	}
	o := c.Orchestrator
	if o.DomainTimeout < 0 || o.CancelTimeout < 0 || o.DiscoveryTimeout < 0 || o.RetryDelay < 0 {
		fail("orchestrator: timeouts must not be negative")
	}
	if o.MaxConcurrency < 0 {
		fail("orchestrator.max_concurrency: must not be negative")
	}
	if o.RetryCount < 0 {
		fail("orchestrator.retry_count: must not be negative")
	}
	if w := c.Server.WriteTimeout; w > 0 {
		switch need := o.bookingBudget(); {
		case o.DomainTimeout == 0 && len(o.Agents) > 0:
			fail("orchestrator.domain_timeout: unbounded bookings would outlive server.write_timeout %v", w)
		case need > 0 && w <= need:
			fail("server.write_timeout: %v must exceed %v, the longest /book-holiday can take with orchestrator.domain_timeout %v", w, need, o.DomainTimeout)
		}
	}

	if c.Executor.RequestTimeout <= 0 {
		fail("executor.request_timeout: must be positive")
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		fail("log.level: %v", err)
	}
	if f := c.Log.Format; f != "" && f != "json" && f != "console" {
		fail("log.format: %q is neither json nor console", f)
	}

	if r := c.Telemetry.SampleRate; r < 0 || r > 1 {
		fail("telemetry.sample_rate: %v is outside [0, 1]", r)
	}

	return errors.Join(errs...)
}

// bookingBudget 一次预订最长耗时: 受 max_concurrency 限制时领域分批执行
func (o OrchestratorConfig) bookingBudget() time.Duration {
	n := len(o.Agents)
	if n == 0 || o.DomainTimeout <= 0 {
		return 0
	}
	waves := 1
	if o.MaxConcurrency > 0 {
		waves = (n + o.MaxConcurrency - 1) / o.MaxConcurrency
	}
	return time.Duration(waves) * o.DomainTimeout
}
