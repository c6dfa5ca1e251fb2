package orchestrator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/holidayflow/agent/booking"
	"github.com/BaSui01/holidayflow/agent/protocol/a2a"
)

var (
	// ErrDuplicateDomain indicates the same domain is configured twice.
	ErrDuplicateDomain = errors.New("orchestrator: duplicate domain")
	// ErrInvalidConfig indicates an unusable orchestrator configuration.
	ErrInvalidConfig = errors.New("orchestrator: invalid config")
)

// AgentEndpoint binds a booking domain to the base URL of its agent.
type AgentEndpoint struct {
	Domain string `json:"domain" yaml:"domain"`
	URL    string `json:"url" yaml:"url"`
}

// Config configures an Orchestrator.
type Config struct {
	// Agents are dispatched in this order and reported in this order.
	Agents []AgentEndpoint
	// DomainTimeout bounds each domain submission. Zero means no per-domain bound.
	DomainTimeout time.Duration
	// CancelTimeout bounds the best-effort remote cancel fired when a call ends early.
	// Zero disables remote cancellation.
	CancelTimeout time.Duration
	// DiscoveryTimeout bounds each agent card fetch in AgentsStatus.
	DiscoveryTimeout time.Duration
	// MaxConcurrency limits simultaneous domain submissions per call. Zero means unlimited.
	MaxConcurrency int
	// RequireDomains turns an empty agent list into an error instead of an empty success.
	RequireDomains bool
	// Client configures the per-agent A2A clients.
	Client *a2a.ClientConfig
}

// DefaultAgents returns the conventional local agent endpoints.
func DefaultAgents() []AgentEndpoint {
	agents := make([]AgentEndpoint, 0, len(booking.Domains()))
	for _, d := range booking.Domains() {
		agents = append(agents, AgentEndpoint{
			Domain: string(d),
			URL:    fmt.Sprintf("http://localhost:%d", booking.DefaultPort(d)),
		})
	}
	return agents
}

// DefaultConfig returns a Config with the local agents and sensible timeouts.
func DefaultConfig() Config {
	return Config{
		Agents:           DefaultAgents(),
		DomainTimeout:    30 * time.Second,
		CancelTimeout:    2 * time.Second,
		DiscoveryTimeout: 5 * time.Second,
		Client:           a2a.DefaultClientConfig(),
	}
}

// Validate checks the agent list and timeouts.
func (c Config) Validate() error {
	seen := make(map[booking.Domain]struct{}, len(c.Agents))
	for _, a := range c.Agents {
		d, err := booking.ParseDomain(a.Domain)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if _, ok := seen[d]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateDomain, d)
		}
		seen[d] = struct{}{}

		if strings.TrimSpace(a.URL) == "" {
			return fmt.Errorf("%w: agent %s has no url", ErrInvalidConfig, d)
		}
	}

	if c.DomainTimeout < 0 || c.CancelTimeout < 0 || c.DiscoveryTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("%w: max_concurrency must not be negative", ErrInvalidConfig)
	}
	return nil
}
