package booking

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/BaSui01/holidayflow/agent/protocol/a2a"
)

// ErrDomainExists is returned when a domain is registered twice.
var ErrDomainExists = errors.New("booking: domain already registered")

// Template is a titled bullet list. Requests sent to agents and the
// confirmations they return both use it.
type Template struct {
	Title string
	Lines []Line
}

// Line is one "• Key: Value" row of a Template.
type Line struct {
	Key, Value string
}

// Kind describes one bookable domain end to end: what the orchestrator
// sends, what it reports next to the outcome, how the agent advertises
// itself and how it confirms.
type Kind struct {
	Domain Domain
	// AgentName defaults to the domain name followed by "Agent".
	AgentName   string
	Description string
	// Skill.ID defaults to SkillID(Domain).
	Skill a2a.AgentSkill
	// Port is the conventional listen port of the domain agent. Zero leaves it to configuration.
	Port int

	Message func(r HolidayRequest) Template
	Details func(r HolidayRequest) map[string]any
	Confirm func(req Request) (Template, error)
}

func (k Kind) normalize() (Kind, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(string(k.Domain))))
	switch {
	case d == "":
		return k, errors.New("booking: kind has no domain")
	case k.Message == nil || k.Confirm == nil:
		return k, fmt.Errorf("booking: kind %s needs Message and Confirm", d)
	case k.Port < 0 || k.Port > 65535:
		return k, fmt.Errorf("booking: kind %s: invalid port %d", d, k.Port)
	}
	k.Domain = d
	if k.AgentName == "" {
		k.AgentName = string(d) + "Agent"
	}
	if k.Description == "" {
		k.Description = "Books " + string(d)
	}
	if k.Skill.ID == "" {
		k.Skill.ID = SkillID(d)
	}
	if k.Skill.Name == "" {
		k.Skill.Name = k.Skill.ID
	}
	if k.Details == nil {
		k.Details = func(HolidayRequest) map[string]any { return map[string]any{} }
	}
	return k, nil
}

// Registry holds the known domains in registration order, which is also
// their default dispatch order.
type Registry struct {
	mu    sync.RWMutex
	kinds map[Domain]Kind
	order []Domain
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[Domain]Kind)}
}

// Register adds k. The domain name is lowercased.
func (r *Registry) Register(k Kind) error {
	k, err := k.normalize()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[k.Domain]; exists {
		return fmt.Errorf("%w: %s", ErrDomainExists, k.Domain)
	}
	r.kinds[k.Domain] = k
	r.order = append(r.order, k.Domain)
	return nil
}

// Unregister removes d and reports whether it was registered.
func (r *Registry) Unregister(d Domain) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[d]; !exists {
		return false
	}
	delete(r.kinds, d)
	if i := slices.Index(r.order, d); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	return true
}

// Lookup returns the kind registered for d.
func (r *Registry) Lookup(d Domain) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[d]
	return k, ok
}

// Domains returns the registered domains in registration order.
func (r *Registry) Domains() []Domain {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Domain(nil), r.order...)
}

// defaultRegistry starts with flight, hotel and cab.
var defaultRegistry = func() *Registry {
	r := NewRegistry()
	for _, k := range builtinKinds() {
		if err := r.Register(k); err != nil {
			panic(err)
		}
	}
	return r
}()

// Register adds a domain to the process-wide registry used by the
// orchestrator and the agents.
func Register(k Kind) error {
	return defaultRegistry.Register(k)
}

// Unregister removes a domain from the process-wide registry.
func Unregister(d Domain) bool {
	return defaultRegistry.Unregister(d)
}

// Lookup returns the kind registered for d in the process-wide registry.
func Lookup(d Domain) (Kind, bool) {
	return defaultRegistry.Lookup(d)
}

func lookup(d Domain) (Kind, error) {
	k, ok := defaultRegistry.Lookup(d)
	if !ok {
		return Kind{}, fmt.Errorf("%w: %q", ErrUnknownDomain, d)
	}
	return k, nil
}

func (t Template) render(prefix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(t.Title)
	b.WriteString("\n")
	for _, l := range t.Lines {
		bullet(&b, l.Key, l.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}

func bullet(b *strings.Builder, key, value string) {
	b.WriteString("• ")
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}
