package booking

import (
	"errors"
	"fmt"
	"strings"
)

// Domain names one bookable service.
type Domain string

const (
	DomainFlight Domain = "flight"
	DomainHotel  Domain = "hotel"
	DomainCab    Domain = "cab"
)

// ErrUnknownDomain is returned for a domain that is not registered.
var ErrUnknownDomain = errors.New("booking: unknown domain")

// Domains lists the registered domains in their default dispatch order.
func Domains() []Domain {
	return defaultRegistry.Domains()
}

// ParseDomain resolves a registered domain name case-insensitively.
func ParseDomain(name string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(name)))
	if !d.IsKnown() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDomain, name)
	}
	return d, nil
}

// IsKnown reports whether d is registered.
func (d Domain) IsKnown() bool {
	_, ok := defaultRegistry.Lookup(d)
	return ok
}

func (d Domain) String() string {
	return string(d)
}

// BuildMessage renders the request text sent to the agent of domain d.
// The request should be normalized first.
func BuildMessage(d Domain, r HolidayRequest) (string, error) {
	k, err := lookup(d)
	if err != nil {
		return "", err
	}
	return k.Message(r).render(""), nil
}

// Details returns the booking details reported next to a domain outcome.
// Unknown domains get an empty map.
func Details(d Domain, r HolidayRequest) map[string]any {
	k, ok := defaultRegistry.Lookup(d)
	if !ok {
		return map[string]any{}
	}
	return k.Details(r)
}

// DefaultPort returns the conventional agent port of d, or 0.
func DefaultPort(d Domain) int {
	k, _ := defaultRegistry.Lookup(d)
	return k.Port
}
