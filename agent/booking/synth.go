package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/holidayflow/agent/protocol/a2a"
)

// ErrMissingField is returned when a request lacks a field the domain needs.
var ErrMissingField = errors.New("booking: request is missing a required field")

// ErrUnavailable is returned when a domain refuses a destination.
var ErrUnavailable = errors.New("booking: no availability")

// SynthOption configures a domain synthesizer.
type SynthOption func(*synthConfig)

type synthConfig struct {
	latency     time.Duration
	unavailable map[string]struct{}
}

// WithLatency delays every response, honoring cancellation.
func WithLatency(d time.Duration) SynthOption {
	return func(c *synthConfig) {
		c.latency = d
	}
}

// WithUnavailable makes the synthesizer fail for the given places
// (matched case-insensitively against the destination or location).
func WithUnavailable(places ...string) SynthOption {
	return func(c *synthConfig) {
		for _, p := range places {
			if p = normalizePlace(p); p != "" {
				c.unavailable[p] = struct{}{}
			}
		}
	}
}

// Synthesizer returns the deterministic response synthesizer for d.
// Requests are accepted either as a JSON object or as the bullet list built by BuildMessage.
func Synthesizer(d Domain, opts ...SynthOption) (a2a.Synthesizer, error) {
	k, err := lookup(d)
	if err != nil {
		return nil, err
	}
	cfg := &synthConfig{unavailable: make(map[string]struct{})}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(ctx context.Context, request string) (string, error) {
		if cfg.latency > 0 {
			timer := time.NewTimer(cfg.latency)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-timer.C:
			}
		}

		f, err := parseFields(request)
		if err != nil {
			return "", err
		}
		out, err := k.Confirm(Request{Fields: f, Text: request, blocked: cfg.unavailable})
		if err != nil {
			return "", err
		}
		return out.render("✅ "), nil
	}, nil
}

// Request is a parsed booking request handed to Kind.Confirm.
type Request struct {
	Fields Fields
	// Text is the raw request as the agent received it.
	Text    string
	blocked map[string]struct{}
}

// Reference derives a stable booking reference from the request text.
func (r Request) Reference(prefix string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.TrimSpace(r.Text)))
	return fmt.Sprintf("%s-%08X", prefix, h.Sum32())
}

// CheckAvailable fails with ErrUnavailable when any place is blocked for this agent.
func (r Request) CheckAvailable(places ...string) error {
	for _, p := range places {
		key := normalizePlace(p)
		for blocked := range r.blocked {
			if key == blocked || strings.HasPrefix(key, blocked+" ") {
				return fmt.Errorf("%w: %s", ErrUnavailable, p)
			}
		}
	}
	return nil
}

// Fields holds request values under normalized keys ("departure date", "room type").
type Fields map[string]string

// Get returns the first non-empty value among keys.
func (f Fields) Get(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(f[k]); v != "" {
			return v
		}
	}
	return ""
}

// Count reads a leading positive integer ("2 adults") from the first
// non-empty key, defaulting to 1.
func (f Fields) Count(keys ...string) int {
	v := f.Get(keys...)
	end := 0
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(v[:end])
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

func normalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	k = strings.NewReplacer("_", " ", "-", " ").Replace(k)
	return strings.Join(strings.Fields(k), " ")
}

func normalizePlace(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}

func parseFields(request string) (Fields, error) {
	text := strings.TrimSpace(request)
	f := make(Fields)

	if strings.HasPrefix(text, "{") {
		var raw map[string]any
		if err := json.Unmarshal([]byte(text), &raw); err != nil {
			return nil, fmt.Errorf("malformed JSON request: %w", err)
		}
		for k, v := range raw {
			switch val := v.(type) {
			case string:
				f[normalizeKey(k)] = val
			case float64:
				f[normalizeKey(k)] = strconv.FormatFloat(val, 'f', -1, 64)
			case nil:
			default:
				f[normalizeKey(k)] = fmt.Sprint(val)
			}
		}
		return f, nil
	}

	for _, row := range strings.Split(text, "\n") {
		row = strings.TrimLeft(strings.TrimSpace(row), "•-* ")
		key, value, ok := strings.Cut(row, ":")
		if !ok {
			continue
		}
		f[normalizeKey(key)] = strings.TrimSpace(value)
	}
	return f, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
