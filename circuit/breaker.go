package circuit

import (
	"strconv"
	"strings"
	"time"
)

// BreakerSettings contains the settings of a circuit breaker.
type BreakerSettings struct {

	// Name identifies the breaker in the logs, e.g. the backend host.
	Name string `yaml:"name"`

	// Failures is the number of consecutive failures opening the
	// breaker. Zero disables the breaker.
	Failures int `yaml:"failures"`

	// Timeout is how long the breaker stays open before going
	// half-open.
	Timeout time.Duration `yaml:"timeout"`

	// HalfOpenRequests is the number of requests expected to succeed
	// in the half-open state.
	HalfOpenRequests int `yaml:"half-open-requests"`
}

type breakerImplementation interface {
	Allow() (func(bool), bool)
}

type voidBreaker struct{}

// Breaker represents a single circuit breaker.
type Breaker struct {
	settings BreakerSettings
	impl     breakerImplementation
}

// String returns the string representation of the settings.
func (s BreakerSettings) String() string {
	if s.Failures <= 0 {
		return "disabled"
	}

	ss := []string{"type=consecutive"}
	if s.Name != "" {
		ss = append(ss, "name="+s.Name)
	}

	ss = append(ss, "failures="+strconv.Itoa(s.Failures))
	if s.Timeout > 0 {
		ss = append(ss, "timeout="+s.Timeout.String())
	}

	if s.HalfOpenRequests > 0 {
		ss = append(ss, "half-open-requests="+strconv.Itoa(s.HalfOpenRequests))
	}

	return strings.Join(ss, ",")
}

func (b voidBreaker) Allow() (func(bool), bool) {
	return func(bool) {}, true
}

// NewBreaker creates a circuit breaker. With zero failures, the breaker
// is disabled.
func NewBreaker(s BreakerSettings) *Breaker {
	var impl breakerImplementation
	if s.Failures > 0 {
		impl = newConsecutive(s)
	} else {
		impl = voidBreaker{}
	}

	return &Breaker{settings: s, impl: impl}
}

// Allow returns true if the breaker is in the closed state and a callback
// function which the caller must call with the outcome of the request.
// When the breaker is open, it returns false and a nil callback.
func (b *Breaker) Allow() (func(bool), bool) {
	return b.impl.Allow()
}

// Settings returns the settings of the breaker.
func (b *Breaker) Settings() BreakerSettings {
	return b.settings
}
