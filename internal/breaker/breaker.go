// Package breaker keeps one circuit breaker per external provider.
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// ErrOpen is returned while a provider's circuit is open or half-open and saturated.
var ErrOpen = errors.New("circuit open")

// Settings configures breakers created by a Manager.
type Settings struct {
	ConsecutiveFailures uint32        // trip after this many failures in a row
	MinRequests         uint32        // failure-rate trip needs at least this many requests
	FailureRatio        float64       // trip when failures/requests reaches this ratio
	OpenTimeout         time.Duration // time spent open before probing
	HalfOpenRequests    uint32        // probes allowed while half-open
	Interval            time.Duration // closed-state counter reset period, 0 keeps counts
}

// DefaultSettings trips on 5 consecutive failures or >= 50% failures over >= 10 requests.
func DefaultSettings() Settings {
	return Settings{
		ConsecutiveFailures: 5,
		MinRequests:         10,
		FailureRatio:        0.5,
		OpenTimeout:         60 * time.Second,
		HalfOpenRequests:    1,
		Interval:            5 * time.Minute,
	}
}

// StateFunc observes breaker state transitions.
type StateFunc func(provider string, state gobreaker.State)

// Manager maps provider names to breakers, creating them on first use.
type Manager struct {
	settings Settings
	logger   zerolog.Logger
	onState  StateFunc

	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewManager creates a Manager. onState may be nil.
func NewManager(settings Settings, logger zerolog.Logger, onState StateFunc) *Manager {
	return &Manager{
		settings: settings,
		logger:   logger.With().Str("component", "breaker").Logger(),
		onState:  onState,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (m *Manager) get(provider string) *gobreaker.CircuitBreaker {
	m.mu.RLock()
	cb, ok := m.breakers[provider]
	m.mu.RUnlock()
	if ok {
		return cb
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cb, ok := m.breakers[provider]; ok {
		return cb
	}

	s := m.settings
	cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        provider,
		MaxRequests: s.HalfOpenRequests,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if s.ConsecutiveFailures > 0 && c.ConsecutiveFailures >= s.ConsecutiveFailures {
				return true
			}
			if s.MinRequests > 0 && c.Requests >= s.MinRequests {
				return float64(c.TotalFailures)/float64(c.Requests) >= s.FailureRatio
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			m.logger.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit state changed")
			if m.onState != nil {
				m.onState(name, to)
			}
		},
	})
	m.breakers[provider] = cb
	return cb
}

// Execute runs fn through the provider's breaker. Rejections by an open
// breaker are reported as ErrOpen.
func (m *Manager) Execute(provider string, fn func() error) error {
	_, err := m.get(provider).Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrOpen
	}
	return err
}

// State returns the provider's breaker state. Unknown providers are closed.
func (m *Manager) State(provider string) gobreaker.State {
	m.mu.RLock()
	cb, ok := m.breakers[provider]
	m.mu.RUnlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}

// States returns the state of every known provider.
func (m *Manager) States() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.breakers))
	for name, cb := range m.breakers {
		out[name] = cb.State().String()
	}
	return out
}
