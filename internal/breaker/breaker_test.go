package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
)

func TestManager_TripsOnConsecutiveFailures(t *testing.T) {
	var transitions []gobreaker.State
	m := NewManager(DefaultSettings(), zerolog.Nop(), func(_ string, s gobreaker.State) {
		transitions = append(transitions, s)
	})

	boom := errors.New("boom")
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, m.Execute("rugcheck", func() error { return boom }), boom)
	}

	assert.Equal(t, gobreaker.StateOpen, m.State("rugcheck"))
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)

	called := false
	err := m.Execute("rugcheck", func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestManager_TripsOnFailureRatio(t *testing.T) {
	s := DefaultSettings()
	s.ConsecutiveFailures = 100
	m := NewManager(s, zerolog.Nop(), nil)

	boom := errors.New("boom")
	for i := 0; i < 10; i++ {
		fail := i%2 == 1
		_ = m.Execute("birdeye", func() error {
			if fail {
				return boom
			}
			return nil
		})
	}

	assert.Equal(t, gobreaker.StateOpen, m.State("birdeye"))
}

func TestManager_ProvidersAreIndependent(t *testing.T) {
	s := DefaultSettings()
	s.ConsecutiveFailures = 1
	s.OpenTimeout = time.Hour
	m := NewManager(s, zerolog.Nop(), nil)

	_ = m.Execute("openai", func() error { return errors.New("down") })

	assert.Equal(t, gobreaker.StateOpen, m.State("openai"))
	assert.NoError(t, m.Execute("twitter", func() error { return nil }))
	assert.Equal(t, gobreaker.StateClosed, m.State("unknown"))
	assert.Equal(t, map[string]string{"openai": "open", "twitter": "closed"}, m.States())
}
