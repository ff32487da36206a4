package model

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/thermo.go/pkg/framework"
	"github.com/robotalks/thermo.go/pkg/wire"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Time() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func TestTarget(t *testing.T) {
	testCases := []struct {
		name        string
		temperature *wire.Celsius
		expect      wire.ActuatorState
	}{
		{name: "empty", expect: wire.StateOn},
		{name: "above", temperature: celsius(61), expect: wire.StateOn},
		{name: "equal", temperature: celsius(60), expect: wire.StateOff},
		{name: "below", temperature: celsius(-5), expect: wire.StateOff},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := New(60)
			if tc.temperature != nil {
				m.PushTemperature(*tc.temperature)
				m.PushActuatorState(wire.StateOff)
			}
			require.Equal(t, tc.expect, m.Target())
		})
	}
}

func TestTargetIgnoresPending(t *testing.T) {
	m := New(60)
	m.PushTemperature(10)
	require.Equal(t, wire.StateOn, m.Target(), "unpaired sample is not history")
	m.PushActuatorState(wire.StateOn)
	require.Equal(t, wire.StateOff, m.Target())
	m.PushTemperature(80)
	require.Equal(t, wire.StateOff, m.Target())
}

func TestPairCommit(t *testing.T) {
	clock := &fakeClock{}
	m := New(60, WithClock(clock))

	m.PushTemperature(20)
	m.PushTemperature(21)
	require.Empty(t, m.History())
	p := m.Pending()
	require.Equal(t, wire.Celsius(21), *p.Temperature)
	require.Nil(t, p.State)

	m.PushActuatorState(wire.StateOff)
	history := m.History()
	require.Len(t, history, 1)
	require.Equal(t, Entry{Timestamp: clock.now, Temperature: 21, State: wire.StateOff}, history[0])
	require.Equal(t, Pending{}, m.Pending())

	m.PushActuatorState(wire.StateOn)
	m.PushActuatorState(wire.StateOff)
	require.Len(t, m.History(), 1)
	m.PushTemperature(22)
	history = m.History()
	require.Len(t, history, 2)
	require.Equal(t, wire.StateOff, history[1].State)
	require.Equal(t, wire.Celsius(22), history[1].Temperature)
}

func TestPairCommitInterleaving(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	m := New(60)
	var hasTemp, hasState bool
	commits := 0
	for i := 0; i < 1000; i++ {
		if rnd.Intn(2) == 0 {
			m.PushTemperature(wire.Celsius(i % 100))
			hasTemp = true
		} else {
			m.PushActuatorState(wire.StateOn)
			hasState = true
		}
		if hasTemp && hasState {
			commits++
			hasTemp, hasState = false, false
			require.Equal(t, Pending{}, m.Pending())
		}
		expected := commits
		if expected > HistorySize {
			expected = HistorySize
		}
		require.Len(t, m.History(), expected)
	}
}

func TestRingEviction(t *testing.T) {
	m := New(60)
	for i := 1; i <= 9; i++ {
		m.PushTemperature(wire.Celsius(i))
		m.PushActuatorState(wire.StateOff)
	}
	history := m.History()
	require.Len(t, history, HistorySize)
	for n, e := range history {
		require.Equal(t, wire.Celsius(n+2), e.Temperature)
	}
}

func TestSnapshot(t *testing.T) {
	m := New(30, WithClock(fx.TimeFunc(func() time.Time { return time.Unix(100, 0) })))
	m.PushTemperature(35)
	m.PushActuatorState(wire.StateOn)
	m.PushTemperature(25)
	s := m.Snapshot()
	require.Equal(t, wire.Celsius(30), s.Setpoint)
	require.Equal(t, wire.StateOn, s.Target)
	require.Equal(t, []Entry{{Timestamp: time.Unix(100, 0), Temperature: 35, State: wire.StateOn}}, s.History)
	require.Equal(t, wire.Celsius(25), *s.Pending.Temperature)
	require.Nil(t, s.Pending.State)
	require.Equal(t, wire.Celsius(30), m.Setpoint())
}

func TestConcurrentPush(t *testing.T) {
	m := New(60)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			m.PushTemperature(wire.Celsius(i))
			m.Target()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			m.PushActuatorState(wire.StateOff)
			m.History()
		}
	}()
	wg.Wait()
	require.NotEmpty(t, m.History())
}

func celsius(v wire.Celsius) *wire.Celsius {
	return &v
}
